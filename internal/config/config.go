// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, flight provider
// credentials and quotas, AI backends, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-trip-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// FlightProvidersConfig holds the flight data credentials and the monthly
// call budgets of the cascade. The limits keep a safety margin below each
// free tier (SerpAPI 250/month, Amadeus 2000/month).
type FlightProvidersConfig struct {
	SerpAPIKey   string // SERPAPI_KEY
	SerpAPILimit int    // SERPAPI_MONTHLY_LIMIT

	AmadeusAPIKey    string // AMADEUS_API_KEY
	AmadeusAPISecret string // AMADEUS_API_SECRET
	AmadeusLimit     int    // AMADEUS_MONTHLY_LIMIT
	AmadeusBaseURL   string // AMADEUS_BASE_URL (empty = test environment)
}

// LLMConfig holds the AI backend credentials and the primary backend the
// fallback chain starts at.
type LLMConfig struct {
	Primary       string // LLM_PRIMARY: gemini|groq|mistral
	GeminiAPIKey  string // GEMINI_API_KEY
	GroqAPIKey    string // GROQ_API_KEY
	MistralAPIKey string // MISTRAL_API_KEY
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 30s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	DBPath             string        // SQLite path
	CacheTTL           time.Duration // flight cache validity
	PricingConcurrency int           // parallel pricing tasks per search
	MaxFreshFetches    int           // provider calls per reverse search
	ProviderTimeout    time.Duration // per upstream HTTP call

	// Domain stacks
	Flights FlightProvidersConfig
	LLM     LLMConfig

	// Rate limiting (per-client HTTP edge)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:             getenv("DB_PATH", "trips.db"),
		CacheTTL:           time.Duration(getint("CACHE_TTL_HOURS", 6)) * time.Hour,
		PricingConcurrency: getint("PRICING_CONCURRENCY", 3),
		MaxFreshFetches:    getint("MAX_FRESH_FETCHES", 50),
		ProviderTimeout:    getdur("PROVIDER_TIMEOUT", 25*time.Second),

		// Flight providers
		Flights: FlightProvidersConfig{
			SerpAPIKey:       getenv("SERPAPI_KEY", ""),
			SerpAPILimit:     getint("SERPAPI_MONTHLY_LIMIT", 230),
			AmadeusAPIKey:    getenv("AMADEUS_API_KEY", ""),
			AmadeusAPISecret: getenv("AMADEUS_API_SECRET", ""),
			AmadeusLimit:     getint("AMADEUS_MONTHLY_LIMIT", 1800),
			AmadeusBaseURL:   getenv("AMADEUS_BASE_URL", ""),
		},

		// AI backends
		LLM: LLMConfig{
			Primary:       strings.ToLower(getenv("LLM_PRIMARY", "gemini")),
			GeminiAPIKey:  getenv("GEMINI_API_KEY", ""),
			GroqAPIKey:    getenv("GROQ_API_KEY", ""),
			MistralAPIKey: getenv("MISTRAL_API_KEY", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-trip-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.CacheTTL <= 0 {
		return cfg, errors.New("CACHE_TTL_HOURS must be > 0")
	}
	if cfg.PricingConcurrency < 1 {
		return cfg, errors.New("PRICING_CONCURRENCY must be >= 1")
	}
	if cfg.MaxFreshFetches < 1 {
		return cfg, errors.New("MAX_FRESH_FETCHES must be >= 1")
	}
	if cfg.ProviderTimeout <= 0 {
		return cfg, errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	if cfg.Flights.SerpAPILimit < 1 || cfg.Flights.AmadeusLimit < 1 {
		return cfg, errors.New("provider monthly limits must be >= 1")
	}
	switch cfg.LLM.Primary {
	case "gemini", "groq", "mistral":
	default:
		return cfg, errors.New("LLM_PRIMARY must be one of: gemini, groq, mistral")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
