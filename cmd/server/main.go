// Command server runs the trip search HTTP API.
//
// Startup order: environment (.env is optional), configuration, logging,
// database, tracing, flight providers, AI chain, router, HTTP server.
// The process shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hopcraft/go-trip-backend/internal/config"
	httpapi "github.com/hopcraft/go-trip-backend/internal/http"
	"github.com/hopcraft/go-trip-backend/internal/llm"
	"github.com/hopcraft/go-trip-backend/internal/observability"
	"github.com/hopcraft/go-trip-backend/internal/providers"
	"github.com/hopcraft/go-trip-backend/internal/ratelimit"
	"github.com/hopcraft/go-trip-backend/internal/repo"
	"github.com/hopcraft/go-trip-backend/internal/sysutil"
)

const version = "1.0.0"

func main() {
	// .env is a dev convenience; deployed environments set real env vars.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	cfg := config.MustLoad()
	setupLogging(cfg)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	ctx := context.Background()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}

	// Flight data: quota counters persist in the DB so restarts do not
	// reset the monthly budgets.
	limiter := ratelimit.NewLimiter(repo.NewCounterStore(db))
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	serp := providers.NewGoogleFlightsProvider(cfg.Flights.SerpAPIKey, "", httpClient)
	amadeus := providers.NewAmadeusProvider(
		cfg.Flights.AmadeusAPIKey,
		cfg.Flights.AmadeusAPISecret,
		cfg.Flights.AmadeusBaseURL,
		httpClient,
		providers.NewTokenCache(),
	)
	cascade := providers.NewCascade(limiter, providers.MonthlyWindow,
		providers.Entry{
			Name:     "serpapi",
			Provider: serp,
			Limit:    cfg.Flights.SerpAPILimit,
			Note: fmt.Sprintf("Results from Google Flights (SerpAPI) - includes Wizz Air, easyJet and more. "+
				"%d req/month free tier.", cfg.Flights.SerpAPILimit),
		},
		providers.Entry{
			Name:     "amadeus",
			Provider: amadeus,
			Limit:    cfg.Flights.AmadeusLimit,
			Note: "SerpAPI quota exhausted for this month. Results limited to major carriers " +
				"(Lufthansa, Air France, Iberia) - no Ryanair, easyJet or Wizz Air.",
		},
	)

	chain := llm.NewChain(
		llm.NewGeminiProvider(cfg.LLM.GeminiAPIKey, "", httpClient),
		llm.NewGroqProvider(cfg.LLM.GroqAPIKey, "", httpClient),
		llm.NewMistralProvider(cfg.LLM.MistralAPIKey, "", httpClient),
	)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cascade, chain, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("api_base", cfg.APIBasePath).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-stop.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}

// setupLogging configures the global zerolog logger from config.
func setupLogging(cfg config.Config) {
	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
