// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, the hardening layer for the JSON API.
// Fare and airport payloads are pure data, so no Content-Security-Policy is
// emitted; the knobs that matter here are HSTS behind the TLS-terminating
// proxy and cache suppression for responses carrying live fare prices.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// defaultHSTSMaxAge applies when HSTS is enabled without an explicit
// lifetime. 180 days.
const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security, and only on HTTPS
	// requests. Leave off unless every hop up to the app is TLS.
	EnableHSTS bool
	// HSTSMaxAge is the HSTS lifetime; <=0 falls back to 180 days.
	HSTSMaxAge time.Duration
	// NoStore marks responses uncacheable. For deployments where fare
	// prices must never be replayed from an intermediary cache.
	NoStore bool
	// EnablePolicy adds browser feature policies. Meaningless to API
	// clients, harmless to send.
	EnablePolicy bool
}

// SecurityHeaders attaches hardening headers to every response: nosniff,
// frame denial and a strict referrer policy always; feature policies,
// no-store cache directives and HSTS per the options. When an upstream
// middleware already set X-Request-ID, the header name is appended to
// Access-Control-Expose-Headers so browser clients can read it.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hstsValue := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// Never on plain HTTP; browsers would pin the directive against
		// the wrong scheme.
		if opt.EnableHSTS && requestIsTLS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if h.Get("X-Request-ID") != "" {
			appendExposeHeader(h, "X-Request-ID")
		}

		c.Next()
	}
}

// appendExposeHeader adds name to Access-Control-Expose-Headers unless the
// list already contains it.
func appendExposeHeader(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	switch cur := h.Get(hdr); {
	case cur == "":
		h.Set(hdr, name)
	case !strings.Contains(cur, name):
		h.Set(hdr, cur+", "+name)
	}
}

// requestIsTLS reports HTTPS, terminated either here or at a proxy that
// forwards X-Forwarded-Proto.
func requestIsTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
