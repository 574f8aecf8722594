package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func securityRouter(opt SecurityOptions, pre gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.GET("/airports", func(c *gin.Context) { c.String(http.StatusOK, `[]`) })
	return r
}

func TestSecurityHeaders_BaselineOnly(t *testing.T) {
	r := securityRouter(SecurityOptions{}, func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-baseline")
		c.Next()
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/airports", nil))

	h := w.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" ||
		h.Get("X-Frame-Options") != "DENY" ||
		h.Get("Referrer-Policy") != "no-referrer" {
		t.Fatalf("baseline headers missing: %#v", h)
	}
	for _, name := range []string{
		"Permissions-Policy", "X-Permitted-Cross-Domain-Policies",
		"Cache-Control", "Pragma", "Expires",
		"Strict-Transport-Security",
	} {
		if h.Get(name) != "" {
			t.Fatalf("optional header %s set without its option: %q", name, h.Get(name))
		}
	}
	if h.Get("Access-Control-Expose-Headers") != "X-Request-ID" {
		t.Fatalf("expose header = %q; want X-Request-ID", h.Get("Access-Control-Expose-Headers"))
	}
}

func TestSecurityHeaders_AllOptionsOverTLS(t *testing.T) {
	r := securityRouter(SecurityOptions{
		EnableHSTS:   true,
		HSTSMaxAge:   24 * time.Hour,
		NoStore:      true,
		EnablePolicy: true,
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/airports", nil)
	req.TLS = &tls.ConnectionState{}
	r.ServeHTTP(w, req)

	h := w.Header()
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %#v", h)
	}
	if h.Get("Cache-Control") != "no-store" || h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Fatalf("no-store headers missing: %#v", h)
	}
	if got, want := h.Get("Strict-Transport-Security"), "max-age=86400; includeSubDomains; preload"; got != want {
		t.Fatalf("HSTS = %q; want %q", got, want)
	}
}

func TestSecurityHeaders_HSTSDefaultLifetimeBehindProxy(t *testing.T) {
	r := securityRouter(SecurityOptions{EnableHSTS: true}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/airports", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)

	// 180 days in seconds.
	want := "max-age=15552000; includeSubDomains; preload"
	if got := w.Header().Get("Strict-Transport-Security"); got != want {
		t.Fatalf("HSTS = %q; want %q", got, want)
	}

	// Same options over plain HTTP stay silent.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/airports", nil))
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS emitted on plain HTTP: %q", got)
	}
}

func Test_appendExposeHeader(t *testing.T) {
	cases := []struct {
		name string
		cur  string
		want string
	}{
		{"empty", "", "X-Request-ID"},
		{"append", "Content-Length", "Content-Length, X-Request-ID"},
		{"already listed", "X-Request-ID, Content-Length", "X-Request-ID, Content-Length"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.cur != "" {
				h.Set("Access-Control-Expose-Headers", tc.cur)
			}
			appendExposeHeader(h, "X-Request-ID")
			if got := h.Get("Access-Control-Expose-Headers"); got != tc.want {
				t.Fatalf("expose header = %q; want %q", got, tc.want)
			}
		})
	}
}

func Test_requestIsTLS(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if requestIsTLS(plain) {
		t.Fatalf("plain request reported as TLS")
	}

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.TLS = &tls.ConnectionState{}
	if !requestIsTLS(direct) {
		t.Fatalf("terminated TLS not detected")
	}

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	if !requestIsTLS(proxied) {
		t.Fatalf("X-Forwarded-Proto not detected case-insensitively")
	}
}
