package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RoutePatternLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/airports/:iata", func(c *gin.Context) {
		c.String(http.StatusOK, `{"iata":%q}`, c.Param("iata"))
	})

	base := testutil.ToFloat64(reqCount.WithLabelValues("GET", "/airports/:iata", "200"))

	for _, iata := range []string{"ATH", "SKG"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/airports/"+iata, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET /airports/%s = %d", iata, w.Code)
		}
	}

	// Both requests land on the one pattern label, not on per-code labels.
	got := testutil.ToFloat64(reqCount.WithLabelValues("GET", "/airports/:iata", "200"))
	if got != base+2 {
		t.Fatalf("pattern counter = %v; want %v", got, base+2)
	}
	if leaked := testutil.ToFloat64(reqCount.WithLabelValues("GET", "/airports/ATH", "200")); leaked != 0 {
		t.Fatalf("raw path leaked into labels: %v", leaked)
	}
}

func TestMetrics_UnmatchedRouteFallsBackToRawPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())

	base := testutil.ToFloat64(reqCount.WithLabelValues("GET", "/nope", "404"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d", w.Code)
	}

	if got := testutil.ToFloat64(reqCount.WithLabelValues("GET", "/nope", "404")); got != base+1 {
		t.Fatalf("fallback counter = %v; want %v", got, base+1)
	}
}

func TestMetrics_InFlightDrainsAndBodylessSizeSkipped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/accepted", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accepted", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("GET /accepted = %d", w.Code)
	}

	// The 204 handler writes no body, so the size histogram records
	// nothing for it; the gauge must be back to zero once served.
	if inFlight := testutil.ToFloat64(reqInFlight); inFlight != 0 {
		t.Fatalf("in-flight gauge = %v after completion; want 0", inFlight)
	}
}
