package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

func newAirportRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "airports.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	seed := []domain.Airport{
		{IATACode: "ATH", Name: "Athens Intl", City: "Athens", Country: "Greece", Latitude: 37.9364, Longitude: 23.9445, IsActive: true},
		{IATACode: "SKG", Name: "Thessaloniki", City: "Thessaloniki", Country: "Greece", Latitude: 40.5197, Longitude: 22.9709, IsActive: true},
		{IATACode: "JFK", Name: "John F. Kennedy Intl", City: "New York", Country: "United States", Latitude: 40.6413, Longitude: -73.7781, IsActive: true},
		{IATACode: "LIN", Name: "Milan Linate", City: "Milan", Country: "Italy", Latitude: 45.4451, Longitude: 9.2767, IsActive: false},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed airports: %v", err)
	}

	h := New(nil, nil, nil, db)
	r := gin.New()
	r.GET("/airports", h.ListAirports)
	r.GET("/airports/in-radius", h.AirportsInRadius)
	return r, db
}

func TestListAirports_ActiveOnlySorted(t *testing.T) {
	r, _ := newAirportRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/airports", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp ListAirportsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 3 || len(resp.Airports) != 3 {
		t.Fatalf("count=%d airports=%d; want 3 active", resp.Count, len(resp.Airports))
	}
	// Inactive LIN excluded, order by IATA code.
	want := []string{"ATH", "JFK", "SKG"}
	for i, a := range resp.Airports {
		if a.IATACode != want[i] {
			t.Fatalf("airports[%d]=%s; want %s", i, a.IATACode, want[i])
		}
	}
}

func TestAirportsInRadius_FiltersAndSorts(t *testing.T) {
	r, _ := newAirportRouter(t)

	// 400 km around Athens covers ATH and SKG but not JFK.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/airports/in-radius?lat=37.98&lon=23.72&radius_km=400", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	var resp AirportsInRadiusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count=%d; want 2 (got %+v)", resp.Count, resp.Airports)
	}
	if resp.Airports[0].IATACode != "ATH" || resp.Airports[1].IATACode != "SKG" {
		t.Fatalf("expected ATH before SKG, got %+v", resp.Airports)
	}
	if resp.Airports[0].DistanceKM <= 0 || resp.Airports[0].DistanceKM >= resp.Airports[1].DistanceKM {
		t.Fatalf("distances not ascending: %+v", resp.Airports)
	}
}

func TestAirportsInRadius_BadInput(t *testing.T) {
	r, _ := newAirportRouter(t)

	cases := []struct {
		name  string
		query string
	}{
		{"missing all", ""},
		{"missing radius", "lat=37.98&lon=23.72"},
		{"non-numeric", "lat=abc&lon=23.72&radius_km=400"},
		{"lat out of range", "lat=95&lon=23.72&radius_km=400"},
		{"zero radius", "lat=37.98&lon=23.72&radius_km=0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/airports/in-radius?"+tc.query, nil)
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status=%d; want 400", w.Code)
			}
		})
	}
}
