package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/llm"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// seedAirports inserts a small Mediterranean directory around Catania.
// LIN is inactive, JFK is far outside any realistic radius.
func seedAirports(t *testing.T, db *gorm.DB) {
	t.Helper()

	airports := []domain.Airport{
		{IATACode: "CTA", Name: "Catania Fontanarossa", City: "Catania", Country: "IT", Latitude: 37.4668, Longitude: 15.0664, IsActive: true},
		{IATACode: "ATH", Name: "Athens International", City: "Athens", Country: "GR", Latitude: 37.9364, Longitude: 23.9445, IsActive: true},
		{IATACode: "SOF", Name: "Sofia", City: "Sofia", Country: "BG", Latitude: 42.6952, Longitude: 23.4062, IsActive: true},
		{IATACode: "LIN", Name: "Milan Linate", City: "Milan", Country: "IT", Latitude: 45.4451, Longitude: 9.2767, IsActive: false},
		{IATACode: "JFK", Name: "John F. Kennedy", City: "New York", Country: "US", Latitude: 40.6413, Longitude: -73.7781, IsActive: true},
	}
	for _, a := range airports {
		if err := db.Create(&a).Error; err != nil {
			t.Fatalf("seed airport %s: %v", a.IATACode, err)
		}
	}
}

// fakeFlightSource implements FlightSource with hookable behavior.
type fakeFlightSource struct {
	mu sync.Mutex

	oneWay func(origin string) ([]domain.FlightOffer, error)
	multi  func(legs []domain.Leg) ([]domain.FlightOffer, error)

	status    domain.ProviderStatus
	statusErr error

	oneWayCalls []string
	multiCalls  [][]domain.Leg
}

func (f *fakeFlightSource) SearchOneWay(ctx context.Context, origin, dest string, dateFrom, dateTo time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, string, error) {
	f.mu.Lock()
	f.oneWayCalls = append(f.oneWayCalls, origin)
	f.mu.Unlock()
	if f.oneWay == nil {
		return nil, "", nil
	}
	offers, err := f.oneWay(origin)
	if err != nil || len(offers) == 0 {
		return nil, "", err
	}
	return offers, "serpapi", nil
}

func (f *fakeFlightSource) SearchMultiCity(ctx context.Context, legs []domain.Leg) ([]domain.FlightOffer, string, error) {
	f.mu.Lock()
	f.multiCalls = append(f.multiCalls, legs)
	f.mu.Unlock()
	if f.multi == nil {
		return nil, "", nil
	}
	offers, err := f.multi(legs)
	if err != nil || len(offers) == 0 {
		return nil, "", err
	}
	return offers, "serpapi", nil
}

func (f *fakeFlightSource) Status(ctx context.Context) (domain.ProviderStatus, error) {
	return f.status, f.statusErr
}

// fakeGenerator implements RouteGenerator and captures the request.
type fakeGenerator struct {
	suggestions []domain.SuggestedItinerary
	err         error

	gotPrimary string
	gotReq     llm.Request
}

func (g *fakeGenerator) Generate(ctx context.Context, primary string, req llm.Request) ([]domain.SuggestedItinerary, error) {
	g.gotPrimary = primary
	g.gotReq = req
	return g.suggestions, g.err
}

// constantMulti prices every leg at the given per-leg fare.
func constantMulti(perLeg float64) func(legs []domain.Leg) ([]domain.FlightOffer, error) {
	return func(legs []domain.Leg) ([]domain.FlightOffer, error) {
		out := make([]domain.FlightOffer, 0, len(legs))
		for _, l := range legs {
			out = append(out, domain.FlightOffer{
				Origin:      l.Origin,
				Destination: l.Destination,
				Departure:   l.Date.Format("2006-01-02") + "T10:00",
				PriceEUR:    perLeg,
				Airline:     "Test Air",
				Direct:      true,
				DurationMin: 120,
			})
		}
		return out, nil
	}
}
