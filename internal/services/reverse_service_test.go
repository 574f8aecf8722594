package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

var reverseNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func baseReverseRequest() ReverseRequest {
	return ReverseRequest{
		Destination: "CTA",
		DateFrom:    time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC),
		DateTo:      time.Date(2026, 4, 4, 0, 0, 0, 0, time.UTC),
		MaxResults:  50,
	}
}

func newReverseService(t *testing.T, flights *fakeFlightSource) *ReverseSearchService {
	t.Helper()
	db := newServiceDB(t)
	seedAirports(t, db)
	s := NewReverseSearchService(db, flights, 6*time.Hour)
	s.Now = func() time.Time { return reverseNow }
	return s
}

func cacheOffer(origin string, price float64, day string) []domain.FlightOffer {
	return []domain.FlightOffer{{
		Origin:      origin,
		Destination: "CTA",
		Departure:   day + "T09:30",
		PriceEUR:    price,
		Airline:     "Wizz Air",
		Direct:      true,
		DurationMin: 130,
	}}
}

func TestReverseSearch_AllFromCache(t *testing.T) {
	flights := &fakeFlightSource{status: domain.ProviderStatus{ActiveProvider: "serpapi", Remaining: map[string]int{"serpapi": 200}}}
	s := newReverseService(t, flights)

	athFetched := reverseNow.Add(-2 * time.Hour)
	sofFetched := reverseNow.Add(-1 * time.Hour)
	if err := repo.UpsertCache(context.Background(), s.DB, "ATH", "CTA", "2026-04-02", cacheOffer("ATH", 45, "2026-04-02"), athFetched); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := repo.UpsertCache(context.Background(), s.DB, "SOF", "CTA", "2026-04-03", cacheOffer("SOF", 30, "2026-04-03"), sofFetched); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	// JFK has no cache entry; the empty fake provider yields nothing, so it
	// is skipped silently and the response still counts as all-cached.

	resp, err := s.Search(context.Background(), baseReverseRequest())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if !resp.Cached {
		t.Error("Cached = false with zero fresh fetches")
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	if resp.Results[0].Origin != "SOF" || resp.Results[0].PriceEUR != 30 {
		t.Errorf("cheapest = %+v", resp.Results[0])
	}
	if resp.Results[1].Origin != "ATH" {
		t.Errorf("second = %+v", resp.Results[1])
	}
	if resp.Results[0].OriginCity != "Sofia" || resp.Results[0].Latitude == 0 {
		t.Errorf("result not enriched: %+v", resp.Results[0])
	}
	// Earliest fetch timestamp across the returned cache rows.
	if !resp.FetchedAt.Equal(athFetched) {
		t.Errorf("FetchedAt = %v, want %v", resp.FetchedAt, athFetched)
	}
	if resp.ProviderStatus.ActiveProvider != "serpapi" {
		t.Errorf("provider status = %+v", resp.ProviderStatus)
	}
}

func TestReverseSearch_FetchesMissingOriginsAndCaches(t *testing.T) {
	flights := &fakeFlightSource{
		oneWay: func(origin string) ([]domain.FlightOffer, error) {
			switch origin {
			case "ATH":
				return []domain.FlightOffer{
					{Origin: "ATH", Destination: "CTA", Departure: "2026-04-02T06:00", PriceEUR: 55, Airline: "Aegean", Direct: true, DurationMin: 95},
					{Origin: "ATH", Destination: "CTA", Departure: "2026-04-03T18:30", PriceEUR: 25, Airline: "Ryanair", Direct: true, DurationMin: 100},
				}, nil
			case "SOF":
				return nil, errors.New("provider down")
			default:
				return nil, nil
			}
		},
	}
	s := newReverseService(t, flights)

	resp, err := s.Search(context.Background(), baseReverseRequest())
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if resp.Cached {
		t.Error("Cached = true after a fresh fetch")
	}
	// ATH answered, SOF failed (skipped), JFK had no availability.
	if len(resp.Results) != 1 {
		t.Fatalf("results = %+v, want just ATH", resp.Results)
	}
	if resp.Results[0].Origin != "ATH" || resp.Results[0].PriceEUR != 25 {
		t.Errorf("result = %+v", resp.Results[0])
	}
	if !resp.FetchedAt.Equal(reverseNow) {
		t.Errorf("FetchedAt = %v, want now", resp.FetchedAt)
	}

	// Fresh offers were cached split per departure day.
	cutoff := reverseNow.Add(-time.Hour)
	for day, wantPrice := range map[string]float64{"2026-04-02": 55, "2026-04-03": 25} {
		offers, _, err := repo.GetCachedOffers(context.Background(), s.DB, "ATH", "CTA", day, cutoff)
		if err != nil {
			t.Fatalf("cache readback for %s: %v", day, err)
		}
		if len(offers) != 1 || offers[0].PriceEUR != wantPrice {
			t.Errorf("cached offers for %s = %+v", day, offers)
		}
	}
}

func TestReverseSearch_CacheWinsOverFetchForSameOrigin(t *testing.T) {
	flights := &fakeFlightSource{}
	s := newReverseService(t, flights)

	for _, origin := range []string{"ATH", "SOF", "JFK"} {
		if err := repo.UpsertCache(context.Background(), s.DB, origin, "CTA", "2026-04-02", cacheOffer(origin, 40, "2026-04-02"), reverseNow); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	if _, err := s.Search(context.Background(), baseReverseRequest()); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(flights.oneWayCalls) != 0 {
		t.Errorf("provider called for cached origins: %v", flights.oneWayCalls)
	}
}

func TestReverseSearch_RadiusFilter(t *testing.T) {
	flights := &fakeFlightSource{}
	s := newReverseService(t, flights)

	for _, origin := range []string{"ATH", "SOF", "JFK"} {
		if err := repo.UpsertCache(context.Background(), s.DB, origin, "CTA", "2026-04-02", cacheOffer(origin, 40, "2026-04-02"), reverseNow); err != nil {
			t.Fatalf("seed cache: %v", err)
		}
	}

	req := baseReverseRequest()
	lat, lon, radius := 37.9364, 23.9445, 300 // around Athens
	req.OriginLat, req.OriginLon, req.RadiusKM = &lat, &lon, &radius

	resp, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Origin != "ATH" {
		t.Errorf("results = %+v, want just ATH", resp.Results)
	}
}

func TestReverseSearch_MaxResultsTruncates(t *testing.T) {
	flights := &fakeFlightSource{}
	s := newReverseService(t, flights)

	if err := repo.UpsertCache(context.Background(), s.DB, "ATH", "CTA", "2026-04-02", cacheOffer("ATH", 20, "2026-04-02"), reverseNow); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	if err := repo.UpsertCache(context.Background(), s.DB, "SOF", "CTA", "2026-04-02", cacheOffer("SOF", 50, "2026-04-02"), reverseNow); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	req := baseReverseRequest()
	req.MaxResults = 1

	resp, err := s.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Origin != "ATH" {
		t.Errorf("results = %+v, want cheapest only", resp.Results)
	}
}

func TestReverseSearch_NoResults(t *testing.T) {
	s := newReverseService(t, &fakeFlightSource{})

	if _, err := s.Search(context.Background(), baseReverseRequest()); !errors.Is(err, ErrNoResults) {
		t.Fatalf("err = %v, want ErrNoResults", err)
	}
}

func TestReverseSearch_Validation(t *testing.T) {
	s := newReverseService(t, &fakeFlightSource{})

	mutations := map[string]func(*ReverseRequest){
		"bad destination":  func(r *ReverseRequest) { r.Destination = "CATANIA" },
		"reversed dates":   func(r *ReverseRequest) { r.DateFrom, r.DateTo = r.DateTo, r.DateFrom },
		"window too wide":  func(r *ReverseRequest) { r.DateTo = r.DateFrom.AddDate(0, 0, 8) },
		"max results high": func(r *ReverseRequest) { r.MaxResults = 500 },
		"max results neg":  func(r *ReverseRequest) { r.MaxResults = -1 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := baseReverseRequest()
			mutate(&req)
			_, err := s.Search(context.Background(), req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}
