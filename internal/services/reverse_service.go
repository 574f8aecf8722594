// Package services – ReverseSearchService
//
// Reverse search answers "from where can I fly cheaply to X": for every
// active origin airport it finds the cheapest fare toward one destination
// inside a short date window, serving from the flight cache first and
// calling the provider cascade only for origins with no valid cache entry.
package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/geo"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

const (
	// maxWindowDays caps the searched departure window.
	maxWindowDays = 7

	// defaultMaxFreshFetches bounds provider calls per request: origins
	// beyond this many cache misses are left for the next search.
	defaultMaxFreshFetches = 50

	// perOriginMaxResults is how many offers one provider lookup may
	// return per origin.
	perOriginMaxResults = 10

	defaultMaxResults = 50
)

// ReverseRequest is the validated input of Search. The three geo filter
// fields are either all set or all nil.
type ReverseRequest struct {
	Destination string
	DateFrom    time.Time
	DateTo      time.Time
	DirectOnly  bool
	// MaxResults caps the response size; 0 means 50.
	MaxResults int

	OriginLat *float64
	OriginLon *float64
	RadiusKM  *int
}

// ReverseResponse is the assembled search result.
type ReverseResponse struct {
	Destination string                 `json:"destination"`
	Results     []domain.ReverseResult `json:"results"`
	// Cached is true only when no provider call was made at all.
	Cached         bool                  `json:"cached"`
	FetchedAt      time.Time             `json:"fetched_at"`
	ProviderStatus domain.ProviderStatus `json:"provider_status"`
}

// ReverseSearchService resolves the cheapest fare per origin toward a
// destination.
type ReverseSearchService struct {
	// DB is the GORM handle for the airport directory and flight cache.
	DB *gorm.DB
	// Flights is the provider cascade.
	Flights FlightSource

	// CacheTTL bounds how old a cache entry may be to count as valid.
	CacheTTL time.Duration
	// MaxFreshFetches overrides the per-request provider call cap; <=0
	// means 50.
	MaxFreshFetches int

	// Now is the clock, overridable in tests. Nil means time.Now.
	Now func() time.Time
}

// NewReverseSearchService constructs a ReverseSearchService.
func NewReverseSearchService(db *gorm.DB, flights FlightSource, cacheTTL time.Duration) *ReverseSearchService {
	return &ReverseSearchService{
		DB:              db,
		Flights:         flights,
		CacheTTL:        cacheTTL,
		MaxFreshFetches: defaultMaxFreshFetches,
	}
}

func (s *ReverseSearchService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// validate rejects malformed requests and normalizes the destination and
// the result cap.
func (r *ReverseRequest) validate() error {
	if !iataRE.MatchString(r.Destination) {
		return validationf("destination must be a 3-letter IATA code")
	}
	r.Destination = strings.ToUpper(r.Destination)
	if r.DateFrom.After(r.DateTo) {
		return validationf("date_from must be on or before date_to")
	}
	if int(r.DateTo.Sub(r.DateFrom).Hours()/24) >= maxWindowDays {
		return validationf("date window must not exceed %d days", maxWindowDays)
	}
	if r.MaxResults == 0 {
		r.MaxResults = defaultMaxResults
	}
	if r.MaxResults < 1 || r.MaxResults > 200 {
		return validationf("max_results must be between 1 and 200")
	}
	return nil
}

// scoredResult pairs one origin's best offer with when its data was
// fetched.
type scoredResult struct {
	offer     domain.FlightOffer
	fetchedAt time.Time
}

// Search finds the cheapest fare toward the destination from every active
// origin airport within the window. Zero fares overall yield ErrNoResults.
func (s *ReverseSearchService) Search(ctx context.Context, req ReverseRequest) (*ReverseResponse, error) {
	tr := otel.Tracer("services/ReverseSearchService")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("destination", req.Destination)),
	)
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.now()

	// Every active origin, optionally restricted to a radius around the
	// caller's point.
	airports, err := repo.ListActiveAirports(ctx, s.DB, req.Destination)
	if err != nil {
		return nil, err
	}
	airportByIATA := make(map[string]domain.Airport, len(airports))
	for _, a := range airports {
		if req.OriginLat != nil && req.OriginLon != nil && req.RadiusKM != nil {
			dist := geo.HaversineKM(*req.OriginLat, *req.OriginLon, a.Latitude, a.Longitude)
			if dist > float64(*req.RadiusKM) {
				continue
			}
		}
		airportByIATA[a.IATACode] = a
	}

	days := dayList(req.DateFrom, req.DateTo)

	// Cheapest valid cached offer per origin across the window.
	cutoff := now.Add(-s.CacheTTL)
	rows, err := repo.ListValidCacheForDestination(ctx, s.DB, req.Destination, days, cutoff)
	if err != nil {
		return nil, err
	}
	cacheBest := make(map[string]scoredResult)
	for _, row := range rows {
		if _, known := airportByIATA[row.Origin]; !known {
			continue
		}
		var offers []domain.FlightOffer
		if err := json.Unmarshal(row.RawOffers, &offers); err != nil || len(offers) == 0 {
			continue
		}
		cheapest := offers[0]
		for _, o := range offers[1:] {
			if o.PriceEUR < cheapest.PriceEUR {
				cheapest = o
			}
		}
		prev, ok := cacheBest[row.Origin]
		if !ok || cheapest.PriceEUR < prev.offer.PriceEUR {
			cacheBest[row.Origin] = scoredResult{offer: cheapest, fetchedAt: row.FetchedAt}
		}
	}

	// Origins the cache cannot answer, provider load bounded per request.
	maxFetches := s.MaxFreshFetches
	if maxFetches <= 0 {
		maxFetches = defaultMaxFreshFetches
	}
	var missing []string
	for iata := range airportByIATA {
		if _, cached := cacheBest[iata]; !cached {
			missing = append(missing, iata)
		}
	}
	sort.Strings(missing)
	if len(missing) > maxFetches {
		missing = missing[:maxFetches]
	}

	freshBest := s.fetchMissing(ctx, req, days, missing, now)

	// Merge, enrich, rank.
	merged := make([]scoredResult, 0, len(cacheBest)+len(freshBest))
	for _, sr := range cacheBest {
		merged = append(merged, sr)
	}
	for _, offer := range freshBest {
		merged = append(merged, scoredResult{offer: offer, fetchedAt: now})
	}
	sortByPrice(merged)
	if len(merged) > req.MaxResults {
		merged = merged[:req.MaxResults]
	}

	if len(merged) == 0 {
		return nil, ErrNoResults
	}

	results := make([]domain.ReverseResult, 0, len(merged))
	fetchedAt := merged[0].fetchedAt
	for _, sr := range merged {
		airport := airportByIATA[sr.offer.Origin]
		results = append(results, domain.ReverseResult{
			Origin:      sr.offer.Origin,
			OriginCity:  airport.City,
			PriceEUR:    sr.offer.PriceEUR,
			Airline:     sr.offer.Airline,
			Departure:   sr.offer.Departure,
			Direct:      sr.offer.Direct,
			DurationMin: sr.offer.DurationMin,
			Latitude:    airport.Latitude,
			Longitude:   airport.Longitude,
		})
		if sr.fetchedAt.Before(fetchedAt) {
			fetchedAt = sr.fetchedAt
		}
	}

	status, err := s.Flights.Status(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("provider status unavailable")
	}

	span.SetAttributes(
		attribute.Int("results", len(results)),
		attribute.Int("fresh_fetches", len(freshBest)),
	)

	return &ReverseResponse{
		Destination:    req.Destination,
		Results:        results,
		Cached:         len(freshBest) == 0,
		FetchedAt:      fetchedAt,
		ProviderStatus: status,
	}, nil
}

// fetchMissing queries the cascade once per missing origin, concurrently,
// caching whatever comes back split per departure day. A failed or
// rate-limited origin is skipped, never surfaced.
func (s *ReverseSearchService) fetchMissing(ctx context.Context, req ReverseRequest, days, missing []string, now time.Time) map[string]domain.FlightOffer {
	freshBest := make(map[string]domain.FlightOffer, len(missing))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, origin := range missing {
		g.Go(func() error {
			offers, _, err := s.Flights.SearchOneWay(gctx, origin, req.Destination, req.DateFrom, req.DateTo, req.DirectOnly, perOriginMaxResults)
			if err != nil {
				log.Warn().Err(err).
					Str("origin", origin).
					Str("destination", req.Destination).
					Msg("provider lookup failed, origin skipped")
				return nil
			}
			if len(offers) == 0 {
				return nil
			}

			for _, day := range days {
				var dayOffers []domain.FlightOffer
				for _, o := range offers {
					if strings.HasPrefix(o.Departure, day) {
						dayOffers = append(dayOffers, o)
					}
				}
				if len(dayOffers) == 0 {
					continue
				}
				if err := repo.UpsertCache(gctx, s.DB, origin, req.Destination, day, dayOffers, now); err != nil {
					log.Warn().Err(err).
						Str("origin", origin).
						Str("day", day).
						Msg("cache write failed")
				}
			}

			cheapest := offers[0]
			for _, o := range offers[1:] {
				if o.PriceEUR < cheapest.PriceEUR {
					cheapest = o
				}
			}
			mu.Lock()
			freshBest[origin] = cheapest
			mu.Unlock()
			return nil
		})
	}
	g.Wait() // tasks never return errors

	return freshBest
}

// dayList expands the window into ISO day strings, at most maxWindowDays.
func dayList(from, to time.Time) []string {
	var days []string
	for d := from; !d.After(to) && len(days) < maxWindowDays; d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

func sortByPrice(rs []scoredResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].offer.PriceEUR < rs[j].offer.PriceEUR
	})
}
