// Package services – ItineraryService
//
// ItineraryService runs the smart multi-city pipeline: compute the
// explorable area, ask the AI chain for candidate loops, verify every leg
// against real fares (bounded parallelism), filter by budget, rank by
// price and return the top five. Candidates that cannot be fully priced
// are dropped silently; only an empty final result is an error.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/llm"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

// FlightSource is the quota-aware flight data backend shared by both
// search flows. Exhaustion of every underlying provider yields empty
// results, not an error.
type FlightSource interface {
	// SearchOneWay returns offers sorted by ascending price plus the name
	// of the provider that answered.
	SearchOneWay(ctx context.Context, origin, dest string, dateFrom, dateTo time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, string, error)

	// SearchMultiCity returns the cheapest offer per leg; legs with no
	// availability are omitted.
	SearchMultiCity(ctx context.Context, legs []domain.Leg) ([]domain.FlightOffer, string, error)

	// Status reports the active provider and remaining quotas.
	Status(ctx context.Context) (domain.ProviderStatus, error)
}

// RouteGenerator produces candidate itineraries, falling back across AI
// backends starting at the configured primary.
type RouteGenerator interface {
	Generate(ctx context.Context, primary string, req llm.Request) ([]domain.SuggestedItinerary, error)
}

// maxAirportsForLLM caps the airport list sent to the AI so large areas
// do not blow up the prompt. The list is already distance-sorted, so the
// cap keeps the nearest ones.
const maxAirportsForLLM = 100

// defaultLegCacheTTL bounds cached leg fares when no TTL is configured.
const defaultLegCacheTTL = 6 * time.Hour

// legDayFormat is the departure-day key format of the flight cache.
const legDayFormat = "2006-01-02"

// majorCarrierHint steers the AI toward full-service hubs when the only
// flight data source left covers no low-cost carriers.
const majorCarrierHint = "Flight data is currently limited to major carriers " +
	"(Lufthansa, Air France, KLM, Iberia, SWISS, LOT) - no Ryanair, easyJet or Wizz Air. " +
	"Prefer hub airports such as FRA, MUC, CDG, AMS, MAD, BCN, VIE, ZRH, WAW and avoid " +
	"secondary airports served mainly by low-cost carriers (e.g. BGY, CRL, HHN, BVA, NYO)."

// SmartMultiRequest is the validated input of SmartMultiSearch.
type SmartMultiRequest struct {
	Origin             string
	TripDurationDays   int
	BudgetPerPersonEUR float64
	Travelers          int
	DateFrom           time.Time
	DateTo             time.Time
	DirectOnly         bool
}

// SmartMultiResponse carries the ranked itineraries plus provider
// observability data.
type SmartMultiResponse struct {
	Origin         string                   `json:"origin"`
	Itineraries    []domain.RankedItinerary `json:"itineraries"`
	ProviderStatus domain.ProviderStatus    `json:"provider_status"`
}

// ItineraryService orchestrates the smart multi-city pipeline.
type ItineraryService struct {
	// DB is the GORM handle for the per-leg flight cache. Nil disables
	// cache reads and writes.
	DB *gorm.DB
	// Area computes the explorable radius and reachable airports.
	Area *AreaService
	// Generator is the AI fallback chain.
	Generator RouteGenerator
	// Flights is the provider cascade.
	Flights FlightSource

	// PrimaryLLM names the AI backend the chain starts at.
	PrimaryLLM string
	// PricingConcurrency bounds parallel pricing tasks; <=0 means 3.
	PricingConcurrency int
	// CacheTTL bounds how old a cached leg fare may count as valid;
	// <=0 means 6 hours.
	CacheTTL time.Duration

	// Now is the clock, overridable in tests. Nil means time.Now.
	Now func() time.Time
}

// NewItineraryService constructs an ItineraryService with the default
// pricing concurrency.
func NewItineraryService(db *gorm.DB, area *AreaService, gen RouteGenerator, flights FlightSource, primaryLLM string, cacheTTL time.Duration) *ItineraryService {
	return &ItineraryService{
		DB:                 db,
		Area:               area,
		Generator:          gen,
		Flights:            flights,
		PrimaryLLM:         primaryLLM,
		PricingConcurrency: 3,
		CacheTTL:           cacheTTL,
	}
}

func (s *ItineraryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

var iataRE = regexp.MustCompile(`^[A-Za-z]{3}$`)

// validate rejects malformed requests before any pipeline stage runs and
// normalizes the origin code to upper case.
func (r *SmartMultiRequest) validate() error {
	if !iataRE.MatchString(r.Origin) {
		return validationf("origin must be a 3-letter IATA code")
	}
	r.Origin = strings.ToUpper(r.Origin)
	if r.TripDurationDays < 5 || r.TripDurationDays > 25 {
		return validationf("trip_duration_days must be between 5 and 25")
	}
	if r.BudgetPerPersonEUR <= 0 {
		return validationf("budget_per_person_eur must be positive")
	}
	if r.Travelers < 1 {
		return validationf("travelers must be at least 1")
	}
	if r.DateFrom.After(r.DateTo) {
		return validationf("date_from must be on or before date_to")
	}
	window := int(r.DateTo.Sub(r.DateFrom).Hours()/24) + 1
	if window < r.TripDurationDays {
		return validationf("date window is shorter than the trip duration")
	}
	return nil
}

// pricedItinerary is one candidate that survived the pricing stage.
type pricedItinerary struct {
	suggestion     domain.SuggestedItinerary
	offers         []domain.FlightOffer
	totalPerPerson float64
}

// SmartMultiSearch runs the five pipeline stages and returns up to five
// itineraries ranked by ascending per-person price.
func (s *ItineraryService) SmartMultiSearch(ctx context.Context, req SmartMultiRequest) (*SmartMultiResponse, error) {
	tr := otel.Tracer("services/ItineraryService")
	ctx, span := tr.Start(ctx, "SmartMultiSearch",
		trace.WithAttributes(
			attribute.String("origin", req.Origin),
			attribute.Int("duration_days", req.TripDurationDays),
			attribute.Int("travelers", req.Travelers),
		),
	)
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	// Stage 1: explorable area.
	area, err := s.Area.CalculateArea(ctx, req.Origin, req.TripDurationDays)
	if err != nil {
		return nil, err
	}

	// Stage 2: AI candidates.
	suggestions, err := s.generate(ctx, req, area)
	if err != nil {
		return nil, err
	}

	// Stage 3: structural screen, then price against real fares.
	invalid := 0
	valid := make([]domain.SuggestedItinerary, 0, len(suggestions))
	for _, sug := range suggestions {
		if !isValidRoute(sug.Route, req.Origin) {
			log.Debug().Strs("route", sug.Route).Msg("discarding invalid AI route")
			invalid++
			continue
		}
		valid = append(valid, sug)
	}
	priced := s.priceAll(ctx, req, valid)

	// Stage 4: budget filter + ranking.
	noCoverage := len(valid) - len(priced)
	overBudget := 0
	kept := priced[:0]
	for _, p := range priced {
		if p.totalPerPerson > req.BudgetPerPersonEUR {
			overBudget++
			continue
		}
		kept = append(kept, p)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].totalPerPerson < kept[j].totalPerPerson
	})
	if len(kept) > 5 {
		kept = kept[:5]
	}

	// Stage 5: response.
	if len(kept) == 0 {
		return nil, &ExhaustionError{Invalid: invalid, NoCoverage: noCoverage, OverBudget: overBudget}
	}

	itineraries := make([]domain.RankedItinerary, 0, len(kept))
	for rank, p := range kept {
		legs := make([]domain.PricedLeg, 0, len(p.offers))
		for _, o := range p.offers {
			legs = append(legs, domain.PricedLeg{
				From:        o.Origin,
				To:          o.Destination,
				PriceEUR:    o.PriceEUR,
				Airline:     o.Airline,
				Departure:   o.Departure,
				DurationMin: o.DurationMin,
				Direct:      o.Direct,
			})
		}
		numStopsInRoute := len(p.suggestion.Route) - 2
		itineraries = append(itineraries, domain.RankedItinerary{
			Rank:              rank + 1,
			Route:             p.suggestion.Route,
			TotalPerPersonEUR: roundCents(p.totalPerPerson),
			TotalAllEUR:       roundCents(p.totalPerPerson * float64(req.Travelers)),
			Legs:              legs,
			AINotes:           p.suggestion.Reasoning,
			DaysPerStop:       daysPerStop(req.TripDurationDays, numStopsInRoute),
		})
	}

	status, err := s.Flights.Status(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("provider status unavailable")
	}

	span.SetAttributes(attribute.Int("itineraries", len(itineraries)))

	return &SmartMultiResponse{
		Origin:         req.Origin,
		Itineraries:    itineraries,
		ProviderStatus: status,
	}, nil
}

// generate runs the AI stage: budget split across legs, season from the
// departure month, nearest airports only, plus a carrier hint when the
// active flight provider covers no low-cost carriers.
func (s *ItineraryService) generate(ctx context.Context, req SmartMultiRequest, area *AreaResult) ([]domain.SuggestedItinerary, error) {
	numLegs := area.NumStops + 1
	budgetPerLeg := req.BudgetPerPersonEUR / float64(numLegs)

	airports := area.Airports
	if len(airports) > maxAirportsForLLM {
		airports = airports[:maxAirportsForLLM]
	}
	available := make([]string, 0, len(airports))
	for _, a := range airports {
		available = append(available, fmt.Sprintf("%s (%s)", a.IATACode, a.City))
	}

	hint := ""
	if status, err := s.Flights.Status(ctx); err == nil && status.ActiveProvider == "amadeus" {
		hint = majorCarrierHint
	}

	suggestions, err := s.Generator.Generate(ctx, s.PrimaryLLM, llm.Request{
		Origin:            req.Origin,
		DurationDays:      req.TripDurationDays,
		BudgetPerLegEUR:   budgetPerLeg,
		Season:            seasonFromDate(req.DateFrom),
		NumStops:          area.NumStops,
		AvailableAirports: available,
		ProviderHint:      hint,
	})
	if err != nil {
		if errors.Is(err, llm.ErrAllProvidersFailed) {
			return nil, fmt.Errorf("%w: %v", ErrAllLLMFailed, err)
		}
		return nil, err
	}
	return suggestions, nil
}

// priceAll prices every candidate concurrently, at most PricingConcurrency
// at a time. A pricing failure or panic drops that candidate only.
func (s *ItineraryService) priceAll(ctx context.Context, req SmartMultiRequest, suggestions []domain.SuggestedItinerary) []pricedItinerary {
	concurrency := s.PricingConcurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	results := make([]*pricedItinerary, len(suggestions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, sug := range suggestions {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Warn().Interface("panic", r).
						Strs("route", sug.Route).
						Msg("pricing task panicked, candidate dropped")
				}
			}()
			results[i] = s.priceOne(gctx, req, sug)
			return nil
		})
	}
	g.Wait() // tasks never return errors

	priced := make([]pricedItinerary, 0, len(results))
	for _, r := range results {
		if r != nil {
			priced = append(priced, *r)
		}
	}
	return priced
}

// priceOne verifies one structurally valid candidate. Nil means a leg
// without availability or a provider failure. Legs are served from the
// flight cache when a fresh entry exists; fares fetched from the cascade
// are written back per leg, so even a candidate that later fails the
// budget filter leaves cache entries behind for the next search.
func (s *ItineraryService) priceOne(ctx context.Context, req SmartMultiRequest, sug domain.SuggestedItinerary) *pricedItinerary {
	numLegs := len(sug.Route) - 1
	dates := legDates(req.DateFrom, req.TripDurationDays, numLegs)
	legs := make([]domain.Leg, 0, numLegs)
	for i := 0; i < numLegs; i++ {
		legs = append(legs, domain.Leg{
			Origin:      sug.Route[i],
			Destination: sug.Route[i+1],
			Date:        dates[i],
		})
	}

	now := s.now()
	legOffers := make([]*domain.FlightOffer, numLegs)
	missing := make([]domain.Leg, 0, numLegs)
	for i, leg := range legs {
		if offer, ok := s.cachedLegFare(ctx, leg, now); ok {
			legOffers[i] = offer
			continue
		}
		missing = append(missing, leg)
	}

	if len(missing) > 0 {
		fresh, _, err := s.Flights.SearchMultiCity(ctx, missing)
		if err != nil {
			log.Warn().Err(err).Strs("route", sug.Route).Msg("pricing failed, candidate dropped")
			return nil
		}
		// Leg pairs are unique within a valid route, so (origin, dest)
		// maps each fetched offer back to its slot.
		slotByPair := make(map[string]int, numLegs)
		for i, leg := range legs {
			slotByPair[leg.Origin+leg.Destination] = i
		}
		for _, o := range fresh {
			i, ok := slotByPair[o.Origin+o.Destination]
			if !ok {
				continue
			}
			offer := o
			legOffers[i] = &offer
			s.storeLegFare(ctx, legs[i], offer, now)
		}
	}

	offers := make([]domain.FlightOffer, 0, numLegs)
	total := 0.0
	for _, o := range legOffers {
		// A leg with no fare means the itinerary cannot be completed.
		if o == nil {
			return nil
		}
		offers = append(offers, *o)
		total += o.PriceEUR
	}
	return &pricedItinerary{suggestion: sug, offers: offers, totalPerPerson: total}
}

// cachedLegFare looks one leg up in the flight cache and returns the
// cheapest fresh offer for its departure day.
func (s *ItineraryService) cachedLegFare(ctx context.Context, leg domain.Leg, now time.Time) (*domain.FlightOffer, bool) {
	if s.DB == nil {
		return nil, false
	}
	ttl := s.CacheTTL
	if ttl <= 0 {
		ttl = defaultLegCacheTTL
	}
	offers, _, err := repo.GetCachedOffers(ctx, s.DB, leg.Origin, leg.Destination, leg.Date.Format(legDayFormat), now.Add(-ttl))
	if err != nil || len(offers) == 0 {
		return nil, false
	}
	cheapest := offers[0]
	for _, o := range offers[1:] {
		if o.PriceEUR < cheapest.PriceEUR {
			cheapest = o
		}
	}
	return &cheapest, true
}

// storeLegFare writes one fetched fare back to the cache. A failed write
// is logged and skipped.
func (s *ItineraryService) storeLegFare(ctx context.Context, leg domain.Leg, offer domain.FlightOffer, now time.Time) {
	if s.DB == nil {
		return
	}
	day := leg.Date.Format(legDayFormat)
	if err := repo.UpsertCache(ctx, s.DB, leg.Origin, leg.Destination, day, []domain.FlightOffer{offer}, now); err != nil {
		log.Warn().Err(err).
			Str("origin", leg.Origin).
			Str("destination", leg.Destination).
			Str("day", day).
			Msg("cache write failed")
	}
}

// isValidRoute checks the structure of an AI route: at least origin, one
// stop and the return; starts and ends at the origin; no duplicate
// intermediate stop.
func isValidRoute(route []string, origin string) bool {
	if len(route) < 3 {
		return false
	}
	if route[0] != origin || route[len(route)-1] != origin {
		return false
	}
	seen := make(map[string]struct{}, len(route)-2)
	for _, code := range route[1 : len(route)-1] {
		if _, dup := seen[code]; dup {
			return false
		}
		seen[code] = struct{}{}
	}
	return true
}

// legDates spreads the departure dates evenly over the trip, first leg on
// dateFrom.
func legDates(dateFrom time.Time, durationDays, numLegs int) []time.Time {
	perLeg := durationDays / numLegs
	dates := make([]time.Time, numLegs)
	for i := range dates {
		dates[i] = dateFrom.AddDate(0, 0, i*perLeg)
	}
	return dates
}

// daysPerStop splits the trip days across the intermediate stops, the
// remainder going to the earliest stops. 13 days over 3 stops is [5 4 4].
func daysPerStop(durationDays, numStops int) []int {
	if numStops <= 0 {
		return []int{}
	}
	base := durationDays / numStops
	remainder := durationDays % numStops
	out := make([]int, numStops)
	for i := range out {
		out[i] = base
		if i < remainder {
			out[i]++
		}
	}
	return out
}

// seasonFromDate maps the departure month to a season name for the AI
// prompt.
func seasonFromDate(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "autumn"
	default:
		return "winter"
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
