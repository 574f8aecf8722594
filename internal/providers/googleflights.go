// Package providers – GoogleFlightsProvider
//
// Primary flight-data provider, backed by the SerpAPI Google Flights
// engine. It covers the European low-cost carriers (Ryanair, Wizz Air,
// easyJet) the authoritative APIs miss, which makes it the first provider
// in the cascade despite its small monthly quota.
//
// SerpAPI has no native date-range search, so a range query fans out into
// one request per day (at most seven) and merges the results. Individual
// day failures are tolerated; the merged list is price-sorted and truncated.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

const defaultSerpAPIBaseURL = "https://serpapi.com/search.json"

// maxDaysInRange bounds how many individual days a range search expands to.
const maxDaysInRange = 7

// GoogleFlightsProvider queries Google Flights data through SerpAPI.
type GoogleFlightsProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleFlightsProvider constructs the provider with an injected HTTP
// client. Pass baseURL "" for the production SerpAPI endpoint.
func NewGoogleFlightsProvider(apiKey, baseURL string, client *http.Client) *GoogleFlightsProvider {
	if baseURL == "" {
		baseURL = defaultSerpAPIBaseURL
	}
	return &GoogleFlightsProvider{apiKey: apiKey, baseURL: baseURL, client: client}
}

// serpFlight is one flight segment inside a SerpAPI result item.
type serpFlight struct {
	DepartureAirport struct {
		ID   string `json:"id"`
		Time string `json:"time"`
	} `json:"departure_airport"`
	ArrivalAirport struct {
		ID string `json:"id"`
	} `json:"arrival_airport"`
	Airline string `json:"airline"`
}

// serpItem is one priced itinerary in best_flights / other_flights.
type serpItem struct {
	Flights       []serpFlight `json:"flights"`
	TotalDuration int          `json:"total_duration"`
	Price         float64      `json:"price"`
}

// serpResponse is the subset of the SerpAPI payload this provider reads.
type serpResponse struct {
	BestFlights  []serpItem `json:"best_flights"`
	OtherFlights []serpItem `json:"other_flights"`
}

// parseSerpItem normalizes one SerpAPI item into a FlightOffer. Items with
// no segments are dropped.
func parseSerpItem(item serpItem, origin, dest string) (domain.FlightOffer, bool) {
	if len(item.Flights) == 0 {
		return domain.FlightOffer{}, false
	}
	first := item.Flights[0]
	last := item.Flights[len(item.Flights)-1]

	o := first.DepartureAirport.ID
	if o == "" {
		o = origin
	}
	d := last.ArrivalAirport.ID
	if d == "" {
		d = dest
	}

	// SerpAPI reports times as "2026-04-01 07:15"; normalize to ISO.
	departure := strings.Replace(first.DepartureAirport.Time, " ", "T", 1)

	airline := first.Airline
	if airline == "" {
		airline = "Unknown"
	}

	return domain.FlightOffer{
		Origin:      o,
		Destination: d,
		Departure:   departure,
		PriceEUR:    item.Price,
		Airline:     airline,
		Direct:      len(item.Flights) == 1,
		DurationMin: item.TotalDuration,
	}, true
}

// fetchForDate runs one SerpAPI request for a single departure day.
func (p *GoogleFlightsProvider) fetchForDate(ctx context.Context, origin, dest string, day time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, error) {
	q := url.Values{}
	q.Set("engine", "google_flights")
	q.Set("departure_id", origin)
	q.Set("arrival_id", dest)
	q.Set("outbound_date", day.Format("2006-01-02"))
	q.Set("currency", "EUR")
	q.Set("hl", "en")
	q.Set("type", "2") // one-way
	q.Set("adults", "1")
	q.Set("api_key", p.apiKey)
	if directOnly {
		q.Set("stops", "0")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi: unexpected status %d", resp.StatusCode)
	}

	var payload serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("serpapi: decode response: %w", err)
	}

	var offers []domain.FlightOffer
	for _, section := range [][]serpItem{payload.BestFlights, payload.OtherFlights} {
		for _, item := range section {
			if offer, ok := parseSerpItem(item, origin, dest); ok {
				offers = append(offers, offer)
			}
		}
	}
	sortOffersByPrice(offers)
	if len(offers) > maxResults {
		offers = offers[:maxResults]
	}
	return offers, nil
}

// SearchOneWay fans out one request per day in the range (≤7 days) and
// merges the per-day results. A failed day contributes nothing instead of
// failing the whole search.
func (p *GoogleFlightsProvider) SearchOneWay(ctx context.Context, origin, dest string, dateFrom, dateTo time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, error) {
	days := daysInRange(dateFrom, dateTo, maxDaysInRange)

	perDay := make([][]domain.FlightOffer, len(days))
	var g errgroup.Group
	for i, day := range days {
		g.Go(func() error {
			if offers, err := p.fetchForDate(ctx, origin, dest, day, directOnly, maxResults); err == nil {
				perDay[i] = offers
			}
			return nil
		})
	}
	_ = g.Wait() // tasks never return errors

	var offers []domain.FlightOffer
	for _, dayOffers := range perDay {
		offers = append(offers, dayOffers...)
	}
	sortOffersByPrice(offers)
	if len(offers) > maxResults {
		offers = offers[:maxResults]
	}
	return offers, nil
}

// SearchMultiCity fetches every leg concurrently and keeps the cheapest
// offer per leg. Legs whose fetch fails or comes back empty are omitted.
func (p *GoogleFlightsProvider) SearchMultiCity(ctx context.Context, legs []domain.Leg) ([]domain.FlightOffer, error) {
	perLeg := make([]*domain.FlightOffer, len(legs))
	var g errgroup.Group
	for i, leg := range legs {
		g.Go(func() error {
			offers, err := p.fetchForDate(ctx, leg.Origin, leg.Destination, leg.Date, false, 5)
			if err == nil && len(offers) > 0 {
				best := cheapestOffer(offers)
				perLeg[i] = &best
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.FlightOffer
	for _, o := range perLeg {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}
