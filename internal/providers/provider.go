// Package providers contains the flight-data provider plugins and the
// quota-aware cascade that orders them. The application layer only ever
// talks to the FlightProvider interface and the Cascade; which concrete
// API answered a query is an implementation detail surfaced solely through
// the provider status payload.
package providers

import (
	"context"
	"sort"
	"time"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

// FlightProvider is the capability contract for one external flight-data
// API. Implementations normalize their payloads into domain.FlightOffer.
type FlightProvider interface {
	// SearchOneWay returns one-way offers from origin to dest departing
	// inside [dateFrom, dateTo], sorted ascending by price and truncated
	// to maxResults.
	SearchOneWay(ctx context.Context, origin, dest string, dateFrom, dateTo time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, error)

	// SearchMultiCity returns the cheapest offer for each leg of an
	// itinerary, one entry per leg in leg order. Legs with no available
	// flight are omitted from the result.
	SearchMultiCity(ctx context.Context, legs []domain.Leg) ([]domain.FlightOffer, error)
}

// sortOffersByPrice orders offers ascending by price in place.
func sortOffersByPrice(offers []domain.FlightOffer) {
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].PriceEUR < offers[j].PriceEUR
	})
}

// cheapestOffer returns the lowest-priced offer of a non-empty slice.
func cheapestOffer(offers []domain.FlightOffer) domain.FlightOffer {
	best := offers[0]
	for _, o := range offers[1:] {
		if o.PriceEUR < best.PriceEUR {
			best = o
		}
	}
	return best
}

// daysInRange expands [from, to] into at most max individual days.
func daysInRange(from, to time.Time, max int) []time.Time {
	var days []time.Time
	for d := from; !d.After(to) && len(days) < max; d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
