// Package providers – Cascade
//
// The cascade tries flight providers in a fixed priority order, skipping
// any whose monthly quota is spent, and stops at the first one that
// answers with data. A provider failure or empty answer advances to the
// next; when every provider fails, the lookup yields no data rather than
// an error, and upstream treats that as "no coverage".
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/ratelimit"
)

// MonthlyWindow is the rolling quota window shared by all flight providers.
const MonthlyWindow = 30 * 24 * time.Hour

// Entry is one provider in the cascade, with its monthly call budget and
// the human-readable note shown while it is the active provider.
type Entry struct {
	Name     string
	Provider FlightProvider
	Limit    int
	Note     string
}

// NoteAllExhausted is reported when every provider's quota is spent.
const NoteAllExhausted = "All flight providers exhausted for this month. Try again next month."

// Cascade is the ordered, quota-aware list of flight providers.
type Cascade struct {
	entries []Entry
	limiter *ratelimit.Limiter
	window  time.Duration
}

// NewCascade builds a cascade over the given entries, in priority order.
func NewCascade(limiter *ratelimit.Limiter, window time.Duration, entries ...Entry) *Cascade {
	return &Cascade{entries: entries, limiter: limiter, window: window}
}

func counterKey(name string) string { return name + ":monthly" }

// InOrder returns the providers that still have quota, preserving priority
// order. An empty result means every provider is exhausted.
func (c *Cascade) InOrder(ctx context.Context) ([]Entry, error) {
	var out []Entry
	for _, e := range c.entries {
		remaining, err := c.limiter.Remaining(ctx, counterKey(e.Name), e.Limit)
		if err != nil {
			return nil, fmt.Errorf("cascade: quota for %s: %w", e.Name, err)
		}
		if remaining > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

// Quotas reports the remaining call budget per provider.
func (c *Cascade) Quotas(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(c.entries))
	for _, e := range c.entries {
		remaining, err := c.limiter.Remaining(ctx, counterKey(e.Name), e.Limit)
		if err != nil {
			return nil, fmt.Errorf("cascade: quota for %s: %w", e.Name, err)
		}
		out[e.Name] = remaining
	}
	return out, nil
}

// Status assembles the observability payload: the provider that would answer
// the next lookup, the remaining quota per provider, and the active note.
func (c *Cascade) Status(ctx context.Context) (domain.ProviderStatus, error) {
	quotas, err := c.Quotas(ctx)
	if err != nil {
		return domain.ProviderStatus{}, err
	}
	status := domain.ProviderStatus{
		ActiveProvider: "none",
		Remaining:      quotas,
		Note:           NoteAllExhausted,
	}
	live, err := c.InOrder(ctx)
	if err != nil {
		return domain.ProviderStatus{}, err
	}
	if len(live) > 0 {
		status.ActiveProvider = live[0].Name
		status.Note = live[0].Note
	}
	return status, nil
}

// allow consumes one quota unit for the entry, reporting whether the call
// may proceed.
func (c *Cascade) allow(ctx context.Context, e Entry) bool {
	ok, err := c.limiter.Allow(ctx, counterKey(e.Name), e.Limit, c.window)
	if err != nil {
		log.Warn().Err(err).Str("provider", e.Name).Msg("rate limiter unavailable, skipping provider")
		return false
	}
	return ok
}

// SearchOneWay runs the cascade policy for a one-way lookup. It returns the
// offers and the name of the provider that produced them; exhaustion of all
// providers yields an empty slice and name "", not an error.
func (c *Cascade) SearchOneWay(ctx context.Context, origin, dest string, dateFrom, dateTo time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, string, error) {
	for _, e := range c.entries {
		if !c.allow(ctx, e) {
			continue
		}
		offers, err := e.Provider.SearchOneWay(ctx, origin, dest, dateFrom, dateTo, directOnly, maxResults)
		if err != nil {
			log.Warn().Err(err).
				Str("provider", e.Name).
				Str("origin", origin).
				Str("destination", dest).
				Msg("flight provider failed, trying next")
			continue
		}
		if len(offers) == 0 {
			continue
		}
		return offers, e.Name, nil
	}
	return nil, "", nil
}

// SearchMultiCity runs the cascade policy for a multi-city lookup. The
// first provider returning at least one priced leg wins.
func (c *Cascade) SearchMultiCity(ctx context.Context, legs []domain.Leg) ([]domain.FlightOffer, string, error) {
	for _, e := range c.entries {
		if !c.allow(ctx, e) {
			continue
		}
		offers, err := e.Provider.SearchMultiCity(ctx, legs)
		if err != nil {
			log.Warn().Err(err).
				Str("provider", e.Name).
				Int("legs", len(legs)).
				Msg("flight provider failed, trying next")
			continue
		}
		if len(offers) == 0 {
			continue
		}
		return offers, e.Name, nil
	}
	return nil, "", nil
}
