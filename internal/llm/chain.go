// Package llm – Chain
//
// The chain holds the providers in their fixed fallback order and walks
// them starting from the configured primary. Any failure (transport error,
// bad status, unparsable answer) advances to the next provider; only when
// every provider has failed does the caller see an error.
package llm

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

// ErrAllProvidersFailed is the terminal failure when no backend produced a
// parsable itinerary list.
var ErrAllProvidersFailed = errors.New("llm: all providers failed")

// Chain is the ordered list of AI backends with one entry point.
type Chain struct {
	providers []Provider
}

// NewChain builds a chain over the providers in fallback order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Generate asks the backends for candidate itineraries, starting at the
// provider named primary (or the head of the order when primary is
// unknown) and falling through on every failure.
func (c *Chain) Generate(ctx context.Context, primary string, req Request) ([]domain.SuggestedItinerary, error) {
	start := 0
	for i, p := range c.providers {
		if p.Name() == primary {
			start = i
			break
		}
	}

	for _, p := range c.providers[start:] {
		raw, err := p.Generate(ctx, req)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("llm provider failed, trying next")
			continue
		}
		itineraries, err := ParseItineraries(raw)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Name()).Msg("llm response unparsable, trying next")
			continue
		}
		return itineraries, nil
	}
	return nil, ErrAllProvidersFailed
}
