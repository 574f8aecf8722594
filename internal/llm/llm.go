// Package llm contains the AI route-generation providers and the fallback
// chain that orders them. Every provider receives the same system prompt
// and its raw text answer goes through the same parser, so the rest of the
// application sees one output shape regardless of which backend answered.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

// Request carries everything a provider needs to generate candidate routes.
type Request struct {
	Origin            string
	DurationDays      int
	BudgetPerLegEUR   float64
	Season            string
	NumStops          int
	AvailableAirports []string // "IATA (City)" strings, nearest first

	// ProviderHint is an optional constraint appended to the prompt, e.g.
	// steering routes toward major-carrier hubs when the low-cost data
	// source is exhausted. Empty means no constraint.
	ProviderHint string
}

// Provider is one AI backend. Generate returns the raw model text; parsing
// into itineraries is shared by the chain.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// systemPrompt is shared verbatim by every provider.
const systemPrompt = `You are an expert on travel and low-cost flight routes in Europe.
Given a starting point, a duration, a per-leg budget and a list of
reachable airports, generate 8-10 optimized multi-city itineraries.

Answer ONLY with JSON, no preamble and no markdown.
Format:
[
  {
    "route": ["CTA", "ATH", "SOF", "BUD", "CTA"],
    "reasoning": "Balkan loop with excellent low-cost connections",
    "estimated_difficulty": "easy",
    "best_season": ["apr", "may", "jun", "sep", "oct"]
  }
]

Criteria:
- Prefer routes with known low-cost connections (Ryanair, Wizz Air, easyJet)
- Every stop must make geographic sense (no zig-zag)
- Account for seasonality
- Respect the per-leg budget
- The last flight must return to the origin`

// buildUserPrompt renders the request into the user message.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Origin: %s\n", req.Origin)
	fmt.Fprintf(&b, "Trip duration: %d days\n", req.DurationDays)
	fmt.Fprintf(&b, "Budget per leg per person: %.0f EUR\n", req.BudgetPerLegEUR)
	fmt.Fprintf(&b, "Season: %s\n", req.Season)
	fmt.Fprintf(&b, "Intermediate stops: %d\n", req.NumStops)
	fmt.Fprintf(&b, "Reachable airports: %s", strings.Join(req.AvailableAirports, ", "))
	if req.ProviderHint != "" {
		fmt.Fprintf(&b, "\nProvider constraint: %s", req.ProviderHint)
	}
	return b.String()
}

// codeFenceRE matches a markdown code fence, with or without a language tag.
var codeFenceRE = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ErrBadResponse marks a response that could not be parsed into itineraries.
// For the chain this is a provider failure like any other: it advances to
// the next backend.
var ErrBadResponse = errors.New("llm: response is not a valid itinerary list")

// ParseItineraries converts raw model text into suggested itineraries.
//
// Some backends wrap JSON in a markdown code fence despite instructions;
// the fence is stripped before decoding. The payload must be a JSON array
// of objects carrying at least a "route" field; optional fields default to
// reasoning "", difficulty "medium" and an empty season list. Anything
// else is a hard parse failure.
func ParseItineraries(raw string) ([]domain.SuggestedItinerary, error) {
	cleaned := strings.TrimSpace(raw)
	if m := codeFenceRE.FindStringSubmatch(cleaned); m != nil {
		cleaned = strings.TrimSpace(m[1])
	}

	var items []domain.SuggestedItinerary
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	for i := range items {
		if len(items[i].Route) == 0 {
			return nil, fmt.Errorf("%w: item %d has no route", ErrBadResponse, i)
		}
		if items[i].Difficulty == "" {
			items[i].Difficulty = "medium"
		}
		if items[i].BestSeason == nil {
			items[i].BestSeason = []string{}
		}
	}
	return items, nil
}
