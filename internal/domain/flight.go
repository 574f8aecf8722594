package domain

import "time"

// Leg is one directed flight segment between two airports on a given day.
// Value object, no identity.
type Leg struct {
	Origin      string
	Destination string
	Date        time.Time
}

// FlightOffer is a provider-agnostic normalized fare. Offers are produced by
// a flight provider or reconstructed from cache and are never mutated.
//
// Departure is kept as the provider's ISO datetime string (e.g.
// "2026-04-03T06:30:00") so cache round-trips are byte-stable.
type FlightOffer struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Departure   string  `json:"departure"`
	PriceEUR    float64 `json:"price_eur"`
	Airline     string  `json:"airline"`
	Direct      bool    `json:"direct"`
	DurationMin int     `json:"duration_minutes"`
}

// SuggestedItinerary is one AI-generated candidate route. It is consumed
// immediately by the pricing stage and never persisted.
//
// Route lists IATA codes with the origin first and last (a closed loop).
type SuggestedItinerary struct {
	Route      []string `json:"route"`
	Reasoning  string   `json:"reasoning"`
	Difficulty string   `json:"estimated_difficulty"`
	BestSeason []string `json:"best_season"`
}

// ReachableAirport is an airport inside the explorable radius of an origin,
// annotated with its distance from that origin.
type ReachableAirport struct {
	IATACode   string  `json:"iata_code"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKM int     `json:"distance_km"`
}

// PricedLeg is one leg of a ranked itinerary with its verified fare.
type PricedLeg struct {
	From        string  `json:"from_airport"`
	To          string  `json:"to_airport"`
	PriceEUR    float64 `json:"price_per_person_eur"`
	Airline     string  `json:"airline"`
	Departure   string  `json:"departure"`
	DurationMin int     `json:"duration_minutes"`
	Direct      bool    `json:"direct"`
}

// RankedItinerary is one entry of the smart multi-city response. Ephemeral,
// response-only.
type RankedItinerary struct {
	Rank              int         `json:"rank"`
	Route             []string    `json:"route"`
	TotalPerPersonEUR float64     `json:"total_price_per_person_eur"`
	TotalAllEUR       float64     `json:"total_price_all_travelers_eur"`
	Legs              []PricedLeg `json:"legs"`
	AINotes           string      `json:"ai_notes"`
	DaysPerStop       []int       `json:"suggested_days_per_stop"`
}

// ReverseResult is one origin's cheapest fare toward the searched
// destination, enriched with the origin airport's display data.
type ReverseResult struct {
	Origin      string  `json:"origin"`
	OriginCity  string  `json:"origin_city"`
	PriceEUR    float64 `json:"price_eur"`
	Airline     string  `json:"airline"`
	Departure   string  `json:"departure"`
	Direct      bool    `json:"direct"`
	DurationMin int     `json:"duration_minutes"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// ProviderStatus reports which flight provider answered (or would answer)
// a search and how much quota each provider has left in the current window.
type ProviderStatus struct {
	ActiveProvider string         `json:"active_provider"`
	Remaining      map[string]int `json:"remaining"`
	Note           string         `json:"note"`
}
