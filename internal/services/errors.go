// Package services holds the business logic for the two search flows:
// reverse search (cheapest fare toward a destination from every active
// origin) and smart multi-city search (AI-suggested loops verified against
// real fares). This file centralizes the service-level error values so
// callers can match on them; translation into HTTP status codes happens at
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOriginNotFound indicates the requested origin airport does not
	// exist in the directory or is not active.
	ErrOriginNotFound = errors.New("origin airport not found or inactive")

	// ErrAllLLMFailed indicates every AI route-generation provider in the
	// fallback chain failed. Retryable by the caller.
	ErrAllLLMFailed = errors.New("all AI providers failed")

	// ErrNoResults indicates a reverse search produced zero fares, from
	// cache and providers combined.
	ErrNoResults = errors.New("no flights found")
)

// ValidationError rejects a request before any pipeline stage runs. The
// message is surfaced verbatim to the caller.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ExhaustionError is the terminal failure of a smart multi-city search
// whose candidate itineraries were all discarded. Invalid counts
// structurally broken AI routes, NoCoverage counts valid candidates with
// at least one unpriceable leg, and OverBudget counts candidates priced
// above the per-person budget. Retryable by the caller with wider dates
// or budget.
type ExhaustionError struct {
	Invalid    int
	NoCoverage int
	OverBudget int
}

func (e *ExhaustionError) Error() string {
	switch {
	case e.NoCoverage > 0 && e.OverBudget > 0:
		return fmt.Sprintf("%d itineraries lacked flight coverage, %d exceeded the budget - widen dates or budget", e.NoCoverage, e.OverBudget)
	case e.OverBudget > 0:
		return fmt.Sprintf("all %d priced itineraries exceeded the budget - raise the budget or widen dates", e.OverBudget)
	case e.NoCoverage > 0:
		return fmt.Sprintf("no flight coverage for any of the %d suggested itineraries - try different dates", e.NoCoverage)
	default:
		return "AI produced no valid itineraries"
	}
}
