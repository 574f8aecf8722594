// Search HTTP handlers.
//
// This file exposes the two search endpoints plus provider observability:
//   - POST /search/smart-multi  (AI-assisted multi-city itinerary search)
//   - GET  /search/reverse      (cheapest fare per origin toward a destination)
//   - GET  /search/providers    (active flight provider and remaining quotas)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate service errors into stable HTTP error codes.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ItinerarySearcher runs the smart multi-city pipeline.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ItinerarySearcher interface {
	// SmartMultiSearch returns up to five itineraries ranked by price.
	SmartMultiSearch(ctx context.Context, req services.SmartMultiRequest) (*services.SmartMultiResponse, error)
}

// ReverseSearcher resolves the cheapest fare per origin toward a destination.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ReverseSearcher interface {
	// Search returns the ranked per-origin results for one destination.
	Search(ctx context.Context, req services.ReverseRequest) (*services.ReverseResponse, error)
}

// ProviderStatusSource reports flight provider health and quota state.
type ProviderStatusSource interface {
	// Status returns the active provider and remaining quotas.
	Status(ctx context.Context) (domain.ProviderStatus, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for search and the airport directory.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	itinSvc    ItinerarySearcher
	reverseSvc ReverseSearcher
	flights    ProviderStatusSource
	db         *gorm.DB
}

// New constructs and returns a Handlers instance bound to the given services.
// The DB handle backs the read-only airport directory endpoints.
func New(itinSvc ItinerarySearcher, reverseSvc ReverseSearcher, flights ProviderStatusSource, db *gorm.DB) *Handlers {
	return &Handlers{itinSvc: itinSvc, reverseSvc: reverseSvc, flights: flights, db: db}
}

//
// DTOs
//

// SmartMultiSearchRequest is the JSON payload for the smart multi-city search.
// Dates use the ISO day format (2006-01-02).
type SmartMultiSearchRequest struct {
	Origin             string  `json:"origin" binding:"required"`
	TripDurationDays   int     `json:"trip_duration_days" binding:"required"`
	BudgetPerPersonEUR float64 `json:"budget_per_person_eur" binding:"required"`
	Travelers          int     `json:"travelers"`
	DateFrom           string  `json:"date_from" binding:"required"`
	DateTo             string  `json:"date_to" binding:"required"`
	DirectOnly         bool    `json:"direct_only"`
}

const dayFormat = "2006-01-02"

//
// Handlers
//

// SmartMultiSearch handles POST /search/smart-multi.
//
// Status mapping:
//   - 400 bad_request      malformed JSON, dates, or request fields
//   - 404 not_found        unknown or inactive origin airport
//   - 502 ai_unavailable   every AI backend failed
//   - 503 no_itineraries   nothing priced within budget (retryable with
//     wider dates or budget)
//   - 500 search_failed    anything else
func (h *Handlers) SmartMultiSearch(c *gin.Context) {
	var req SmartMultiSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	dateFrom, err := time.Parse(dayFormat, req.DateFrom)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date_from must be formatted as YYYY-MM-DD")
		return
	}
	dateTo, err := time.Parse(dayFormat, req.DateTo)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date_to must be formatted as YYYY-MM-DD")
		return
	}

	travelers := req.Travelers
	if travelers == 0 {
		travelers = 1
	}

	resp, err := h.itinSvc.SmartMultiSearch(c.Request.Context(), services.SmartMultiRequest{
		Origin:             req.Origin,
		TripDurationDays:   req.TripDurationDays,
		BudgetPerPersonEUR: req.BudgetPerPersonEUR,
		Travelers:          travelers,
		DateFrom:           dateFrom,
		DateTo:             dateTo,
		DirectOnly:         req.DirectOnly,
	})
	if err != nil {
		var vErr *services.ValidationError
		var exhausted *services.ExhaustionError
		switch {
		case errors.As(err, &vErr):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, vErr.Error())
		case errors.Is(err, services.ErrOriginNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, services.ErrOriginNotFound.Error())
		case errors.Is(err, services.ErrAllLLMFailed):
			fail(c, http.StatusBadGateway, ErrCodeAIUnavailable, services.ErrAllLLMFailed.Error())
		case errors.As(err, &exhausted):
			fail(c, http.StatusServiceUnavailable, ErrCodeNoItineraries, exhausted.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, "itinerary search failed")
		}
		return
	}
	ok(c, http.StatusOK, resp)
}

// ReverseSearch handles GET /search/reverse.
//
// Query parameters:
//   - destination  3-letter IATA code (required)
//   - date_from    YYYY-MM-DD (required)
//   - date_to      YYYY-MM-DD (required)
//   - direct_only  boolean, default false
//   - max_results  1..200, default 50
//   - origin_lat / origin_lon / radius_km  optional geo filter; all three
//     must be present together
//
// Status mapping:
//   - 400 bad_request    malformed or incomplete parameters
//   - 404 not_found      no fare found from any origin
//   - 500 search_failed  anything else
func (h *Handlers) ReverseSearch(c *gin.Context) {
	destination := c.Query("destination")
	if destination == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "destination is required")
		return
	}
	dateFrom, err := time.Parse(dayFormat, c.Query("date_from"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date_from must be formatted as YYYY-MM-DD")
		return
	}
	dateTo, err := time.Parse(dayFormat, c.Query("date_to"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "date_to must be formatted as YYYY-MM-DD")
		return
	}

	req := services.ReverseRequest{
		Destination: destination,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		DirectOnly:  c.Query("direct_only") == "true",
	}

	if raw := c.Query("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "max_results must be an integer")
			return
		}
		req.MaxResults = n
	}

	// The geo filter is all-or-nothing.
	latRaw, lonRaw, radRaw := c.Query("origin_lat"), c.Query("origin_lon"), c.Query("radius_km")
	if latRaw != "" || lonRaw != "" || radRaw != "" {
		lat, errLat := strconv.ParseFloat(latRaw, 64)
		lon, errLon := strconv.ParseFloat(lonRaw, 64)
		rad, errRad := strconv.Atoi(radRaw)
		if errLat != nil || errLon != nil || errRad != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "origin_lat, origin_lon and radius_km must be provided together as numbers")
			return
		}
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 || rad < 1 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "origin_lat, origin_lon or radius_km out of range")
			return
		}
		req.OriginLat, req.OriginLon, req.RadiusKM = &lat, &lon, &rad
	}

	resp, err := h.reverseSvc.Search(c.Request.Context(), req)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, vErr.Error())
		case errors.Is(err, services.ErrNoResults):
			fail(c, http.StatusNotFound, ErrCodeNotFound, services.ErrNoResults.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, "reverse search failed")
		}
		return
	}
	ok(c, http.StatusOK, resp)
}

// ProviderStatus handles GET /search/providers, reporting which flight
// provider is active and how much quota each one has left.
func (h *Handlers) ProviderStatus(c *gin.Context) {
	status, err := h.flights.Status(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "provider status unavailable")
		return
	}
	ok(c, http.StatusOK, status)
}
