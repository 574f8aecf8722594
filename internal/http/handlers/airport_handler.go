// Airport directory HTTP handlers.
//
// Read-only endpoints over the airport reference data:
//   - GET /airports            (all active airports)
//   - GET /airports/in-radius  (active airports within radius_km of a point)
package handlers

import (
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/geo"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

// ListAirportsResponse wraps the active airport directory.
type ListAirportsResponse struct {
	Airports []domain.Airport `json:"airports"`
	Count    int              `json:"count"`
}

// AirportsInRadiusResponse lists airports near a point, closest first.
type AirportsInRadiusResponse struct {
	Airports []domain.ReachableAirport `json:"airports"`
	Count    int                       `json:"count"`
}

// ListAirports handles GET /airports, returning every active airport
// ordered by IATA code.
func (h *Handlers) ListAirports(c *gin.Context) {
	airports, err := repo.ListActiveAirports(c.Request.Context(), h.db, "")
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "airport lookup failed")
		return
	}
	ok(c, http.StatusOK, ListAirportsResponse{Airports: airports, Count: len(airports)})
}

// AirportsInRadius handles GET /airports/in-radius.
//
// Query parameters lat, lon and radius_km are all required; results carry
// the great-circle distance from the point and are sorted by it.
func (h *Handlers) AirportsInRadius(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	radius, errRad := strconv.Atoi(c.Query("radius_km"))
	if errLat != nil || errLon != nil || errRad != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lat, lon and radius_km are required numbers")
		return
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || radius < 1 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "lat, lon or radius_km out of range")
		return
	}

	airports, err := repo.ListActiveAirports(c.Request.Context(), h.db, "")
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "airport lookup failed")
		return
	}

	within := make([]domain.ReachableAirport, 0)
	for _, a := range airports {
		dist := geo.HaversineKM(lat, lon, a.Latitude, a.Longitude)
		if dist > float64(radius) {
			continue
		}
		within = append(within, domain.ReachableAirport{
			IATACode:   a.IATACode,
			City:       a.City,
			Country:    a.Country,
			Latitude:   a.Latitude,
			Longitude:  a.Longitude,
			DistanceKM: int(math.Round(dist)),
		})
	}
	sort.SliceStable(within, func(i, j int) bool {
		return within[i].DistanceKM < within[j].DistanceKM
	})

	ok(c, http.StatusOK, AirportsInRadiusResponse{Airports: within, Count: len(within)})
}
