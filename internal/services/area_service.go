// Package services – AreaService
//
// AreaService answers "how far can this trip realistically reach": given an
// origin airport and a trip duration it derives an explorable radius and a
// stop count, then loads every other active airport inside that radius
// annotated with its distance from the origin.
package services

import (
	"context"
	"errors"
	"math"
	"sort"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hopcraft/go-trip-backend/internal/domain"
	"github.com/hopcraft/go-trip-backend/internal/geo"
	"github.com/hopcraft/go-trip-backend/internal/repo"
)

// AreaResult is the output of CalculateArea, consumed by the itinerary
// pipeline's AI stage.
type AreaResult struct {
	OriginIATA string
	RadiusKM   int
	NumStops   int
	// Airports inside the radius, origin excluded, sorted by ascending
	// distance.
	Airports []domain.ReachableAirport
}

// AreaService computes the explorable area around an origin airport.
type AreaService struct {
	// DB is the GORM handle used for airport directory reads.
	DB *gorm.DB
}

// NewAreaService constructs an AreaService.
func NewAreaService(db *gorm.DB) *AreaService {
	return &AreaService{DB: db}
}

// CalculateArea resolves the origin airport, estimates radius and stop
// count from the trip duration, and returns every other active airport
// within the radius (inclusive), distance rounded to the nearest km.
// A missing or inactive origin yields ErrOriginNotFound.
func (s *AreaService) CalculateArea(ctx context.Context, originIATA string, durationDays int) (*AreaResult, error) {
	tr := otel.Tracer("services/AreaService")
	ctx, span := tr.Start(ctx, "CalculateArea",
		trace.WithAttributes(
			attribute.String("origin", originIATA),
			attribute.Int("duration_days", durationDays),
		),
	)
	defer span.End()

	origin, err := repo.GetActiveAirport(ctx, s.DB, originIATA)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOriginNotFound
		}
		return nil, err
	}

	radiusKM := geo.EstimateRadiusKM(durationDays)
	numStops := geo.EstimateStops(durationDays)

	others, err := repo.ListActiveAirports(ctx, s.DB, originIATA)
	if err != nil {
		return nil, err
	}

	reachable := make([]domain.ReachableAirport, 0, len(others))
	for _, a := range others {
		dist := geo.HaversineKM(origin.Latitude, origin.Longitude, a.Latitude, a.Longitude)
		if dist > float64(radiusKM) {
			continue
		}
		reachable = append(reachable, domain.ReachableAirport{
			IATACode:   a.IATACode,
			City:       a.City,
			Country:    a.Country,
			Latitude:   a.Latitude,
			Longitude:  a.Longitude,
			DistanceKM: int(math.Round(dist)),
		})
	}
	sort.SliceStable(reachable, func(i, j int) bool {
		return reachable[i].DistanceKM < reachable[j].DistanceKM
	})

	span.SetAttributes(attribute.Int("reachable_airports", len(reachable)))

	return &AreaResult{
		OriginIATA: origin.IATACode,
		RadiusKM:   radiusKM,
		NumStops:   numStops,
		Airports:   reachable,
	}, nil
}
