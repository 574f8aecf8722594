package services

import (
	"context"
	"errors"
	"testing"
)

func TestCalculateArea_ReachableSortedByDistance(t *testing.T) {
	db := newServiceDB(t)
	seedAirports(t, db)
	s := NewAreaService(db)

	area, err := s.CalculateArea(context.Background(), "CTA", 7)
	if err != nil {
		t.Fatalf("CalculateArea: %v", err)
	}

	if area.OriginIATA != "CTA" {
		t.Errorf("origin = %q", area.OriginIATA)
	}
	if area.RadiusKM != 1400 {
		t.Errorf("radius = %d, want 1400", area.RadiusKM)
	}
	if area.NumStops != 2 {
		t.Errorf("stops = %d, want 2", area.NumStops)
	}

	// ATH and SOF are within 1400 km of Catania; JFK is an ocean away and
	// LIN is inactive.
	if len(area.Airports) != 2 {
		t.Fatalf("reachable = %d airports, want 2", len(area.Airports))
	}
	for i := 1; i < len(area.Airports); i++ {
		if area.Airports[i].DistanceKM < area.Airports[i-1].DistanceKM {
			t.Errorf("airports not sorted by distance: %v", area.Airports)
		}
	}
	for _, a := range area.Airports {
		if a.IATACode == "CTA" {
			t.Error("origin included in reachable list")
		}
		if a.DistanceKM <= 0 || a.DistanceKM > area.RadiusKM {
			t.Errorf("%s distance %d outside (0, %d]", a.IATACode, a.DistanceKM, area.RadiusKM)
		}
	}
}

func TestCalculateArea_OriginMissingOrInactive(t *testing.T) {
	db := newServiceDB(t)
	seedAirports(t, db)
	s := NewAreaService(db)

	for _, iata := range []string{"XXX", "LIN"} {
		if _, err := s.CalculateArea(context.Background(), iata, 7); !errors.Is(err, ErrOriginNotFound) {
			t.Errorf("CalculateArea(%q) err = %v, want ErrOriginNotFound", iata, err)
		}
	}
}
