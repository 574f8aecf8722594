package geo

import (
	"math"
	"testing"
)

func TestHaversineKM_ZeroForIdenticalPoints(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{37.4668, 15.0664},  // CTA
		{-33.9399, 151.175}, // SYD
		{64.13, -21.94},     // KEF
	}
	for _, p := range points {
		if d := HaversineKM(p[0], p[1], p[0], p[1]); d != 0 {
			t.Errorf("HaversineKM(%v,%v, same) = %f, want 0", p[0], p[1], d)
		}
	}
}

func TestHaversineKM_Symmetric(t *testing.T) {
	d1 := HaversineKM(37.4668, 15.0664, 37.9364, 23.9445) // CTA -> ATH
	d2 := HaversineKM(37.9364, 23.9445, 37.4668, 15.0664) // ATH -> CTA
	if math.Abs(d1-d2) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", d1, d2)
	}
	// CTA-ATH is roughly 790 km; sanity bound rather than exact match.
	if d1 < 700 || d1 > 900 {
		t.Fatalf("CTA-ATH distance %f km outside plausible range", d1)
	}
}

func TestEstimateRadiusKM(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{1, 200},
		{5, 1000},
		{7, 1400},
		{8, 1550},
		{15, 2600},
		{16, 2700},
		{25, 3600},
		{40, 5000}, // capped
		{99, 5000},
	}
	for _, tt := range tests {
		if got := EstimateRadiusKM(tt.days); got != tt.want {
			t.Errorf("EstimateRadiusKM(%d) = %d, want %d", tt.days, got, tt.want)
		}
	}
}

func TestEstimateRadiusKM_NonDecreasing(t *testing.T) {
	prev := 0
	for days := 1; days <= 60; days++ {
		r := EstimateRadiusKM(days)
		if r < prev {
			t.Fatalf("radius decreased at %d days: %d < %d", days, r, prev)
		}
		if r > 5000 {
			t.Fatalf("radius exceeds cap at %d days: %d", days, r)
		}
		prev = r
	}
}

func TestEstimateStops(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{1, 0},
		{3, 1},
		{5, 1},
		{6, 2},
		{7, 2},
		{8, 2},
		{12, 3},
		{15, 3},
		{16, 3},
		{20, 4},
		{25, 4},
	}
	for _, tt := range tests {
		if got := EstimateStops(tt.days); got != tt.want {
			t.Errorf("EstimateStops(%d) = %d, want %d", tt.days, got, tt.want)
		}
	}
}

func TestEstimateStops_TierCaps(t *testing.T) {
	for days := 1; days <= 60; days++ {
		got := EstimateStops(days)
		var cap_ int
		switch {
		case days <= 7:
			cap_ = 2
		case days <= 15:
			cap_ = 3
		default:
			cap_ = 4
		}
		if got > cap_ {
			t.Fatalf("EstimateStops(%d) = %d exceeds tier cap %d", days, got, cap_)
		}
	}
}
