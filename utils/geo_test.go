package utils

import (
	"math"
	"testing"
)

func TestHaversineKnownDistance(t *testing.T) {
	// Bariloche civic center to the airport, roughly 13.5 km.
	d := HaversineMeters(-41.1334, -71.3103, -41.1512, -71.1578)
	if d < 12500 || d > 13500 {
		t.Errorf("distance: got %.0f m, want ~13 km", d)
	}
	if HaversineMeters(-41.1, -71.3, -41.1, -71.3) != 0 {
		t.Error("distance to self should be zero")
	}
}

func TestOffsetNorthRoundTrip(t *testing.T) {
	for _, m := range []float64{100, 500, 700} {
		lat := OffsetNorth(-41.1335, m)
		got := HaversineMeters(-41.1335, -71.3103, lat, -71.3103)
		if math.Abs(got-m) > 0.01 {
			t.Errorf("offset %v m: haversine gives %.4f", m, got)
		}
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     bool
	}{
		{-41.1335, -71.3103, true},
		{0, 0, false},
		{0, -71.3, true},
		{91, 10, false},
		{10, 181, false},
		{math.NaN(), 1, false},
	}
	for _, tt := range tests {
		if got := ValidCoordinates(tt.lat, tt.lng); got != tt.want {
			t.Errorf("ValidCoordinates(%v, %v) = %v; want %v", tt.lat, tt.lng, got, tt.want)
		}
	}
}
