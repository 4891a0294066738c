package geodist

import (
	"math"
	"testing"
)

func TestHaversineZeroDistance(t *testing.T) {
	d := Haversine(-23.5505, -46.6333, -23.5505, -46.6333)
	if d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Sao Paulo to Rio de Janeiro, roughly 360 km.
	d := Haversine(-23.5505, -46.6333, -22.9068, -43.1729)
	if d < 350000 || d > 370000 {
		t.Errorf("expected ~360km, got %f m", d)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	d1 := Haversine(-23.5505, -46.6333, -22.9068, -43.1729)
	d2 := Haversine(-22.9068, -43.1729, -23.5505, -46.6333)
	if math.Abs(d1-d2) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", d1, d2)
	}
}

func TestHaversineMetersInt(t *testing.T) {
	d := HaversineMetersInt(-23.5505, -46.6333, -23.5605, -46.6433)
	if d <= 0 {
		t.Errorf("expected positive meters, got %d", d)
	}
	if float64(d) > Haversine(-23.5505, -46.6333, -23.5605, -46.6433) {
		t.Error("integer meters must truncate, not round up")
	}
}
