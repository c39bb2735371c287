package geo

import (
	"math"
	"testing"
)

func TestDistanceSamePoint(t *testing.T) {
	d, err := Distance(10.7283, 79.0198, 10.7283, 79.0198)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d != 0 {
		t.Errorf("distance to self = %g, want 0", d)
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// One degree of latitude on the reference sphere is ~111.2 km.
	d, err := Distance(0, 0, 1, 0)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if d < 111000 || d > 111400 {
		t.Errorf("one degree latitude = %g m, want ~111195", d)
	}
}

func TestDistanceInvalidInput(t *testing.T) {
	cases := []struct {
		name                   string
		latA, lngA, latB, lngB float64
	}{
		{"nan lat", math.NaN(), 0, 0, 0},
		{"nan lng", 0, math.NaN(), 0, 0},
		{"lat over 90", 91, 0, 0, 0},
		{"lat under -90", -90.001, 0, 0, 0},
		{"lng over 180", 0, 180.5, 0, 0},
		{"lng under -180", 0, 0, 0, -181},
	}
	for _, tc := range cases {
		if _, err := Distance(tc.latA, tc.lngA, tc.latB, tc.lngB); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestWithinGeofenceBoundary(t *testing.T) {
	const (
		anchorLat = 10.7283
		anchorLng = 79.0198
		radius    = 50.0
	)
	// Move north by a latitude offset corresponding to the target distance.
	offset := func(meters float64) float64 {
		return meters / earthRadiusM * 180 / math.Pi
	}

	inside, err := WithinGeofence(anchorLat+offset(radius-1), anchorLng, anchorLat, anchorLng, radius)
	if err != nil {
		t.Fatalf("WithinGeofence: %v", err)
	}
	if !inside {
		t.Error("point at radius-1m should be inside")
	}

	outside, err := WithinGeofence(anchorLat+offset(radius+1), anchorLng, anchorLat, anchorLng, radius)
	if err != nil {
		t.Fatalf("WithinGeofence: %v", err)
	}
	if outside {
		t.Error("point at radius+1m should be outside")
	}

	atAnchor, err := WithinGeofence(anchorLat, anchorLng, anchorLat, anchorLng, 0)
	if err != nil {
		t.Fatalf("WithinGeofence: %v", err)
	}
	if !atAnchor {
		t.Error("anchor should be inside a zero-radius fence")
	}
}

func TestWithinGeofenceBadRadius(t *testing.T) {
	if _, err := WithinGeofence(0, 0, 0, 0, -1); err == nil {
		t.Error("negative radius should be rejected")
	}
	if _, err := WithinGeofence(0, 0, 0, 0, math.NaN()); err == nil {
		t.Error("NaN radius should be rejected")
	}
}
