package geo

import (
	"errors"
	"math"
)

// earthRadiusM is the spherical-Earth approximation used by the haversine formula.
const earthRadiusM = 6371000.0

// ErrInvalidCoordinate reports a NaN or out-of-range latitude/longitude.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Distance returns the great-circle distance in meters between two points
// using the haversine formula.
func Distance(latA, lngA, latB, lngB float64) (float64, error) {
	if err := validate(latA, lngA); err != nil {
		return 0, err
	}
	if err := validate(latB, lngB); err != nil {
		return 0, err
	}

	phiA := latA * math.Pi / 180
	phiB := latB * math.Pi / 180
	dPhi := (latB - latA) * math.Pi / 180
	dLambda := (lngB - lngA) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phiA)*math.Cos(phiB)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c, nil
}

// WithinGeofence reports whether the observed point lies inside the circular
// boundary around the anchor. The boundary itself counts as inside.
func WithinGeofence(obsLat, obsLng, anchorLat, anchorLng, radiusMeters float64) (bool, error) {
	if math.IsNaN(radiusMeters) || radiusMeters < 0 {
		return false, ErrInvalidCoordinate
	}
	d, err := Distance(obsLat, obsLng, anchorLat, anchorLng)
	if err != nil {
		return false, err
	}
	return d <= radiusMeters, nil
}

func validate(lat, lng float64) error {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return ErrInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}
