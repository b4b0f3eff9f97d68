package geo

import (
	"errors"
	"math"
)

// Target selects which end of the trip the next map input edits.
type Target int

const (
	TargetOrigin      Target = 0
	TargetDestination Target = 1
)

// IsValid validates the target
func (t Target) IsValid() bool {
	return t == TargetOrigin || t == TargetDestination
}

// Coordinate is a WGS84 point as sent to and received from the backend.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Bookmark is a user-saved named coordinate.
type Bookmark struct {
	Name        string     `json:"name"`
	Coordinates Coordinate `json:"coordinates"`
}

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Validate checks the coordinate is inside WGS84 bounds
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return ErrInvalidCoordinate
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// DistanceKM calculates haversine distance between two points
func DistanceKM(a, b Coordinate) float64 {
	const earthRadius = 6371 // kilometers

	dLat := toRadians(b.Latitude - a.Latitude)
	dLon := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Latitude))*math.Cos(toRadians(b.Latitude))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Place is a geocoding candidate the user can pick as origin or destination.
type Place struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Coordinates Coordinate `json:"coordinates"`
}
