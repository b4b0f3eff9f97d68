package maps

import (
	"context"
	"errors"
)

// LatLng is a WGS84 point
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a geocoding candidate
type Place struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Location    LatLng `json:"location"`
}

// Route is a walking route between two points
type Route struct {
	Points          []LatLng `json:"points"`
	DistanceMeters  float64  `json:"distance_meters"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// Geocoder turns free text into candidate places and points into names
type Geocoder interface {
	Search(ctx context.Context, query string) ([]Place, error)
	Reverse(ctx context.Context, at LatLng) (*Place, error)
}

// Router computes walking routes
type Router interface {
	WalkingRoute(ctx context.Context, from, to LatLng) (*Route, error)
}

var (
	ErrNoRoute  = errors.New("no route found")
	ErrNoResult = errors.New("no place found")
)
