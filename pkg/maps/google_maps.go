package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"
)

// GoogleMapsProvider geocodes and routes with the Google Maps APIs
type GoogleMapsProvider struct {
	client *maps.Client
}

// NewGoogleMapsProvider creates a Google provider. baseURL is optional and
// only used to point the client at a test server.
func NewGoogleMapsProvider(apiKey, baseURL string) (*GoogleMapsProvider, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	return &GoogleMapsProvider{client: client}, nil
}

// Search returns places matching query
func (g *GoogleMapsProvider) Search(ctx context.Context, query string) ([]Place, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: query})
	if err != nil {
		return nil, fmt.Errorf("geocoding failed: %w", err)
	}

	places := make([]Place, len(results))
	for i, r := range results {
		places[i] = toPlace(r)
	}
	return places, nil
}

// Reverse returns the best address at a point
func (g *GoogleMapsProvider) Reverse(ctx context.Context, at LatLng) (*Place, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: at.Lat, Lng: at.Lng},
	})
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding failed: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResult
	}

	p := toPlace(results[0])
	return &p, nil
}

// WalkingRoute returns the first walking route with its overview polyline decoded
func (g *GoogleMapsProvider) WalkingRoute(ctx context.Context, from, to LatLng) (*Route, error) {
	routes, _, err := g.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeWalking,
	})
	if err != nil {
		return nil, fmt.Errorf("directions failed: %w", err)
	}
	if len(routes) == 0 {
		return nil, ErrNoRoute
	}

	route := routes[0]
	decoded, err := route.OverviewPolyline.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	out := &Route{Points: make([]LatLng, len(decoded))}
	for i, p := range decoded {
		out.Points[i] = LatLng{Lat: p.Lat, Lng: p.Lng}
	}
	for _, leg := range route.Legs {
		out.DistanceMeters += float64(leg.Distance.Meters)
		out.DurationSeconds += leg.Duration.Seconds()
	}
	return out, nil
}

func toPlace(r maps.GeocodingResult) Place {
	name := r.FormattedAddress
	if len(r.AddressComponents) > 0 {
		name = r.AddressComponents[0].LongName
	}
	return Place{
		Name:        name,
		DisplayName: r.FormattedAddress,
		Location:    LatLng{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
	}
}
