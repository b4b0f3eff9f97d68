package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OpenRouteServiceProvider fetches walking routes from openrouteservice.org
type OpenRouteServiceProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenRouteServiceProvider creates an OpenRouteService router
func NewOpenRouteServiceProvider(apiKey, baseURL string) *OpenRouteServiceProvider {
	if baseURL == "" {
		baseURL = "https://api.openrouteservice.org"
	}
	return &OpenRouteServiceProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// WalkingRoute returns the foot-walking route from one point to another
func (o *OpenRouteServiceProvider) WalkingRoute(ctx context.Context, from, to LatLng) (*Route, error) {
	params := url.Values{}
	params.Set("api_key", o.apiKey)
	// OpenRouteService takes lon,lat
	params.Set("start", fmt.Sprintf("%f,%f", from.Lng, from.Lat))
	params.Set("end", fmt.Sprintf("%f,%f", to.Lng, to.Lat))
	apiURL := fmt.Sprintf("%s/v2/directions/foot-walking?%s", o.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenRouteService API error (status %d): %s", resp.StatusCode, string(body))
	}

	var orsResp struct {
		Features []struct {
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties struct {
				Summary struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
				} `json:"summary"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &orsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(orsResp.Features) == 0 {
		return nil, ErrNoRoute
	}

	feature := orsResp.Features[0]
	points := make([]LatLng, 0, len(feature.Geometry.Coordinates))
	for _, c := range feature.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		points = append(points, LatLng{Lat: c[1], Lng: c[0]})
	}

	return &Route{
		Points:          points,
		DistanceMeters:  feature.Properties.Summary.Distance,
		DurationSeconds: feature.Properties.Summary.Duration,
	}, nil
}
