package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// NominatimProvider geocodes with an OpenStreetMap Nominatim server
type NominatimProvider struct {
	baseURL    string
	userAgent  string
	limit      int
	httpClient *http.Client
}

// NewNominatimProvider creates a Nominatim geocoder. Nominatim's usage
// policy requires an identifying User-Agent.
func NewNominatimProvider(baseURL, userAgent string) *NominatimProvider {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &NominatimProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limit:      5,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type nominatimPlace struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (p nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("invalid latitude %q: %w", p.Lat, err)
	}
	lng, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("invalid longitude %q: %w", p.Lon, err)
	}
	name := p.Name
	if name == "" {
		name, _, _ = strings.Cut(p.DisplayName, ",")
	}
	return Place{Name: name, DisplayName: p.DisplayName, Location: LatLng{Lat: lat, Lng: lng}}, nil
}

// Search returns up to five places matching query
func (n *NominatimProvider) Search(ctx context.Context, query string) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(n.limit))

	var raw []nominatimPlace
	if err := n.get(ctx, "/search?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, nil
}

// Reverse returns the place at a point
func (n *NominatimProvider) Reverse(ctx context.Context, at LatLng) (*Place, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(at.Lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(at.Lng, 'f', 6, 64))
	params.Set("format", "json")

	var raw struct {
		nominatimPlace
		Error string `json:"error"`
	}
	if err := n.get(ctx, "/reverse?"+params.Encode(), &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, ErrNoResult
	}

	p, err := raw.toPlace()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (n *NominatimProvider) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Nominatim API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
