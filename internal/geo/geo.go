package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
)

// Geocoder resolves a free-form address into coordinates.
type Geocoder struct {
	client  *http.Client
	baseURL string
}

func NewGeocoder(baseURL string) *Geocoder {
	return &Geocoder{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
	}
}

type geocodeResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (entities.GeoPoint, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return entities.GeoPoint{}, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return entities.GeoPoint{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return entities.GeoPoint{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return entities.GeoPoint{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return entities.GeoPoint{}, fmt.Errorf("address not found: %s", address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return entities.GeoPoint{}, fmt.Errorf("invalid latitude in geocode response: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return entities.GeoPoint{}, fmt.Errorf("invalid longitude in geocode response: %w", err)
	}

	return entities.GeoPoint{
		Address:   address,
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
