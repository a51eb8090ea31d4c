package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
)

// Route is the drivable connection between two points.
type Route struct {
	DistanceMeters float64
	Duration       time.Duration
}

// Router computes routes through an OSRM-compatible endpoint.
type Router struct {
	client  *http.Client
	baseURL string
}

func NewRouter(baseURL string) *Router {
	return &Router{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
	}
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

func (r *Router) Route(ctx context.Context, from, to entities.GeoPoint) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		r.baseURL, from.Longitude, from.Latitude, to.Longitude, to.Latitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("route request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("router returned status %d", resp.StatusCode)
	}

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Route{}, fmt.Errorf("failed to decode route response: %w", err)
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return Route{}, fmt.Errorf("no route found")
	}

	return Route{
		DistanceMeters: out.Routes[0].Distance,
		Duration:       time.Duration(out.Routes[0].Duration * float64(time.Second)),
	}, nil
}
