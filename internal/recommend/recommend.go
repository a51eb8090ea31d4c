package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mobihelp/sync-service/internal/entities"
)

// Client asks an external service to pick the best executor for a
// free-form customer request.
type Client struct {
	client *http.Client
	url    string
}

func NewClient(url string) *Client {
	return &Client{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
	}
}

type candidate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Services    []string `json:"services,omitempty"`
}

type recommendRequest struct {
	Query      string      `json:"query"`
	Candidates []candidate `json:"candidates"`
}

type recommendResponse struct {
	Recommendation string `json:"recommendation"`
}

func (c *Client) Recommend(ctx context.Context, query string, executors []entities.UserProfile) (string, error) {
	candidates := make([]candidate, 0, len(executors))
	for _, e := range executors {
		services := make([]string, 0, len(e.CustomServices))
		for _, s := range e.CustomServices {
			if s.Enabled {
				services = append(services, s.ServiceID)
			}
		}
		candidates = append(candidates, candidate{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Rating:      e.Rating,
			Services:    services,
		})
	}

	body, err := json.Marshal(recommendRequest{Query: query, Candidates: candidates})
	if err != nil {
		return "", fmt.Errorf("failed to marshal recommend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build recommend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("recommend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("recommender returned status %d", resp.StatusCode)
	}

	var out recommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode recommend response: %w", err)
	}
	return out.Recommendation, nil
}
