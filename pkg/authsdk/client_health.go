package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetLiveness checks if the service is alive.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/livez")
}

// GetReadiness checks if the service is ready. A degraded service returns
// the decoded report together with an *APIError carrying the 503, so callers
// can see which check failed.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.getHealth(ctx, "/readyz")
}

func (c *SDKClient) getHealth(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health HealthResponse
	if jsonErr := json.Unmarshal(body, &health); jsonErr != nil || health.Status == "" {
		if resp.StatusCode != http.StatusOK {
			return nil, parseErrorResponse(resp, body)
		}
		return nil, fmt.Errorf("failed to decode health response: %w", jsonErr)
	}

	if resp.StatusCode != http.StatusOK {
		return &health, ErrTemporarilyUnavailable.WithDescription("service " + health.Status)
	}
	return &health, nil
}
