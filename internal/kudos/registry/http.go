package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient calls the real external model-registry collaborator over
// HTTP: given a model name, it expects a JSON body
// {"parameters_billion": <float>} in response.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient constructs a registry client against baseURL with a
// conservative request timeout; the registry is an external dependency
// and must never be allowed to block a request handler indefinitely.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

type parameterCountResponse struct {
	ParametersBillion float64 `json:"parameters_billion"`
}

// ParameterCount implements domain.ModelRegistry.
func (c *HTTPClient) ParameterCount(ctx context.Context, modelName string) (float64, error) {
	endpoint := c.baseURL + "/api/v1/model/" + url.PathEscape(modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("op=registry.HTTPClient.ParameterCount: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("op=registry.HTTPClient.ParameterCount: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("op=registry.HTTPClient.ParameterCount: status %d for model %q", resp.StatusCode, modelName)
	}
	var body parameterCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("op=registry.HTTPClient.ParameterCount: decode: %w", err)
	}
	return body.ParametersBillion, nil
}
