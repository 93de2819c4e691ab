package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/mapty/internal/models"
)

// HTTPClient implements DataSource by calling the Mapty REST API.
// Used for stdio MCP mode where the binary runs next to the assistant but
// the workouts live on a running server.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// statusError carries a non-200 response.
type statusError struct {
	path   string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httpclient: %s returned %d: %s", e.path, e.status, e.body)
}

func (c *HTTPClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{path: path, status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

func (c *HTTPClient) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	body, err := c.get(ctx, "/api/v1/workouts")
	if err != nil {
		return nil, err
	}

	var workouts []models.Workout
	if err := json.Unmarshal(body, &workouts); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return workouts, nil
}

func (c *HTTPClient) GetWorkout(ctx context.Context, id string) (models.Workout, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+url.PathEscape(id))
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return models.Workout{}, ErrNotFound
	}
	if err != nil {
		return models.Workout{}, err
	}

	var w models.Workout
	if err := json.Unmarshal(body, &w); err != nil {
		return models.Workout{}, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return w, nil
}
