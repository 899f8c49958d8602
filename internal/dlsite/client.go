package dlsite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trawl/internal/services"
)

// Work is one provider record. Workno echoes the canonical identifier and
// may differ in padding from the requested string; callers key on the echoed
// form.
type Work struct {
	Workno   string `json:"workno"`
	Title    string `json:"work_name"`
	SiteID   string `json:"site_id"`
	Circle   string `json:"circle"`
	Brand    string `json:"brand"`
	ImageURL string `json:"work_image"`
}

// HTTPDoer describes the HTTP client used by the provider client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client queries the provider's product endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent overrides the User-Agent sent on lookups.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(userAgent); trimmed != "" {
			c.userAgent = trimmed
		}
	}
}

// New creates a provider client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("provider base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Work looks up one identifier. A missing identifier (HTTP 404 or a 200 with
// an empty array) returns services.ErrNotFound; transport failures, decode
// failures, and unexpected statuses return services.ErrTransient with the
// request latency in the message.
func (c *Client) Work(ctx context.Context, id string) (*Work, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("identifier must not be empty")
	}

	endpoint, err := url.Parse(c.baseURL + "/api/=/product.json")
	if err != nil {
		return nil, fmt.Errorf("parse provider url: %w", err)
	}
	params := url.Values{}
	params.Set("workno", id)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "dlsite", "work",
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusNotFound:
		return nil, services.ErrNotFound
	default:
		return nil, services.Wrap(services.ErrTransient, "dlsite", "work",
			fmt.Sprintf("lookup returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload []Work
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrTransient, "dlsite", "work",
			fmt.Sprintf("decode response (latency=%v)", latency), err)
	}
	if len(payload) == 0 {
		return nil, services.ErrNotFound
	}

	work := payload[0]
	if strings.TrimSpace(work.Workno) == "" {
		work.Workno = id
	}
	return &work, nil
}
