// Package tavily provides a client for the Tavily search and deep-research APIs.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/stock-digest/internal/resilience"
)

const defaultBaseURL = "https://api.tavily.com"

// Client defines the Tavily API operations.
type Client interface {
	// Search performs a topic-filtered web search.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// SubmitResearch starts an asynchronous deep-research job and returns its handle.
	SubmitResearch(ctx context.Context, req ResearchRequest) (*ResearchResponse, error)
	// GetResearchStatus fetches the current state of a research job.
	GetResearchStatus(ctx context.Context, requestID string) (*ResearchStatusResponse, error)
}

// SearchRequest is the body for POST /search.
type SearchRequest struct {
	Query          string   `json:"query"`
	Topic          string   `json:"topic,omitempty"`
	SearchDepth    string   `json:"search_depth,omitempty"`
	MaxResults     int      `json:"max_results,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

// SearchResponse is the response from POST /search.
type SearchResponse struct {
	Query   string         `json:"query"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Domain        string  `json:"domain,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
	Score         float64 `json:"score"`
}

// ResearchRequest is the body for POST /research.
type ResearchRequest struct {
	Input        string          `json:"input"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
	Model        string          `json:"model,omitempty"`
}

// ResearchResponse is the response from POST /research.
type ResearchResponse struct {
	RequestID string `json:"request_id"`
}

// ResearchStatusResponse is the response from GET /research/{id}. Output is
// left raw: the provider returns a loosely-typed object that callers map with
// per-field defaults.
type ResearchStatusResponse struct {
	RequestID string          `json:"request_id"`
	Status    string          `json:"status"`
	Error     string          `json:"error,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Sources   []SearchResult  `json:"sources,omitempty"`
}

// APIError is returned when Tavily responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tavily: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a new Tavily client. A modest default rate limit keeps
// concurrent fan-out under the provider's request quota.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.post(ctx, "/search", req, &resp); err != nil {
		return nil, eris.Wrap(err, "tavily: search")
	}
	return &resp, nil
}

func (c *httpClient) SubmitResearch(ctx context.Context, req ResearchRequest) (*ResearchResponse, error) {
	var resp ResearchResponse
	if err := c.post(ctx, "/research", req, &resp); err != nil {
		return nil, eris.Wrap(err, "tavily: submit research")
	}
	return &resp, nil
}

func (c *httpClient) GetResearchStatus(ctx context.Context, requestID string) (*ResearchStatusResponse, error) {
	var resp ResearchStatusResponse
	if err := c.get(ctx, fmt.Sprintf("/research/%s", requestID), &resp); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("tavily: get research status %s", requestID))
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	// Requests are rebuilt per attempt so the body reader is fresh.
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("tavily", path)
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.do(ctx, req, out)
	})
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("tavily", path)
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return eris.Wrap(err, "create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.do(ctx, req, out)
	})
}

func (c *httpClient) do(ctx context.Context, req *http.Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}

	return nil
}
