package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/stock-digest/internal/resilience"
)

func noRetry() Option {
	return WithRetry(resilience.RetryConfig{MaxAttempts: 1})
}

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "finance", req.Topic)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(SearchResponse{
			Query: req.Query,
			Results: []SearchResult{
				{Title: "Quote", URL: "https://example.com/q", Content: "price data", Score: 0.91},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), noRetry())
	resp, err := client.Search(context.Background(), SearchRequest{
		Query:      "Tell me about the stock AAPL",
		Topic:      "finance",
		MaxResults: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, 0.91, resp.Results[0].Score)
}

func TestSubmitResearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/research", r.URL.Path)

		var req ResearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Input)
		assert.NotEmpty(t, req.OutputSchema)

		json.NewEncoder(w).Encode(ResearchResponse{RequestID: "res-abc"})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), noRetry())
	resp, err := client.SubmitResearch(context.Background(), ResearchRequest{
		Input:        "research AAPL",
		OutputSchema: json.RawMessage(`{"type":"object"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "res-abc", resp.RequestID)
}

func TestGetResearchStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/research/res-abc", r.URL.Path)

		json.NewEncoder(w).Encode(ResearchStatusResponse{
			RequestID: "res-abc",
			Status:    "completed",
			Output:    json.RawMessage(`{"summary":"done"}`),
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), noRetry())
	resp, err := client.GetResearchStatus(context.Background(), "res-abc")
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
}

func TestClient_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL),
		WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}),
	)
	_, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_TransientErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(SearchResponse{Query: "q"})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL),
		WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}),
	)
	resp, err := client.Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Equal(t, "q", resp.Query)
	assert.Equal(t, int32(3), calls.Load())
}
