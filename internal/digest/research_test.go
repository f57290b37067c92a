package digest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/stock-digest/internal/model"
	"github.com/sells-group/stock-digest/pkg/anthropic"
	"github.com/sells-group/stock-digest/pkg/tavily"
)

// mockTavily implements tavily.Client for pipeline tests.
type mockTavily struct {
	searchFunc func(ctx context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error)
	submitFunc func(ctx context.Context, req tavily.ResearchRequest) (*tavily.ResearchResponse, error)
	statusFunc func(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error)
}

func (m *mockTavily) Search(ctx context.Context, req tavily.SearchRequest) (*tavily.SearchResponse, error) {
	if m.searchFunc == nil {
		return &tavily.SearchResponse{}, nil
	}
	return m.searchFunc(ctx, req)
}

func (m *mockTavily) SubmitResearch(ctx context.Context, req tavily.ResearchRequest) (*tavily.ResearchResponse, error) {
	if m.submitFunc == nil {
		return &tavily.ResearchResponse{RequestID: "res-1"}, nil
	}
	return m.submitFunc(ctx, req)
}

func (m *mockTavily) GetResearchStatus(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error) {
	if m.statusFunc == nil {
		return &tavily.ResearchStatusResponse{RequestID: requestID, Status: "completed", Output: json.RawMessage(`{}`)}, nil
	}
	return m.statusFunc(ctx, requestID)
}

// mockLLM implements anthropic.Client with a canned text reply.
type mockLLM struct {
	text string
	err  error
}

func (m *mockLLM) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.text}},
	}, nil
}

func fastPollOpts() []tavily.PollOption {
	return []tavily.PollOption{
		tavily.WithPollInterval(time.Millisecond),
		tavily.WithPollCap(2 * time.Millisecond),
	}
}

func TestResearcher_Run_Success(t *testing.T) {
	output := map[string]any{
		"company_name":        "Apple Inc.",
		"summary":             "Consumer electronics giant.",
		"current_performance": "Up 3% this quarter.",
		"key_insights":        []any{"services growth", "buyback program"},
		"recommendation":      "buy",
		"risk_assessment":     "moderate",
		"price_outlook":       "positive",
	}
	outputJSON, err := json.Marshal(output)
	require.NoError(t, err)

	var submittedInput string
	mock := &mockTavily{
		submitFunc: func(ctx context.Context, req tavily.ResearchRequest) (*tavily.ResearchResponse, error) {
			submittedInput = req.Input
			return &tavily.ResearchResponse{RequestID: "res-1"}, nil
		},
		statusFunc: func(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error) {
			return &tavily.ResearchStatusResponse{
				RequestID: requestID,
				Status:    "completed",
				Output:    outputJSON,
				Sources: []tavily.SearchResult{
					{Title: "Analyst note", URL: "https://example.com/note", Score: 0.4},
					{Title: "Q3 results", URL: "https://example.com/q3", Score: 0.8},
				},
			}, nil
		},
	}

	r := NewResearcher(mock, "standard", fastPollOpts()...).
		WithNow(func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) })
	report, err := r.Run(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Contains(t, submittedInput, "AAPL")
	assert.Contains(t, submittedInput, "2026-08-30")

	assert.Equal(t, "AAPL", report.Ticker)
	assert.Equal(t, "Apple Inc.", report.CompanyName)
	assert.Equal(t, []string{"services growth", "buyback program"}, report.KeyInsights)

	// Sources come back sorted by descending score.
	require.Len(t, report.Sources, 2)
	assert.Equal(t, 0.8, report.Sources[0].Score)
	assert.Equal(t, 0.4, report.Sources[1].Score)
	assert.Nil(t, report.Metrics)
}

func TestResearcher_Run_CompanyNameFallsBackToTicker(t *testing.T) {
	mock := &mockTavily{
		statusFunc: func(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error) {
			return &tavily.ResearchStatusResponse{
				RequestID: requestID,
				Status:    "completed",
				Output:    json.RawMessage(`{"summary":"thin payload"}`),
			}, nil
		},
	}

	r := NewResearcher(mock, "standard", fastPollOpts()...)
	report, err := r.Run(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, "NVDA", report.CompanyName)
	assert.Empty(t, report.KeyInsights)
}

func TestResearcher_Run_SubmissionFailed(t *testing.T) {
	mock := &mockTavily{
		submitFunc: func(ctx context.Context, req tavily.ResearchRequest) (*tavily.ResearchResponse, error) {
			return nil, errors.New("503 from provider")
		},
	}

	r := NewResearcher(mock, "standard", fastPollOpts()...)
	_, err := r.Run(context.Background(), "AAPL")

	var te *model.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.ReasonSubmissionFailed, te.Reason)
	assert.Equal(t, "AAPL", te.Ticker)
}

func TestResearcher_Run_ResearchFailed(t *testing.T) {
	mock := &mockTavily{
		statusFunc: func(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error) {
			return &tavily.ResearchStatusResponse{
				RequestID: requestID,
				Status:    "failed",
				Error:     "no sources found",
			}, nil
		},
	}

	r := NewResearcher(mock, "standard", fastPollOpts()...)
	_, err := r.Run(context.Background(), "AAPL")

	var te *model.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.ReasonResearchFailed, te.Reason)
	assert.Equal(t, "no sources found", te.Message)
}

func TestResearcher_Run_PollTimeout(t *testing.T) {
	mock := &mockTavily{
		statusFunc: func(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error) {
			return &tavily.ResearchStatusResponse{RequestID: requestID, Status: "pending"}, nil
		},
	}

	opts := append(fastPollOpts(), tavily.WithMaxAttempts(2))
	r := NewResearcher(mock, "standard", opts...)
	_, err := r.Run(context.Background(), "AAPL")

	var te *model.TaskError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.ReasonPollTimeout, te.Reason)
}

func TestResearcher_Run_MalformedOutput(t *testing.T) {
	tests := []struct {
		name   string
		output json.RawMessage
	}{
		{name: "empty payload", output: nil},
		{name: "not an object", output: json.RawMessage(`["a","b"]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockTavily{
				statusFunc: func(ctx context.Context, requestID string) (*tavily.ResearchStatusResponse, error) {
					return &tavily.ResearchStatusResponse{
						RequestID: requestID,
						Status:    "completed",
						Output:    tt.output,
					}, nil
				},
			}

			r := NewResearcher(mock, "standard", fastPollOpts()...)
			_, err := r.Run(context.Background(), "AAPL")

			var te *model.TaskError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, model.ReasonMalformedResponse, te.Reason)
		})
	}
}
