package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/stock-digest/internal/model"
)

func TestComputeRunStats(t *testing.T) {
	runs := []model.Run{
		{Tickers: []string{"AAPL"}, ReportCount: 1, DurationMS: 2000},
		{
			Tickers:     []string{"MSFT", "BAD"},
			ReportCount: 1,
			DurationMS:  4000,
			Failures: []model.TaskError{
				{Ticker: "BAD", Reason: model.ReasonPollTimeout},
			},
		},
		{
			Tickers: []string{"X", "Y"},
			Failures: []model.TaskError{
				{Ticker: "X", Reason: model.ReasonPollTimeout},
				{Ticker: "Y", Reason: model.ReasonResearchFailed},
			},
		},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.FullySuccessful)
	assert.Equal(t, 2, s.Partial)
	assert.Equal(t, 2, s.FailuresByReason[model.ReasonPollTimeout])
	assert.Equal(t, 1, s.FailuresByReason[model.ReasonResearchFailed])
	assert.InDelta(t, 2.0, s.AvgDurSecs, 0.001)
}

func TestFormatRunsList(t *testing.T) {
	runs := []model.Run{
		{
			ID:          "0123456789abcdef",
			Tickers:     []string{"AAPL", "MSFT"},
			ReportCount: 2,
			DurationMS:  90000,
			CreatedAt:   time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789abcdef")
	assert.Contains(t, out, "AAPL,MSFT")
	assert.Contains(t, out, "2026-08-30 10:30")
	assert.Contains(t, out, "1m30s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "01234567", truncateID("0123456789abcdef"))
	assert.Equal(t, "short", truncateID("short"))
}
