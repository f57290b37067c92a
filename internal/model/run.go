package model

import "time"

// Run is one stored digest generation: which tickers were requested, how many
// reports came back, and which tickers failed research.
type Run struct {
	ID          string      `json:"id"`
	Tickers     []string    `json:"tickers"`
	ReportCount int         `json:"report_count"`
	Failures    []TaskError `json:"failures,omitempty"`
	DurationMS  int64       `json:"duration_ms"`
	CreatedAt   time.Time   `json:"created_at"`
}
