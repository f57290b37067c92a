// Package store persists digest run history.
package store

import (
	"context"

	"github.com/sells-group/stock-digest/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Ticker string `json:"ticker,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	SaveRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
