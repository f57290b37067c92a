// Package digest implements the stock digest pipeline: bounded fan-out over
// per-ticker research and metrics tasks, polling of asynchronous research
// jobs, and the merge of both result sets into one digest.
package digest

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/stock-digest/internal/model"
)

// Outcome is the result of one task attempt for one ticker: either a value or
// a classified failure, never both.
type Outcome[T any] struct {
	Ticker string
	Value  T
	Err    *model.TaskError
}

// Failed reports whether the outcome is a failure.
func (o Outcome[T]) Failed() bool {
	return o.Err != nil
}

// TaskFunc runs one unit of per-ticker work. Failures must come back as
// *model.TaskError so outcomes carry a reason classification; any other error
// is classified by taskError as a fallback.
type TaskFunc[T any] func(ctx context.Context, ticker string) (T, error)

// DefaultLimit returns the default concurrency cap for n tickers:
// min(n, 4), matching the external providers' comfortable request rate.
func DefaultLimit(n int) int {
	if n < 4 {
		return n
	}
	return 4
}

// RunAll executes task for every ticker with at most limit in flight, and
// returns one outcome per ticker. A task failure never cancels or affects
// sibling tasks, and RunAll returns only after every ticker has produced an
// outcome. Workers write into a per-index slice; the map is assembled on the
// caller side after the barrier, so no key is ever written twice.
func RunAll[T any](ctx context.Context, tickers []string, limit int, family string, task TaskFunc[T]) map[string]Outcome[T] {
	if limit <= 0 {
		limit = DefaultLimit(len(tickers))
	}

	results := make([]Outcome[T], len(tickers))

	g := new(errgroup.Group)
	g.SetLimit(limit)

	var completed atomic.Int64
	total := len(tickers)

	for i, ticker := range tickers {
		g.Go(func() error {
			val, err := task(ctx, ticker)
			if err != nil {
				results[i] = Outcome[T]{Ticker: ticker, Err: taskError(ticker, err)}
				zap.L().Warn("task failed",
					zap.String("family", family),
					zap.String("ticker", ticker),
					zap.String("reason", string(results[i].Err.Reason)),
					zap.Error(err),
				)
			} else {
				results[i] = Outcome[T]{Ticker: ticker, Value: val}
			}
			done := completed.Add(1)
			zap.L().Info("task complete",
				zap.String("family", family),
				zap.String("ticker", ticker),
				zap.Int64("completed", done),
				zap.Int("total", total),
			)
			return nil // individual failures never abort the group
		})
	}

	_ = g.Wait()

	out := make(map[string]Outcome[T], len(results))
	for _, r := range results {
		out[r.Ticker] = r
	}
	return out
}

// taskError coerces an arbitrary task error into a *model.TaskError,
// classifying context expiry as a poll timeout (the degraded-mode behavior
// when the request-level deadline fires mid-flight).
func taskError(ticker string, err error) *model.TaskError {
	var te *model.TaskError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.NewTaskError(ticker, model.ReasonPollTimeout, "", err)
	}
	return model.NewTaskError(ticker, model.ReasonResearchFailed, "", err)
}
