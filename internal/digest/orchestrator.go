package digest

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/stock-digest/internal/model"
)

// Options tunes digest generation.
type Options struct {
	// MaxConcurrency caps in-flight tasks per family. Zero means
	// DefaultLimit (min(ticker count, 4)).
	MaxConcurrency int
	// Timeout is the overall request deadline. On expiry, still-running
	// research tasks resolve as poll_timeout and the digest is assembled
	// from whatever succeeded. Zero disables the deadline.
	Timeout time.Duration
	// Overview enables market overview synthesis.
	Overview bool
	// Suggestions enables ticker suggestion lookup.
	Suggestions bool
}

// Orchestrator coordinates one digest generation: input validation, the
// concurrent research and metrics fan-outs, the merge, and assembly of the
// final payload with its failure list.
type Orchestrator struct {
	researcher *Researcher
	metrics    *MetricsFetcher
	summarizer *Summarizer
	opts       Options
}

// NewOrchestrator creates an Orchestrator. summarizer may be nil; overview
// and suggestions are then skipped regardless of options.
func NewOrchestrator(researcher *Researcher, metrics *MetricsFetcher, summarizer *Summarizer, opts Options) *Orchestrator {
	return &Orchestrator{
		researcher: researcher,
		metrics:    metrics,
		summarizer: summarizer,
		opts:       opts,
	}
}

// Generate produces a digest for the requested tickers. It returns an error
// only for invalid input; provider failures degrade to a partial (possibly
// empty) report map plus an explicit failure list. Research failures are
// never dropped silently; metrics failures only downgrade a report to
// "metrics omitted".
func (o *Orchestrator) Generate(ctx context.Context, tickers []string) (*model.Digest, error) {
	normalized, err := model.ValidateTickers(tickers)
	if err != nil {
		return nil, err
	}

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	limit := o.opts.MaxConcurrency
	if limit <= 0 {
		limit = DefaultLimit(len(normalized))
	}

	zap.L().Info("generating digest",
		zap.Strings("tickers", normalized),
		zap.Int("concurrency", limit),
	)

	// The research family, metrics family, and the suggestions search are
	// independent; run all three concurrently. Each family is itself a
	// bounded fan-out with a full barrier.
	var (
		researchOut map[string]Outcome[*model.StockReport]
		metricsOut  map[string]Outcome[*model.MetricsBlock]
		rawPicks    string
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		researchOut = RunAll(ctx, normalized, limit, "research", o.researcher.Run)
		return nil
	})
	g.Go(func() error {
		metricsOut = RunAll(ctx, normalized, limit, "metrics", o.metrics.Run)
		return nil
	})
	if o.opts.Suggestions && o.summarizer != nil {
		g.Go(func() error {
			text, err := o.summarizer.SearchSuggestions(ctx, normalized)
			if err != nil {
				zap.L().Warn("ticker suggestions search failed", zap.Error(err))
				return nil
			}
			rawPicks = text
			return nil
		})
	}
	_ = g.Wait()

	// Collect research successes and failures; the merge happens strictly
	// after both family barriers.
	reports := make(map[string]*model.StockReport)
	var failures []model.TaskError
	for _, ticker := range normalized {
		outcome := researchOut[ticker]
		if outcome.Failed() {
			failures = append(failures, *outcome.Err)
			continue
		}
		reports[ticker] = outcome.Value
	}

	reports = MergeMetrics(reports, metricsOut)

	digest := &model.Digest{
		Reports:     reports,
		GeneratedAt: time.Now().UTC(),
		Failures:    failures,
	}

	if o.summarizer != nil {
		if o.opts.Overview {
			overview, err := o.summarizer.MarketOverview(ctx, reports)
			if err != nil {
				zap.L().Warn("market overview failed", zap.Error(err))
			} else {
				digest.MarketOverview = overview
			}
		}
		if o.opts.Suggestions && rawPicks != "" {
			suggestions, err := o.summarizer.ExtractSuggestions(ctx, rawPicks, normalized)
			if err != nil {
				zap.L().Warn("ticker suggestions extraction failed", zap.Error(err))
			} else if len(suggestions) > 0 {
				digest.TickerSuggestions = suggestions
			}
		}
	}

	zap.L().Info("digest complete",
		zap.Int("reports", len(digest.Reports)),
		zap.Int("failures", len(digest.Failures)),
	)
	return digest, nil
}
