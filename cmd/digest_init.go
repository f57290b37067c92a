package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/stock-digest/internal/digest"
	"github.com/sells-group/stock-digest/internal/store"
	anthropicpkg "github.com/sells-group/stock-digest/pkg/anthropic"
	"github.com/sells-group/stock-digest/pkg/tavily"
)

// digestEnv holds the initialized clients, orchestrator, and store needed by
// the digest and serve commands.
type digestEnv struct {
	Store        store.Store
	Orchestrator *digest.Orchestrator
}

// Close releases resources held by the environment.
func (de *digestEnv) Close() {
	if de.Store != nil {
		_ = de.Store.Close()
	}
}

// initDigest sets up the store, API clients, and the orchestrator. Callers
// should defer env.Close().
func initDigest(ctx context.Context) (*digestEnv, error) {
	if cfg.Tavily.Key == "" {
		return nil, eris.New("DIGEST_TAVILY_KEY is required")
	}
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("DIGEST_ANTHROPIC_KEY is required")
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	tavilyClient := tavily.NewClient(cfg.Tavily.Key,
		tavily.WithBaseURL(cfg.Tavily.BaseURL),
		tavily.WithRateLimit(cfg.Tavily.RateLimitRPS),
	)
	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

	var pollOpts []tavily.PollOption
	if cfg.Digest.PollIntervalSecs > 0 {
		pollOpts = append(pollOpts, tavily.WithPollInterval(time.Duration(cfg.Digest.PollIntervalSecs)*time.Second))
	}
	if cfg.Digest.MaxPollAttempts > 0 {
		pollOpts = append(pollOpts, tavily.WithMaxAttempts(cfg.Digest.MaxPollAttempts))
	}
	if cfg.Digest.TimeoutSecs > 0 {
		pollOpts = append(pollOpts, tavily.WithPollTimeout(time.Duration(cfg.Digest.TimeoutSecs)*time.Second))
	}

	researcher := digest.NewResearcher(tavilyClient, cfg.Tavily.ResearchModel, pollOpts...)
	metrics := digest.NewMetricsFetcher(tavilyClient, anthropicClient, cfg.Anthropic.ExtractModel)
	summarizer := digest.NewSummarizer(tavilyClient, anthropicClient, cfg.Anthropic.OverviewModel, cfg.Anthropic.ExtractModel)

	orch := digest.NewOrchestrator(researcher, metrics, summarizer, digest.Options{
		MaxConcurrency: cfg.Digest.MaxConcurrency,
		Timeout:        time.Duration(cfg.Digest.TimeoutSecs) * time.Second,
		Overview:       cfg.Digest.Overview,
		Suggestions:    cfg.Digest.Suggestions,
	})

	return &digestEnv{
		Store:        st,
		Orchestrator: orch,
	}, nil
}
