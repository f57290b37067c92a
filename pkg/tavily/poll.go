package tavily

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial = 2 * time.Second
	defaultPollCap     = 15 * time.Second
	defaultPollTimeout = 5 * time.Minute
)

// ErrPollTimeout is returned when a research job does not reach a terminal
// status within the attempt or wall-clock budget.
var ErrPollTimeout = errors.New("tavily: research poll timed out")

// ResearchFailedError is returned when the provider reports a research job as
// failed, carrying the provider-supplied reason.
type ResearchFailedError struct {
	RequestID string
	Reason    string
}

func (e *ResearchFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("tavily: research %s failed", e.RequestID)
	}
	return fmt.Sprintf("tavily: research %s failed: %s", e.RequestID, e.Reason)
}

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial     time.Duration
	cap         time.Duration
	timeout     time.Duration
	maxAttempts int
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial: defaultPollInitial,
		cap:     defaultPollCap,
		timeout: defaultPollTimeout,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollTimeout overrides the default timeout (applied only if the parent
// context has no deadline).
func WithPollTimeout(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.timeout = d
	}
}

// WithMaxAttempts caps the number of status fetches. Zero means unlimited
// (bounded only by the timeout).
func WithMaxAttempts(n int) PollOption {
	return func(c *pollConfig) {
		c.maxAttempts = n
	}
}

// PollResearch polls GetResearchStatus until the job completes, fails, or the
// attempt/deadline budget runs out. Uses exponential backoff: 2s -> 4s -> 8s
// -> 15s (capped). Any status other than "completed" and "failed" is treated
// as still running. The sleep between polls suspends on the context so
// sibling tasks are never blocked.
func PollResearch(ctx context.Context, client Client, requestID string, opts ...PollOption) (*ResearchStatusResponse, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	interval := cfg.initial
	for attempt := 1; ; attempt++ {
		status, err := client.GetResearchStatus(ctx, requestID)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("tavily: poll research %s", requestID))
		}

		switch status.Status {
		case "completed":
			return status, nil
		case "failed":
			return nil, &ResearchFailedError{RequestID: requestID, Reason: status.Error}
		}

		if cfg.maxAttempts > 0 && attempt >= cfg.maxAttempts {
			return nil, eris.Wrap(ErrPollTimeout, fmt.Sprintf("research %s still %q after %d attempts", requestID, status.Status, attempt))
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ErrPollTimeout, fmt.Sprintf("research %s: %v", requestID, ctx.Err()))
		case <-time.After(interval):
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}
}
