package digest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/stock-digest/internal/model"
	"github.com/sells-group/stock-digest/pkg/tavily"
)

// Researcher runs the deep-research task for single tickers: submit one
// asynchronous research job, poll it to completion, map the loosely-typed
// payload into a StockReport.
type Researcher struct {
	client    tavily.Client
	modelTier string
	pollOpts  []tavily.PollOption
	now       func() time.Time // injectable for testing
}

// NewResearcher creates a Researcher. pollOpts tune the poll loop (interval,
// cap, attempt budget); the defaults suit the provider's usual job latency.
func NewResearcher(client tavily.Client, modelTier string, pollOpts ...tavily.PollOption) *Researcher {
	return &Researcher{
		client:    client,
		modelTier: modelTier,
		pollOpts:  pollOpts,
		now:       time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (r *Researcher) WithNow(now func() time.Time) *Researcher {
	r.now = now
	return r
}

// Run produces a StockReport for one ticker. Every failure comes back as a
// *model.TaskError with one of: submission_failed, research_failed,
// poll_timeout, malformed_response. Partial provider content is acceptable;
// only an entirely unparseable payload fails.
func (r *Researcher) Run(ctx context.Context, ticker string) (*model.StockReport, error) {
	dateContext := r.now().Format("2006-01-02")

	submitted, err := r.client.SubmitResearch(ctx, tavily.ResearchRequest{
		Input:        fmt.Sprintf(researchPrompt, ticker, dateContext),
		OutputSchema: reportSchema,
		Model:        r.modelTier,
	})
	if err != nil {
		return nil, model.NewTaskError(ticker, model.ReasonSubmissionFailed, "", err)
	}

	zap.L().Debug("research submitted",
		zap.String("ticker", ticker),
		zap.String("request_id", submitted.RequestID),
	)

	status, err := tavily.PollResearch(ctx, r.client, submitted.RequestID, r.pollOpts...)
	if err != nil {
		var rfe *tavily.ResearchFailedError
		switch {
		case errors.As(err, &rfe):
			return nil, model.NewTaskError(ticker, model.ReasonResearchFailed, rfe.Reason, err)
		case errors.Is(err, tavily.ErrPollTimeout):
			return nil, model.NewTaskError(ticker, model.ReasonPollTimeout, "", err)
		default:
			return nil, model.NewTaskError(ticker, model.ReasonResearchFailed, "", err)
		}
	}

	report, err := mapReport(ticker, status)
	if err != nil {
		return nil, model.NewTaskError(ticker, model.ReasonMalformedResponse, "", err)
	}
	return report, nil
}

// mapReport converts the provider's raw output object into a StockReport.
// Expected fields missing from the payload map to explicit empty values; only
// a payload that is not a JSON object at all is malformed.
func mapReport(ticker string, status *tavily.ResearchStatusResponse) (*model.StockReport, error) {
	var raw map[string]any
	if len(status.Output) == 0 {
		return nil, fmt.Errorf("research %s: empty output payload", status.RequestID)
	}
	if err := json.Unmarshal(status.Output, &raw); err != nil {
		return nil, fmt.Errorf("research %s: output is not an object: %w", status.RequestID, err)
	}

	report := &model.StockReport{
		Ticker:             ticker,
		CompanyName:        stringField(raw, "company_name"),
		Summary:            stringField(raw, "summary"),
		CurrentPerformance: stringField(raw, "current_performance"),
		KeyInsights:        stringSliceField(raw, "key_insights"),
		Recommendation:     stringField(raw, "recommendation"),
		RiskAssessment:     stringField(raw, "risk_assessment"),
		PriceOutlook:       stringField(raw, "price_outlook"),
		Sources:            mapSources(status.Sources),
	}
	if report.CompanyName == "" {
		report.CompanyName = ticker
	}
	model.SortSourcesByScore(report.Sources)
	return report, nil
}

// mapSources converts provider source entries into SourceRecords with
// per-field defaults (score 0.0, date "").
func mapSources(results []tavily.SearchResult) []model.SourceRecord {
	sources := make([]model.SourceRecord, 0, len(results))
	for _, r := range results {
		sources = append(sources, model.SourceRecord{
			URL:           r.URL,
			Title:         r.Title,
			Domain:        r.Domain,
			PublishedDate: r.PublishedDate,
			Score:         r.Score,
		})
	}
	return sources
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func stringSliceField(raw map[string]any, key string) []string {
	items, _ := raw[key].([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
