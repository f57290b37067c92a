package digest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sells-group/stock-digest/internal/model"
	"github.com/sells-group/stock-digest/pkg/anthropic"
	"github.com/sells-group/stock-digest/pkg/tavily"
)

// metricsResultCount is the fixed number of search hits requested per ticker.
const metricsResultCount = 5

// MetricsFetcher runs the quick metrics task for single tickers: one
// finance-topic search, then structured extraction of the snippets into a
// MetricsBlock.
type MetricsFetcher struct {
	search  tavily.Client
	extract anthropic.Client
	model   string
}

// NewMetricsFetcher creates a MetricsFetcher using the given extraction model.
func NewMetricsFetcher(search tavily.Client, extract anthropic.Client, extractModel string) *MetricsFetcher {
	return &MetricsFetcher{
		search:  search,
		extract: extract,
		model:   extractModel,
	}
}

// Run produces a MetricsBlock for one ticker. Failures come back as
// *model.TaskError with no_data (empty search) or extraction_failed
// (no parseable structure). Individual unparseable numeric fields become
// absent values, never failures.
func (m *MetricsFetcher) Run(ctx context.Context, ticker string) (*model.MetricsBlock, error) {
	resp, err := m.search.Search(ctx, tavily.SearchRequest{
		Query:      fmt.Sprintf("Tell me about the stock %s", ticker),
		Topic:      "finance",
		MaxResults: metricsResultCount,
	})
	if err != nil {
		return nil, model.NewTaskError(ticker, model.ReasonNoData, "", err)
	}
	if len(resp.Results) == 0 {
		return nil, model.NewTaskError(ticker, model.ReasonNoData, fmt.Sprintf("no finance search results for %s", ticker), nil)
	}

	var b strings.Builder
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "Title: %s\nURL: %s\nContent: %s\n\n", r.Title, r.URL, r.Content)
	}

	raw, err := anthropic.ExtractStructured(ctx, m.extract, m.model,
		fmt.Sprintf(metricsInstructions, ticker), metricsSchema, b.String())
	if err != nil {
		return nil, model.NewTaskError(ticker, model.ReasonExtractionFailed, "", err)
	}

	return coerceMetrics(raw), nil
}

// coerceMetrics maps the extractor's loose JSON object into a MetricsBlock,
// parsing numeric strings where unambiguous and dropping anything else.
func coerceMetrics(raw map[string]any) *model.MetricsBlock {
	return &model.MetricsBlock{
		CurrentPrice:     numericField(raw, "current_price"),
		LatestOpenPrice:  numericField(raw, "latest_open_price"),
		LatestClosePrice: numericField(raw, "latest_close_price"),
		TwoYearHigh:      numericField(raw, "two_year_price_high"),
		TwoYearLow:       numericField(raw, "two_year_price_low"),
		TradingVolume:    numericField(raw, "trading_volume"),
		SharpeRatio:      numericField(raw, "sharpe_ratio"),
		AnnualizedCAGR:   numericField(raw, "annualized_cagr"),
		MaxDrawdown:      numericField(raw, "max_drawdown"),
		MarketCap:        numericField(raw, "market_cap"),
	}
}

// numericField returns the field as *float64, coercing strings like
// "$1,234.56", "3.2%", or "1.5B" to numbers. Unparseable values are absent.
func numericField(raw map[string]any, key string) *float64 {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		if f, ok := parseNumericString(n); ok {
			return &f
		}
	}
	return nil
}

// parseNumericString parses a human-formatted number: currency symbols,
// thousands separators, percent signs, and B/M/K magnitude suffixes.
func parseNumericString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "T"):
		multiplier = 1e12
		s = strings.TrimSuffix(s, "T")
	case strings.HasSuffix(s, "B"):
		multiplier = 1e9
		s = strings.TrimSuffix(s, "B")
	case strings.HasSuffix(s, "M"):
		multiplier = 1e6
		s = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "K"):
		multiplier = 1e3
		s = strings.TrimSuffix(s, "K")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f * multiplier, true
}
