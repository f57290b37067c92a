package model

import (
	"sort"
	"time"
)

// SourceRecord is one attributed citation backing a report. Immutable once
// received from the provider; ordering is not guaranteed, so consumers sort
// by score when display order matters.
type SourceRecord struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Domain        string  `json:"domain,omitempty"`
	PublishedDate string  `json:"published_date,omitempty"`
	Score         float64 `json:"score"`
}

// SortSourcesByScore orders sources by descending relevance score. The sort is
// stable so provider order breaks ties.
func SortSourcesByScore(sources []SourceRecord) {
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Score > sources[j].Score
	})
}

// MetricsBlock is a per-ticker numeric snapshot fetched via the quick
// search + extraction path. Every field is independently optional: nil means
// the value was unavailable, never zero.
type MetricsBlock struct {
	CurrentPrice     *float64 `json:"current_price,omitempty"`
	LatestOpenPrice  *float64 `json:"latest_open_price,omitempty"`
	LatestClosePrice *float64 `json:"latest_close_price,omitempty"`
	TwoYearHigh      *float64 `json:"two_year_price_high,omitempty"`
	TwoYearLow       *float64 `json:"two_year_price_low,omitempty"`
	TradingVolume    *float64 `json:"trading_volume,omitempty"`
	SharpeRatio      *float64 `json:"sharpe_ratio,omitempty"`
	AnnualizedCAGR   *float64 `json:"annualized_cagr,omitempty"`
	MaxDrawdown      *float64 `json:"max_drawdown,omitempty"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
}

// StockReport is the structured deep-research result for one ticker. Metrics
// is nil until the merge step attaches a MetricsBlock; the report is never
// mutated after merge.
type StockReport struct {
	Ticker             string         `json:"ticker"`
	CompanyName        string         `json:"company_name"`
	Summary            string         `json:"summary"`
	CurrentPerformance string         `json:"current_performance"`
	KeyInsights        []string       `json:"key_insights"`
	Recommendation     string         `json:"recommendation"`
	RiskAssessment     string         `json:"risk_assessment"`
	PriceOutlook       string         `json:"price_outlook"`
	Sources            []SourceRecord `json:"sources"`
	Metrics            *MetricsBlock  `json:"metrics,omitempty"`
}

// Digest is the final aggregated response for one request. Reports is keyed
// by ticker and holds only tickers whose research succeeded; every research
// failure appears in Failures. MarketOverview and TickerSuggestions are
// produced best-effort and pass through unchanged.
type Digest struct {
	Reports           map[string]*StockReport `json:"reports"`
	GeneratedAt       time.Time               `json:"generated_at"`
	MarketOverview    string                  `json:"market_overview,omitempty"`
	TickerSuggestions map[string]string       `json:"ticker_suggestions,omitempty"`
	Failures          []TaskError             `json:"failed_tickers"`
}
