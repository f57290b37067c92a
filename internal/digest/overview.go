package digest

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/stock-digest/internal/model"
	"github.com/sells-group/stock-digest/pkg/anthropic"
	"github.com/sells-group/stock-digest/pkg/tavily"
)

// tickerPattern gates suggestion keys: plain 2-5 letter symbols only.
var tickerPattern = regexp.MustCompile(`^[A-Z]{2,5}$`)

// Summarizer produces the best-effort digest extras: the market overview and
// ticker suggestions. Both degrade to empty values on any failure.
type Summarizer struct {
	search        tavily.Client
	llm           anthropic.Client
	overviewModel string
	extractModel  string
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(search tavily.Client, llm anthropic.Client, overviewModel, extractModel string) *Summarizer {
	return &Summarizer{
		search:        search,
		llm:           llm,
		overviewModel: overviewModel,
		extractModel:  extractModel,
	}
}

// MarketOverview synthesizes one overview text from the generated reports.
// Returns "" when there are no reports.
func (s *Summarizer) MarketOverview(ctx context.Context, reports map[string]*model.StockReport) (string, error) {
	if len(reports) == 0 {
		return "", nil
	}

	// Stable ticker order keeps the prompt (and cost) deterministic.
	tickers := make([]string, 0, len(reports))
	for t := range reports {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var b strings.Builder
	for _, t := range tickers {
		r := reports[t]
		fmt.Fprintf(&b, "TICKER: %s\nCOMPANY: %s\nSUMMARY: %s\nCURRENT PERFORMANCE: %s\nKEY INSIGHTS: %s\nRECOMMENDATION: %s\nRISK ASSESSMENT: %s\nPRICE OUTLOOK: %s\n\n",
			r.Ticker, r.CompanyName, r.Summary, r.CurrentPerformance,
			strings.Join(r.KeyInsights, "; "), r.Recommendation, r.RiskAssessment, r.PriceOutlook)
	}

	resp, err := s.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.overviewModel,
		MaxTokens: 2048,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(overviewPrompt, b.String())},
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "overview: synthesize")
	}
	return resp.Text(), nil
}

// SearchSuggestions fetches raw market commentary about new picks, excluding
// the requested tickers. Returns "" when the search yields nothing usable.
func (s *Summarizer) SearchSuggestions(ctx context.Context, exclude []string) (string, error) {
	resp, err := s.search.Search(ctx, tavily.SearchRequest{
		Query:       fmt.Sprintf(suggestionsQuery, strings.Join(exclude, " ")),
		Topic:       "news",
		SearchDepth: "advanced",
		MaxResults:  8,
	})
	if err != nil {
		return "", eris.Wrap(err, "suggestions: search")
	}

	if resp.Answer != "" {
		return resp.Answer, nil
	}
	var parts []string
	for i, r := range resp.Results {
		if i >= 6 {
			break
		}
		if r.Content != "" {
			parts = append(parts, r.Content)
		}
	}
	return strings.Join(parts, " "), nil
}

// ExtractSuggestions turns raw commentary into a ticker-to-reason map,
// keeping only keys that look like real symbols and are not in exclude.
func (s *Summarizer) ExtractSuggestions(ctx context.Context, rawText string, exclude []string) (map[string]string, error) {
	if len(strings.TrimSpace(rawText)) < 50 {
		return map[string]string{}, nil
	}

	raw, err := anthropic.ExtractStructured(ctx, s.llm, s.extractModel,
		fmt.Sprintf(suggestionsInstructions, strings.Join(exclude, ", ")), suggestionsSchema, rawText)
	if err != nil {
		return nil, eris.Wrap(err, "suggestions: extract")
	}

	excluded := make(map[string]bool, len(exclude))
	for _, t := range exclude {
		excluded[t] = true
	}

	suggestions := make(map[string]string)
	for ticker, v := range raw {
		reason, _ := v.(string)
		reason = strings.TrimSpace(reason)
		if reason == "" || excluded[ticker] || !tickerPattern.MatchString(ticker) {
			continue
		}
		suggestions[ticker] = reason
	}
	return suggestions, nil
}
