package digest

import "github.com/sells-group/stock-digest/internal/model"

// MergeMetrics attaches successful metrics outcomes onto their matching
// reports, keyed by ticker. Reports without a successful metrics outcome keep
// a nil metrics field; metrics without a matching report are dropped (metrics
// are never emitted standalone). Each report's metrics field is written at
// most once, and the result is deterministic for identical inputs.
func MergeMetrics(reports map[string]*model.StockReport, metrics map[string]Outcome[*model.MetricsBlock]) map[string]*model.StockReport {
	for ticker, report := range reports {
		outcome, ok := metrics[ticker]
		if !ok || outcome.Failed() || outcome.Value == nil {
			continue
		}
		report.Metrics = outcome.Value
	}
	return reports
}
