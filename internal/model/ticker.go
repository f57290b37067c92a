package model

import (
	"fmt"
	"strings"
)

const (
	// MaxTickers caps the number of tickers in one digest request.
	MaxTickers = 5
	// MaxTickerLen caps the length of a single ticker symbol.
	MaxTickerLen = 10
)

// ValidateTickers checks and normalizes a requested ticker list: 1..MaxTickers
// entries, each non-empty, at most MaxTickerLen chars, restricted charset, no
// case-insensitive duplicates. Returns the uppercased tickers in input order.
// Performs no I/O so callers can fail fast before spending network calls.
func ValidateTickers(tickers []string) ([]string, error) {
	if len(tickers) == 0 {
		return nil, &InvalidRequestError{Detail: "at least one ticker is required"}
	}
	if len(tickers) > MaxTickers {
		return nil, &InvalidRequestError{Detail: fmt.Sprintf("at most %d tickers per request, got %d", MaxTickers, len(tickers))}
	}

	normalized := make([]string, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	for _, raw := range tickers {
		t := strings.ToUpper(strings.TrimSpace(raw))
		if t == "" {
			return nil, &InvalidRequestError{Detail: "empty ticker"}
		}
		if len(t) > MaxTickerLen {
			return nil, &InvalidRequestError{Detail: fmt.Sprintf("ticker %q exceeds %d characters", raw, MaxTickerLen)}
		}
		if !validTickerChars(t) {
			return nil, &InvalidRequestError{Detail: fmt.Sprintf("ticker %q contains invalid characters", raw)}
		}
		if seen[t] {
			return nil, &InvalidRequestError{Detail: fmt.Sprintf("duplicate ticker %q", t)}
		}
		seen[t] = true
		normalized = append(normalized, t)
	}
	return normalized, nil
}

// validTickerChars allows uppercase alphanumerics plus the separators seen in
// class shares and foreign listings (BRK.B, RDS-A).
func validTickerChars(t string) bool {
	for _, r := range t {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return false
		}
	}
	return true
}
