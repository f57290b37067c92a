package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTickers_NormalizesAndPreservesOrder(t *testing.T) {
	got, err := ValidateTickers([]string{" aapl ", "Msft", "BRK.B", "rds-a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "BRK.B", "RDS-A"}, got)
}

func TestValidateTickers_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantMsg string
	}{
		{
			name:    "empty list",
			input:   nil,
			wantMsg: "at least one ticker",
		},
		{
			name:    "too many",
			input:   []string{"A", "B", "C", "D", "E", "F"},
			wantMsg: "at most 5 tickers",
		},
		{
			name:    "blank entry",
			input:   []string{"AAPL", "  "},
			wantMsg: "empty ticker",
		},
		{
			name:    "too long",
			input:   []string{"ABCDEFGHIJK"},
			wantMsg: "exceeds 10 characters",
		},
		{
			name:    "invalid characters",
			input:   []string{"AA$PL"},
			wantMsg: "invalid characters",
		},
		{
			name:    "case-insensitive duplicate",
			input:   []string{"AAPL", "aapl"},
			wantMsg: "duplicate ticker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateTickers(tt.input)
			require.Error(t, err)

			var ire *InvalidRequestError
			require.ErrorAs(t, err, &ire)
			assert.Contains(t, ire.Detail, tt.wantMsg)
		})
	}
}

func TestTaskError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("connection refused")
	te := NewTaskError("AAPL", ReasonSubmissionFailed, "", cause)

	assert.Equal(t, "connection refused", te.Message)
	assert.ErrorIs(t, te, cause)
	assert.Contains(t, te.Error(), "AAPL")
	assert.Contains(t, te.Error(), "submission_failed")
}
