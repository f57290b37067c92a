package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/stock-digest/internal/model"
	"github.com/sells-group/stock-digest/internal/store"
)

// mockRunner implements digestRunner with a canned digest.
type mockRunner struct {
	digest *model.Digest
	err    error
}

func (m *mockRunner) Generate(_ context.Context, tickers []string) (*model.Digest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.digest, nil
}

// memStore implements store.Store in memory for handler tests.
type memStore struct {
	saved []*model.Run
}

func (m *memStore) SaveRun(_ context.Context, run *model.Run) error {
	m.saved = append(m.saved, run)
	return nil
}

func (m *memStore) GetRun(context.Context, string) (*model.Run, error) { return nil, nil }

func (m *memStore) ListRuns(context.Context, store.RunFilter) ([]model.Run, error) {
	return nil, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func postDigest(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/stock-digest", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router := newRouter(&mockRunner{}, &memStore{}, []string{"*"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleDigest_Success(t *testing.T) {
	st := &memStore{}
	runner := &mockRunner{
		digest: &model.Digest{
			Reports: map[string]*model.StockReport{
				"AAPL": {Ticker: "AAPL", CompanyName: "Apple Inc."},
			},
			GeneratedAt: time.Now().UTC(),
			Failures: []model.TaskError{
				{Ticker: "BAD", Reason: model.ReasonResearchFailed, Message: "provider error"},
			},
		},
	}
	router := newRouter(runner, st, []string{"*"})

	rec := postDigest(t, router, `{"tickers":["AAPL","BAD"]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reports  map[string]json.RawMessage `json:"reports"`
		Failures []model.TaskError          `json:"failed_tickers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Reports, "AAPL")
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "BAD", resp.Failures[0].Ticker)

	// The run record lands in the store with both tickers accounted for.
	require.Len(t, st.saved, 1)
	assert.ElementsMatch(t, []string{"AAPL", "BAD"}, st.saved[0].Tickers)
	assert.Equal(t, 1, st.saved[0].ReportCount)
}

func TestHandleDigest_InvalidBody(t *testing.T) {
	router := newRouter(&mockRunner{}, &memStore{}, []string{"*"})

	rec := postDigest(t, router, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDigest_InvalidRequest(t *testing.T) {
	st := &memStore{}
	runner := &mockRunner{err: &model.InvalidRequestError{Detail: "duplicate ticker \"AAPL\""}}
	router := newRouter(runner, st, []string{"*"})

	rec := postDigest(t, router, `{"tickers":["AAPL","AAPL"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate ticker")
	assert.Empty(t, st.saved)
}

func TestTickerKeys(t *testing.T) {
	d := &model.Digest{
		Reports: map[string]*model.StockReport{
			"AAPL": {Ticker: "AAPL"},
			"MSFT": {Ticker: "MSFT"},
		},
		Failures: []model.TaskError{
			{Ticker: "BAD", Reason: model.ReasonPollTimeout},
		},
	}
	assert.ElementsMatch(t, []string{"AAPL", "MSFT", "BAD"}, tickerKeys(d))
}
