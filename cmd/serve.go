package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stock-digest/internal/model"
	"github.com/sells-group/stock-digest/internal/store"
)

var servePort int

// digestRunner is the orchestrator surface the HTTP handler needs.
type digestRunner interface {
	Generate(ctx context.Context, tickers []string) (*model.Digest, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the digest HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initDigest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Orchestrator, env.Store, cfg.Server.AllowedOrigins),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP routing table.
func newRouter(orch digestRunner, st store.Store, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/stock-digest", handleDigest(orch, st))

	return r
}

// handleDigest runs one digest generation per request. Invalid input is the
// only client error; provider failures still produce a 200 with a partial
// digest and its failure list.
func handleDigest(orch digestRunner, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tickers []string `json:"tickers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		start := time.Now()
		digest, err := orch.Generate(r.Context(), req.Tickers)
		if err != nil {
			var ire *model.InvalidRequestError
			if errors.As(err, &ire) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": ire.Detail})
				return
			}
			zap.L().Error("digest generation failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "digest generation failed"})
			return
		}

		if st != nil {
			run := &model.Run{
				Tickers:     tickerKeys(digest),
				ReportCount: len(digest.Reports),
				Failures:    digest.Failures,
				DurationMS:  time.Since(start).Milliseconds(),
			}
			if err := st.SaveRun(r.Context(), run); err != nil {
				zap.L().Warn("save run failed", zap.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, digest)
	}
}

// tickerKeys reconstructs the requested set from the digest: every ticker
// lands in either the report map or the failure list.
func tickerKeys(d *model.Digest) []string {
	tickers := make([]string, 0, len(d.Reports)+len(d.Failures))
	for t := range d.Reports {
		tickers = append(tickers, t)
	}
	for _, f := range d.Failures {
		tickers = append(tickers, f.Ticker)
	}
	return tickers
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
