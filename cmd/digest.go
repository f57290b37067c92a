package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/stock-digest/internal/model"
)

var digestCmd = &cobra.Command{
	Use:   "digest <ticker> [ticker...]",
	Short: "Generate a digest for the given tickers",
	Args:  cobra.RangeArgs(1, model.MaxTickers),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initDigest(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		start := time.Now()
		digest, err := env.Orchestrator.Generate(ctx, args)
		if err != nil {
			return eris.Wrap(err, "generate digest")
		}

		run := &model.Run{
			Tickers:     tickerKeys(digest),
			ReportCount: len(digest.Reports),
			Failures:    digest.Failures,
			DurationMS:  time.Since(start).Milliseconds(),
		}
		if err := env.Store.SaveRun(ctx, run); err != nil {
			zap.L().Warn("save run failed", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(digest)
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
