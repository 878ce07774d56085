package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/netscore/internal/scoring"
)

var scoreFormat string

var scoreCmd = &cobra.Command{
	Use:   "score <urls-file>",
	Short: "Score every URL in a newline-delimited file",
	Long:  "Reads one package or repository URL per line, scores each, and prints the reports sorted by NetScore, highest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(args[0])
		if err != nil {
			return eris.Wrapf(err, "open url file %q", args[0])
		}
		defer f.Close() //nolint:errcheck

		urls, err := scoring.ReadURLs(f)
		if err != nil {
			return err
		}

		env, err := initScoring(ctx, cfg, "score")
		if err != nil {
			return err
		}

		reports := scoring.EvaluateBatch(ctx, env.Evaluator, urls)
		return writeReports(cmd.OutOrStdout(), scoreFormat, reports)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreFormat, "format", formatNDJSON, "output format: ndjson, yaml, csv or table")
	rootCmd.AddCommand(scoreCmd)
}
