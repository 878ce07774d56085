package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/netscore/internal/model"
)

var rateFormat string

var rateCmd = &cobra.Command{
	Use:   "rate <url>",
	Short: "Score a single package or repository URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initScoring(cmd.Context(), cfg, "score")
		if err != nil {
			return err
		}

		report, ok := env.Evaluator.Evaluate(cmd.Context(), args[0])
		if !ok {
			return eris.Errorf("unsupported url %q", args[0])
		}
		return writeReports(cmd.OutOrStdout(), rateFormat, []*model.ScoreReport{report})
	},
}

func init() {
	rateCmd.Flags().StringVar(&rateFormat, "format", formatNDJSON, "output format: ndjson, yaml, csv or table")
	rootCmd.AddCommand(rateCmd)
}
