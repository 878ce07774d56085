package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/netscore/internal/ingest"
)

var ingestThreshold float64

var ingestCmd = &cobra.Command{
	Use:   "ingest <url>...",
	Short: "Score packages and submit those that meet the threshold",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScoring(ctx, cfg, "ingest")
		if err != nil {
			return err
		}

		threshold := cfg.Ingest.Threshold
		if cmd.Flags().Changed("threshold") {
			threshold = ingestThreshold
		}

		client := ingest.NewClient(cfg.Ingest.Endpoint,
			ingest.WithHTTPClient(env.HTTP),
			ingest.WithRetry(env.Retry),
		)
		outcomes := ingest.NewGate(env.Evaluator, client, threshold).Run(ctx, args)

		failed := 0
		out := cmd.OutOrStdout()
		for _, o := range outcomes {
			switch {
			case o.Err != nil:
				failed++
				fmt.Fprintf(out, "%s\terror\t%v\n", o.URL, o.Err)
			case o.Ingested:
				fmt.Fprintf(out, "%s\tingested\t%.2f\n", o.URL, o.Report.NetScore)
			default:
				fmt.Fprintf(out, "%s\tskipped\t%.2f\n", o.URL, o.Report.NetScore)
			}
		}
		if failed > 0 {
			return eris.Errorf("%d of %d packages failed", failed, len(args))
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().Float64Var(&ingestThreshold, "threshold", ingest.DefaultThreshold, "minimum NetScore to ingest (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
