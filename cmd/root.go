package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/netscore/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "netscore",
	Short:        "Package trustworthiness scoring",
	Long:         "Scores open-source packages on ramp-up, correctness, bus factor, maintainer responsiveness, license, pinned dependencies and reviewed code, and combines them into a NetScore.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
