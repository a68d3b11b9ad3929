// File: cmd/apps.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axdriver/axdriver-cli/internal/observability"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/platform"
)

// appsCmd lists the applications the agent could be pointed at. System
// surfaces like the Dock or Spotlight are filtered out.
var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List running applications the agent can target.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		logger := observability.GetLogger()

		backend, err := platform.New(logger)
		if err != nil {
			return fmt.Errorf("initializing platform backend: %w", err)
		}
		defer backend.Close()

		collector := perception.NewCollector(backend, logger)
		apps, err := collector.RunningApps(cmd.Context())
		if err != nil {
			return err
		}
		for _, app := range apps {
			fmt.Println(app)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(appsCmd)
}
