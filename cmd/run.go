// File: cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"os"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/axdriver/axdriver-cli/internal/agent"
	"github.com/axdriver/axdriver-cli/internal/correlate"
	"github.com/axdriver/axdriver-cli/internal/executor"
	"github.com/axdriver/axdriver-cli/internal/history"
	"github.com/axdriver/axdriver-cli/internal/llmclient"
	"github.com/axdriver/axdriver-cli/internal/observability"
	"github.com/axdriver/axdriver-cli/internal/perception"
	"github.com/axdriver/axdriver-cli/internal/planner"
	"github.com/axdriver/axdriver-cli/internal/platform"
	"github.com/axdriver/axdriver-cli/internal/vision"
)

var runCmd = &cobra.Command{
	Use:   "run \"goal\"",
	Short: "Run the agent against a natural-language goal.",
	Long: `Run drives the desktop toward the given goal: it discovers the active
application's accessibility tree, fuses it with a visual read of the screen,
asks the planning oracle for the next step, and executes one step at a time
until the goal is achieved or a budget runs out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// A failed run is an outcome, not a usage error.
		cmd.SilenceUsage = true

		cfg := appConfig
		cfg.Run.Goal = args[0]
		cfg.Run.App, _ = cmd.Flags().GetString("app")
		cfg.Run.Output, _ = cmd.Flags().GetString("output")
		cfg.Run.NoSave, _ = cmd.Flags().GetBool("no-save")
		if cmd.Flags().Changed("max-iterations") {
			cfg.Agent.MaxIterations, _ = cmd.Flags().GetInt("max-iterations")
		}
		if cmd.Flags().Changed("max-errors") {
			cfg.Agent.MaxErrors, _ = cmd.Flags().GetInt("max-errors")
		}

		return runAgent(cmd.Context(), cfg.Run.Goal)
	},
}

func init() {
	runCmd.Flags().String("app", "", "target application (default: let the oracle choose)")
	runCmd.Flags().Int("max-iterations", 0, "override the iteration budget")
	runCmd.Flags().Int("max-errors", 0, "override the consecutive-error budget")
	runCmd.Flags().StringP("output", "o", "", "write the run report JSON to this file")
	runCmd.Flags().Bool("no-save", false, "do not write a run report")
	rootCmd.AddCommand(runCmd)
}

func runAgent(ctx context.Context, goal string) error {
	cfg := appConfig
	logger := observability.GetLogger()

	backend, err := platform.New(logger)
	if err != nil {
		return fmt.Errorf("initializing platform backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Backend close failed", zap.Error(err))
		}
	}()

	planClient, err := llmclient.NewGeminiClient(cfg.LLM, cfg.LLM.Model, logger)
	if err != nil {
		return fmt.Errorf("initializing planning oracle: %w", err)
	}
	visionClient, err := llmclient.NewGeminiClient(cfg.LLM, cfg.LLM.VisionModel, logger)
	if err != nil {
		return fmt.Errorf("initializing vision oracle: %w", err)
	}

	// One limiter across both oracles so combined traffic respects the floor.
	limiter := rate.NewLimiter(rate.Every(cfg.LLM.MinRequestInterval), 1)

	collector := perception.NewCollector(backend, logger)
	monitor := perception.NewSystemMonitor(func(context.Context) (int, string) {
		return backend.Power()
	}, logger)
	driverExec := executor.NewDriverExecutor(backend, cfg.Executor.SettleDelay, logger)

	a, err := agent.New(agent.Options{
		Config: cfg.Agent,
		Waits: perception.LaunchWaits{
			Browser: cfg.Perception.LaunchWaitBrowser,
			Heavy:   cfg.Perception.LaunchWaitHeavy,
			Light:   cfg.Perception.LaunchWaitLight,
			Default: cfg.Perception.LaunchWaitDefault,
		},
		Perceiver:  collector,
		Sampler:    monitor,
		Capturer:   backend,
		Analyzer:   vision.NewGeminiAnalyzer(visionClient, limiter, logger),
		Correlator: correlate.NewCorrelator(cfg.Correlate.ProximityThreshold),
		Planner:    planner.NewGeminiPlanner(planClient, limiter, cfg.LLM.Temperature, logger),
		Executor:   driverExec,
		Focuser:    driverExec,
		History:    history.NewStore(logger),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	result := a.Run(ctx, goal, cfg.Run.App)

	if err := writeReport(result, cfg.Run.Output, cfg.Run.NoSave); err != nil {
		logger.Warn("Could not write run report", zap.Error(err))
	}

	if !result.Success {
		return fmt.Errorf("run %s: %s", result.State, result.Message)
	}
	fmt.Printf("Goal achieved in %d iteration(s): %s\n", result.Iterations, result.Message)
	return nil
}

// writeReport emits the run report to the output file, or stdout when no
// file was named.
func writeReport(result agent.RunResult, output string, noSave bool) error {
	if noSave {
		return nil
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if output == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(output, data, 0o644)
}
