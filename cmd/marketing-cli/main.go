package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-marketing-designer/internal/cli"
	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/generation"
	"github.com/fpang/ai-marketing-designer/internal/logging"
)

// Flags shared by every subcommand.
var overrides cli.Overrides

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "marketing-cli",
	Short: "Turn a product photo into a marketing strategy and asset suite",
	Long: `Marketing CLI runs the two-phase marketing pipeline against the Gemini API.

Phase 1 reads a product photo and proposes marketing routes with concept
prompts. Phase 2 turns the chosen route into an eight-asset content plan
(two square main visuals and six 9:16 story slides), which can then be
rendered and packaged under machine-readable filenames.

Examples:
  marketing-cli run --photo lamp.jpg --name "Aurora Lamp" --out ./aurora
  marketing-cli analyze --photo lamp.jpg --out analysis.json
  marketing-cli plan --analysis analysis.json --route 1 --out plan.json
  marketing-cli render --plan plan.json --item img_3_hook --out ./aurora
  marketing-cli render --prompt "A frosted glass lamp on oak" --ratio 4:3 --out concept.png
  marketing-cli auth check`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&overrides.AnalysisModel, "analysis-model", "", "Model for product analysis (default "+config.ModelGemini25Flash+")")
	pf.StringVar(&overrides.PlanningModel, "planning-model", "", "Model for content planning (default "+config.ModelGemini25Flash+")")
	pf.StringVar(&overrides.ImageModel, "image-model", "", "Model for image rendering (default "+config.ModelGemini3ProImage+")")
	pf.IntVar(&overrides.Concurrency, "concurrency", 0, "Parallel renders in a batch (default from MARKETING_RENDER_CONCURRENCY or 3)")
	pf.StringVar(&overrides.ArchiveMethod, "archive-method", "", "Archive compression: deflate or zstd")

	rootCmd.AddCommand(analyzeCmd, planCmd, renderCmd, runCmd, authCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup resolves configuration and the generation client, exiting on
// configuration errors.
func setup() (config.Config, *generation.Client) {
	cfg, client, err := cli.Setup(overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg, client
}
