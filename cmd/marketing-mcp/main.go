package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-marketing-designer/internal/cli"
	"github.com/fpang/ai-marketing-designer/internal/logging"
	"github.com/fpang/ai-marketing-designer/internal/session"
)

var overrides cli.Overrides

var rootCmd = &cobra.Command{
	Use:   "marketing-mcp",
	Short: "MCP server exposing the marketing pipeline as tools",
	Long: `Marketing MCP serves the marketing pipeline over the Model Context Protocol
on stdin/stdout, for use from MCP-capable assistants. Logs go to stderr.

The server holds one session: analyze_product, select_route,
generate_content_plan, update_item, render_asset and export_assets all act
on it in turn.`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVar(&overrides.AnalysisModel, "analysis-model", "", "Model for product analysis")
	rootCmd.Flags().StringVar(&overrides.PlanningModel, "planning-model", "", "Model for content planning")
	rootCmd.Flags().StringVar(&overrides.ImageModel, "image-model", "", "Model for image rendering")
	rootCmd.Flags().IntVar(&overrides.Concurrency, "concurrency", 0, "Parallel renders in a batch")
	rootCmd.Flags().StringVar(&overrides.ArchiveMethod, "archive-method", "", "Archive compression: deflate or zstd")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, client, err := cli.Setup(overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	tools := &toolset{studio: session.NewStudio(session.New(), client, session.StudioOptions{
		RenderConcurrency: cfg.RenderConcurrency,
		ArchiveMethod:     cfg.ArchiveMethod,
	})}
	server := mcp.NewServer(&mcp.Implementation{Name: "marketing-mcp", Version: "1.0.0"}, nil)
	tools.register(server)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("analysisModel", cfg.Models.Analysis).
		Str("imageModel", cfg.Models.Image).
		Msg("MCP server listening on stdio")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
