package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-marketing-designer/internal/cli"
	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/logging"
	"github.com/fpang/ai-marketing-designer/internal/session"
	"github.com/fpang/ai-marketing-designer/internal/webapi"
)

// CLI flags
var (
	portFlag     int
	idleTTLFlag  time.Duration
	validateFlag bool
	overrides    cli.Overrides
)

var rootCmd = &cobra.Command{
	Use:   "marketing-web",
	Short: "Local HTTP API for the marketing designer",
	Long: `Marketing Web starts a local server exposing the session-based marketing
workflow over JSON: upload a product photo, pick a route, edit the content
plan, render assets and download the archive and report.

Browsers may supply their own API key per session (PUT /api/sessions/{id}/key);
otherwise GEMINI_API_KEY or the GPG credentials file is used.

Examples:
  marketing-web
  marketing-web --port 9090
  marketing-web --image-model gemini-3-pro-image-preview --concurrency 2`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().DurationVar(&idleTTLFlag, "session-ttl", session.DefaultIdleTTL, "Drop sessions idle for longer than this")
	rootCmd.Flags().BoolVar(&validateFlag, "validate-key", true, "Probe the fallback API key at startup (warn only)")
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
	initStart := time.Now()
	logging.Init()

	cfg, client, err := cli.Setup(overrides)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Sessions can bring their own key, so a bad fallback key is not fatal.
	keyStatus := "skipped"
	if validateFlag {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		if err := cli.CheckAPIKey(ctx, cli.KeySource(), nil, cfg.Models.Analysis); err != nil {
			log.Warn().Err(err).Msg(cli.ValidationHint(err))
			keyStatus = "unavailable"
		} else {
			keyStatus = "valid"
		}
		cancel()
	}

	store := session.NewStore(idleTTLFlag)
	api := webapi.New(store, client, session.StudioOptions{
		RenderConcurrency: cfg.RenderConcurrency,
		ArchiveMethod:     cfg.ArchiveMethod,
	}, "marketing-web")

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:              addr,
		Handler:           webapi.WithCORS(api.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// A render-all batch holds the response open for several minutes.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logStartup(cfg, keyStatus, initStart)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
	}()

	log.Info().Int("port", portFlag).Msg("Starting web server")
	fmt.Printf("\n  Marketing API: http://localhost:%d/api/health\n\n", portFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func logStartup(cfg config.Config, keyStatus string, initStart time.Time) {
	logging.NewStartupLogger("marketing-web").
		CommitHash(commitHash).
		Model("analysis", cfg.Models.Analysis).
		Model("planning", cfg.Models.Planning).
		Model("image", cfg.Models.Image).
		Credential("geminiApiKey", "session,env,gpg").
		Feature("responseSchema", cfg.ResponseSchema).
		Config("fallbackKey", keyStatus).
		Config("archiveMethod", cfg.ArchiveMethod).
		Config("renderConcurrency", fmt.Sprint(cfg.RenderConcurrency)).
		Config("sessionTTL", idleTTLFlag.String()).
		InitDuration(time.Since(initStart)).
		Log()
}
