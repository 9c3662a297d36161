package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/cli"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Gemini API credentials",
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Resolve the API key and verify it with a minimal request",
	Long: `Check resolves the Gemini API key the same way the pipeline does
(GEMINI_API_KEY, then ~/.ai-marketing-designer/credentials.gpg) and sends a
one-word prompt to the analysis model to confirm it works.`,
	Run: runAuthCheck,
}

func init() {
	authCmd.AddCommand(authCheckCmd)
}

func runAuthCheck(cmd *cobra.Command, args []string) {
	cfg, _ := setup()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	// The GPG source may prompt for a passphrase; resolve only once.
	key, _ := auth.Resolve(ctx, "", cli.KeySource())
	if key != "" {
		fmt.Printf("Key: %s\n", auth.Mask(key))
	}
	if err := cli.CheckAPIKey(ctx, auth.Static(key), nil, cfg.Models.Analysis); err != nil {
		cli.HandleValidationError(err)
	}
	fmt.Printf("✅ API key works with %s\n", cfg.Models.Analysis)
}
