package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/generation"
)

// EnsureDir creates dirPath if needed and returns its absolute form.
func EnsureDir(dirPath string) (string, error) {
	if info, err := os.Stat(dirPath); err == nil && !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dirPath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dirPath, err)
	}
	if abs, err := filepath.Abs(dirPath); err == nil {
		dirPath = abs
	}
	return dirPath, nil
}

// CheckAPIKey resolves a key from src and probes it against model.
func CheckAPIKey(ctx context.Context, src auth.Source, backend generation.BackendFactory, model string) error {
	key, err := auth.Resolve(ctx, "", src)
	if err != nil {
		return &auth.ValidationError{Type: auth.ErrTypeNoKey, Message: "No API key configured", Err: err}
	}
	if backend == nil {
		backend = generation.GenaiBackend(generation.GenaiOptions{})
	}
	gen, err := backend(ctx, key)
	if err != nil {
		return &auth.ValidationError{Type: auth.ErrTypeUnknown, Message: "Failed to create Gemini client", Err: err}
	}
	return auth.ValidateAPIKey(ctx, gen, model)
}

// ValidationHint returns the operator-facing advice for a key check failure.
func ValidationHint(err error) string {
	var validationErr *auth.ValidationError
	if !errors.As(err, &validationErr) {
		return "Unexpected error during API key validation"
	}
	switch validationErr.Type {
	case auth.ErrTypeNoKey:
		return "No API key configured. Set GEMINI_API_KEY or store one in ~/.ai-marketing-designer/credentials.gpg"
	case auth.ErrTypeInvalidKey:
		return "Invalid API key. Please check your API key and try again"
	case auth.ErrTypeNetworkError:
		return "Network error. Please check your internet connection"
	case auth.ErrTypeQuotaExceeded:
		return "API quota exceeded. Please try again later or check your usage limits"
	}
	return "API key validation failed"
}

// HandleValidationError logs the hint for err and exits.
func HandleValidationError(err error) {
	log.Fatal().Err(err).Msg(ValidationHint(err))
}
