// Package cli holds the bootstrap shared by the local binaries: configuration
// with flag overrides, the local API key fallback, and key validation.
package cli

import (
	"fmt"
	"os"

	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/generation"
)

// EnvPassphraseFile names a 0600 file used to decrypt the GPG credentials
// without a prompt.
const EnvPassphraseFile = "MARKETING_GPG_PASSPHRASE_FILE"

// Overrides carries flag values that take precedence over configuration.
// Zero values leave the configured value alone.
type Overrides struct {
	AnalysisModel string
	PlanningModel string
	ImageModel    string
	Concurrency   int
	ArchiveMethod string
}

// Apply returns cfg with the non-zero overrides applied.
func (o Overrides) Apply(cfg config.Config) (config.Config, error) {
	if o.AnalysisModel != "" {
		cfg.Models.Analysis = o.AnalysisModel
	}
	if o.PlanningModel != "" {
		cfg.Models.Planning = o.PlanningModel
	}
	if o.ImageModel != "" {
		cfg.Models.Image = o.ImageModel
	}
	if o.Concurrency < 0 {
		return cfg, fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	if o.Concurrency > 0 {
		cfg.RenderConcurrency = o.Concurrency
	}
	switch o.ArchiveMethod {
	case "":
	case config.ArchiveDeflate, config.ArchiveZstd:
		cfg.ArchiveMethod = o.ArchiveMethod
	default:
		return cfg, fmt.Errorf("archive method must be %q or %q, got %q", config.ArchiveDeflate, config.ArchiveZstd, o.ArchiveMethod)
	}
	return cfg, nil
}

// KeySource is the key fallback for binaries run on a workstation:
// GEMINI_API_KEY, then ~/.ai-marketing-designer/credentials.gpg.
func KeySource() auth.Source {
	return auth.Chain{
		auth.DefaultEnv,
		auth.GPGFile{PassphraseFile: os.Getenv(EnvPassphraseFile)},
	}
}

// Setup loads configuration, applies o, and builds a generation client that
// falls back to KeySource.
func Setup(o Overrides) (config.Config, *generation.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err = o.Apply(cfg)
	if err != nil {
		return config.Config{}, nil, err
	}
	opts := generation.OptionsFromConfig(cfg)
	opts.Fallback = KeySource()
	return cfg, generation.New(opts), nil
}
