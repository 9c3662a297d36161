// Package config loads process configuration from the environment, an
// optional .env file and an optional YAML prompt file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/fpang/ai-marketing-designer/internal/assets"
)

// Environment variables.
const (
	EnvSSMParam          = "SSM_API_KEY_PARAM"
	EnvAnalysisModel     = "MARKETING_ANALYSIS_MODEL"
	EnvPlanningModel     = "MARKETING_PLANNING_MODEL"
	EnvImageModel        = "MARKETING_IMAGE_MODEL"
	EnvPromptsFile       = "MARKETING_PROMPTS_FILE"
	EnvRenderConcurrency = "MARKETING_RENDER_CONCURRENCY"
	EnvResponseSchema    = "MARKETING_RESPONSE_SCHEMA"
	EnvArchiveMethod     = "MARKETING_ARCHIVE_METHOD"
)

// Archive compression methods.
const (
	ArchiveDeflate = "deflate"
	ArchiveZstd    = "zstd"
)

// DefaultRenderConcurrency bounds parallel renders in a batch.
const DefaultRenderConcurrency = 3

// Config is the resolved process configuration. The API key itself is not
// held here; see the auth package.
type Config struct {
	SSMParam          string
	Models            Models
	Prompts           assets.SystemPrompts
	RenderConcurrency int
	// ResponseSchema attaches a JSON schema to structured requests.
	ResponseSchema bool
	ArchiveMethod  string
}

// promptFile is the YAML layout of MARKETING_PROMPTS_FILE.
type promptFile struct {
	Director string `yaml:"director"`
	Planner  string `yaml:"planner"`
	Models   Models `yaml:"models"`
}

// Load reads .env from the working directory when present, then the
// environment.
func Load() (Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with explicit .env paths. Missing files are skipped;
// variables already set in the environment are not overridden.
func LoadFrom(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
		log.Debug().Str("file", f).Msg("Loaded env file")
	}

	cfg := Config{
		SSMParam:          os.Getenv(EnvSSMParam),
		Models:            DefaultModels(),
		RenderConcurrency: DefaultRenderConcurrency,
		ResponseSchema:    true,
		ArchiveMethod:     ArchiveDeflate,
	}

	if path := os.Getenv(EnvPromptsFile); path != "" {
		pf, err := readPromptFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Prompts = assets.SystemPrompts{Director: pf.Director, Planner: pf.Planner}
		cfg.Models = overlay(cfg.Models, pf.Models)
	}
	cfg.Prompts = cfg.Prompts.Merge()

	cfg.Models = overlay(cfg.Models, Models{
		Analysis: os.Getenv(EnvAnalysisModel),
		Planning: os.Getenv(EnvPlanningModel),
		Image:    os.Getenv(EnvImageModel),
	})

	if v := os.Getenv(EnvRenderConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s must be a positive integer, got %q", EnvRenderConcurrency, v)
		}
		cfg.RenderConcurrency = n
	}

	if v := os.Getenv(EnvResponseSchema); v != "" {
		on, err := parseSwitch(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvResponseSchema, err)
		}
		cfg.ResponseSchema = on
	}

	if v := strings.ToLower(os.Getenv(EnvArchiveMethod)); v != "" {
		if v != ArchiveDeflate && v != ArchiveZstd {
			return Config{}, fmt.Errorf("%s must be %q or %q, got %q", EnvArchiveMethod, ArchiveDeflate, ArchiveZstd, v)
		}
		cfg.ArchiveMethod = v
	}

	return cfg, nil
}

func readPromptFile(path string) (promptFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return promptFile{}, fmt.Errorf("read prompts file: %w", err)
	}
	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return promptFile{}, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	return pf, nil
}

func overlay(base, over Models) Models {
	if over.Analysis != "" {
		base.Analysis = over.Analysis
	}
	if over.Planning != "" {
		base.Planning = over.Planning
	}
	if over.Image != "" {
		base.Image = over.Image
	}
	return base
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", v)
}
