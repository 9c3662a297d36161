// Package generation is the client for the external generation service: the
// two structured stages (strategy analysis, content planning) and per-asset
// image rendering.
//
// Every call resolves its API key first, runs through the backoff retrier,
// and converts whatever goes wrong into a *Error with a Kind. Raw SDK errors
// never leave this package.
package generation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-marketing-designer/internal/assets"
	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/errtext"
	"github.com/fpang/ai-marketing-designer/internal/metrics"
	"github.com/fpang/ai-marketing-designer/internal/retry"
)

// Retry policies. Image rendering is more rate-limit prone than the text
// stages, so it retries longer.
var (
	TextRetry  = retry.Policy{MaxRetries: 3, InitialDelay: 2 * time.Second, Factor: 2}
	ImageRetry = retry.Policy{MaxRetries: 5, InitialDelay: 5 * time.Second, Factor: 2}
)

// PlanThinkingBudget is the deliberation budget granted to the planning
// stage for better structural consistency.
const PlanThinkingBudget int32 = 2048

// ImageSize is the resolution tier requested for every render.
const ImageSize = "1K"

// Options configures a Client.
type Options struct {
	Models  config.Models
	Prompts assets.SystemPrompts
	// ResponseSchema attaches a derived JSON schema to structured requests.
	ResponseSchema bool
	// Backend defaults to GenaiBackend(GenaiOptions{}).
	Backend BackendFactory
	// Fallback is consulted when the session has no key.
	Fallback auth.Source
	// Sleep replaces the retry delay; tests use it to avoid waiting.
	Sleep func(ctx context.Context, d time.Duration) error
}

// OptionsFromConfig maps process configuration onto client options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Models:         cfg.Models,
		Prompts:        cfg.Prompts,
		ResponseSchema: cfg.ResponseSchema,
	}
}

// Client issues generation requests. It holds no per-request state and is
// safe for concurrent use.
type Client struct {
	opts  Options
	creds auth.Source
}

// New creates a Client. Zero-valued models and prompts fall back to the
// built-in defaults.
func New(opts Options) *Client {
	def := config.DefaultModels()
	if opts.Models.Analysis == "" {
		opts.Models.Analysis = def.Analysis
	}
	if opts.Models.Planning == "" {
		opts.Models.Planning = def.Planning
	}
	if opts.Models.Image == "" {
		opts.Models.Image = def.Image
	}
	opts.Prompts = opts.Prompts.Merge()
	if opts.Backend == nil {
		opts.Backend = GenaiBackend(GenaiOptions{})
	}
	return &Client{opts: opts}
}

// WithCredentials returns a Client that asks src for a key before the
// process-level fallback. Sessions pass themselves here.
func (c *Client) WithCredentials(src auth.Source) *Client {
	cp := *c
	cp.creds = src
	return &cp
}

// Models reports the configured model IDs.
func (c *Client) Models() config.Models {
	return c.opts.Models
}

// backend resolves the key and builds a generator. Missing credentials fail
// here, before any network traffic.
func (c *Client) backend(ctx context.Context, op string) (ContentGenerator, error) {
	var sessionKey string
	if c.creds != nil {
		sessionKey, _ = c.creds.APIKey(ctx)
	}
	key, err := auth.Resolve(ctx, sessionKey, c.opts.Fallback)
	if err != nil {
		return nil, newError(KindAuth, op, err, "%s failed: no API key configured", op)
	}
	gen, err := c.opts.Backend(ctx, key)
	if err != nil {
		return nil, newError(KindFatal, op, err, "%s failed: %s", op, errtext.Serialize(err))
	}
	return gen, nil
}

// call sends one request through the retrier and records metrics. Upstream
// failures come back as *Error.
func (c *Client) call(ctx context.Context, op, model string, policy retry.Policy, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	gen, err := c.backend(ctx, op)
	if err != nil {
		return nil, err
	}

	policy.Op = op
	if c.opts.Sleep != nil {
		policy.Sleep = c.opts.Sleep
	}

	attempts := 0
	start := time.Now()
	resp, err := retry.Do(ctx, policy, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		attempts++
		return gen.GenerateContent(ctx, model, contents, cfg)
	})
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.New(metrics.Namespace).
		Dimension("Operation", op).
		Dimension("Outcome", outcome).
		Metric("GenerationLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("GenerationAttempts", float64(attempts), metrics.UnitCount).
		Property("model", model).
		Flush()

	if err != nil {
		log.Error().
			Str("op", op).
			Str("model", model).
			Int("attempts", attempts).
			Dur("duration", elapsed).
			Str("error", errtext.Truncate(errtext.Serialize(err), 300)).
			Msg("Generation call failed")
		return nil, upstreamError(op, err, attempts)
	}

	log.Info().
		Str("op", op).
		Str("model", model).
		Int("attempts", attempts).
		Dur("duration", elapsed).
		Msg("Generation call complete")
	return resp, nil
}

// upstreamError classifies a failure that survived the retrier.
func upstreamError(op string, err error, attempts int) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTransient, op, err, "%s cancelled after %d attempt(s): %v", op, attempts, err)
	}
	if retry.Classify(err) == retry.Transient {
		return newError(KindTransient, op, err, "%s failed after %d attempts: %s", op, attempts, errtext.Serialize(err))
	}
	return newError(KindFatal, op, err, "%s failed: %s", op, errtext.Serialize(err))
}
