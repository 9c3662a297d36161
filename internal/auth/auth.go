// Package auth resolves the Gemini API key. A key persisted on the session
// always wins; otherwise a process-level fallback chain is consulted
// (environment, GPG-encrypted file, SSM Parameter Store).
package auth

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrNoAPIKey is returned when no source yields a key.
var ErrNoAPIKey = errors.New("API key not found: set one on the session or export GEMINI_API_KEY")

// Source yields an API key. An empty key with a nil error means the source
// has nothing to offer and the next one should be tried.
type Source interface {
	Name() string
	APIKey(ctx context.Context) (string, error)
}

// Static is a fixed key, e.g. the one persisted on a session.
type Static string

func (Static) Name() string { return "session" }

func (s Static) APIKey(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// Env reads the key from an environment variable.
type Env string

// DefaultEnv is the GEMINI_API_KEY variable.
const DefaultEnv Env = "GEMINI_API_KEY"

func (e Env) Name() string { return "env:" + string(e) }

func (e Env) APIKey(context.Context) (string, error) {
	return strings.TrimSpace(os.Getenv(string(e))), nil
}

// Chain tries each source in order and returns the first non-empty key.
// Source errors are logged and skipped.
type Chain []Source

func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name()
	}
	return strings.Join(names, ",")
}

func (c Chain) APIKey(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		key, err := src.APIKey(ctx)
		if err != nil {
			log.Debug().Err(err).Str("source", src.Name()).Msg("API key source failed")
			continue
		}
		if key != "" {
			log.Debug().Str("source", src.Name()).Msg("Using API key")
			return key, nil
		}
	}
	return "", nil
}

// Resolve returns the session key when set, else the first key the
// fallback yields. It fails with ErrNoAPIKey when neither has one.
func Resolve(ctx context.Context, sessionKey string, fallback Source) (string, error) {
	srcs := Chain{Static(sessionKey)}
	if fallback != nil {
		srcs = append(srcs, fallback)
	}
	key, _ := srcs.APIKey(ctx)
	if key == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// Mask renders a key for display, keeping only the last four characters.
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
