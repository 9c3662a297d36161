// Package retry runs upstream calls with exponential backoff, retrying only
// failures that look like rate limiting, overload or network trouble.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/errtext"
)

// logErrorChars bounds the error text attached to retry log events.
const logErrorChars = 300

// Policy configures Do. The zero value makes a single attempt.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// Factor multiplies the delay after each retry. Values below 1 are
	// treated as 1.
	Factor float64
	// Op names the operation in log events.
	Op string
	// Sleep waits for d or until ctx is done. Nil means a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait before retry number i (0-based).
func (p Policy) Delay(i int) time.Duration {
	f := p.Factor
	if f < 1 {
		f = 1
	}
	return time.Duration(float64(p.InitialDelay) * math.Pow(f, float64(i)))
}

// Do calls op until it succeeds, fails with a non-transient error, or
// MaxRetries retries have been made. On failure the last error from op is
// returned as is.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}

		class, status := classify(err)
		if class == Fatal || attempt >= p.MaxRetries || ctx.Err() != nil {
			return zero, err
		}

		delay := p.Delay(attempt)
		log.Warn().
			Str("op", p.Op).
			Int("attempt", attempt+1).
			Int("maxAttempts", p.MaxRetries+1).
			Int("status", status).
			Dur("delay", delay).
			Str("error", errtext.Truncate(errtext.Serialize(err), logErrorChars)).
			Msg("Transient upstream failure, retrying")

		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return zero, err
		}
	}
}

// Sleep waits for d, returning ctx.Err() if the context ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
