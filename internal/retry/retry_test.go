package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type httpErr struct {
	Status int `json:"status"`
}

func (e *httpErr) Error() string { return fmt.Sprintf("http %d", e.Status) }

type nestedErr struct {
	Err map[string]any `json:"error"`
}

func (e *nestedErr) Error() string { return "nested" }

// recordSleep returns a Sleep func that records delays without waiting.
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func failing(n int, failure error) (func(context.Context) (string, error), *int) {
	calls := 0
	return func(context.Context) (string, error) {
		calls++
		if calls <= n {
			return "", failure
		}
		return "ok", nil
	}, &calls
}

func TestDo_AttemptCount(t *testing.T) {
	transient := &httpErr{Status: 429}
	tests := []struct {
		failures   int
		maxRetries int
		wantCalls  int
		wantOK     bool
	}{
		{failures: 0, maxRetries: 3, wantCalls: 1, wantOK: true},
		{failures: 2, maxRetries: 3, wantCalls: 3, wantOK: true},
		{failures: 3, maxRetries: 3, wantCalls: 4, wantOK: true},
		{failures: 4, maxRetries: 3, wantCalls: 4, wantOK: false},
		{failures: 10, maxRetries: 5, wantCalls: 6, wantOK: false},
		{failures: 1, maxRetries: 0, wantCalls: 1, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("failures=%d/max=%d", tt.failures, tt.maxRetries), func(t *testing.T) {
			var delays []time.Duration
			op, calls := failing(tt.failures, transient)
			v, err := Do(context.Background(), Policy{
				MaxRetries:   tt.maxRetries,
				InitialDelay: time.Second,
				Factor:       2,
				Sleep:        recordSleep(&delays),
			}, op)

			assert.Equal(t, tt.wantCalls, *calls)
			assert.Len(t, delays, tt.wantCalls-1)
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, "ok", v)
			} else {
				assert.Same(t, transient, err)
			}
		})
	}
}

func TestDo_DelaySequence(t *testing.T) {
	var delays []time.Duration
	op, _ := failing(100, &httpErr{Status: 503})
	_, err := Do(context.Background(), Policy{
		MaxRetries:   5,
		InitialDelay: 5 * time.Second,
		Factor:       2,
		Sleep:        recordSleep(&delays),
	}, op)

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
	}, delays)
}

func TestDo_FatalErrorSingleAttempt(t *testing.T) {
	forbidden := genai.APIError{Code: 403, Message: "permission denied", Status: "PERMISSION_DENIED"}
	var delays []time.Duration
	op, calls := failing(100, forbidden)

	_, err := Do(context.Background(), Policy{
		MaxRetries:   5,
		InitialDelay: time.Second,
		Factor:       2,
		Sleep:        recordSleep(&delays),
	}, op)

	assert.Equal(t, 1, *calls)
	assert.Empty(t, delays)
	var apiErr genai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.Code)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var delays []time.Duration
	op, calls := failing(2, genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})

	v, err := Do(context.Background(), Policy{
		MaxRetries:   5,
		InitialDelay: 5 * time.Second,
		Factor:       2,
		Sleep:        recordSleep(&delays),
	}, op)

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, delays)
}

func TestDo_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		Factor:       2,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("network unreachable")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RealSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Do(ctx, Policy{MaxRetries: 3, InitialDelay: time.Hour, Factor: 2},
		func(context.Context) (int, error) { return 0, &httpErr{Status: 429} })

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"429 status field", &httpErr{Status: 429}, Transient},
		{"503 status field", &httpErr{Status: 503}, Transient},
		{"genai 429", genai.APIError{Code: 429}, Transient},
		{"genai 403", genai.APIError{Code: 403, Message: "denied"}, Fatal},
		{"400 status", &httpErr{Status: 400}, Fatal},
		{"nested error.code", &nestedErr{Err: map[string]any{"code": 503}}, Transient},
		{"resource exhausted text", errors.New("RESOURCE_EXHAUSTED: try later"), Transient},
		{"quota text", errors.New("Quota exceeded for project"), Transient},
		{"too many requests text", errors.New("Too Many Requests"), Transient},
		{"overloaded text", errors.New("The model is overloaded"), Transient},
		{"fetch text", errors.New("failed to fetch"), Transient},
		{"network text", errors.New("network is unreachable"), Transient},
		{"wrapped 429", fmt.Errorf("render: %w", &httpErr{Status: 429}), Transient},
		{"plain failure", errors.New("invalid argument"), Fatal},
		{"context cancelled", context.Canceled, Fatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 429, StatusOf(&httpErr{Status: 429}))
	assert.Equal(t, 403, StatusOf(genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}))
	assert.Equal(t, 503, StatusOf(&nestedErr{Err: map[string]any{"code": 503}}))
	assert.Equal(t, 503, StatusOf(fmt.Errorf("outer: %w", &httpErr{Status: 503})))
	assert.Equal(t, 0, StatusOf(errors.New("no status here")))
}

func TestPolicyDelay(t *testing.T) {
	p := Policy{InitialDelay: 2 * time.Second, Factor: 2}
	for i, want := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		assert.Equal(t, want, p.Delay(i))
	}
	flat := Policy{InitialDelay: time.Second}
	assert.Equal(t, time.Second, flat.Delay(4))
}
