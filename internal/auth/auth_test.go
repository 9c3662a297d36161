package auth

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/fpang/ai-marketing-designer/internal/metrics"
)

func TestResolve_SessionKeyWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	key, err := Resolve(context.Background(), "session-key", DefaultEnv)
	require.NoError(t, err)
	assert.Equal(t, "session-key", key)
}

func TestResolve_FallsBackToEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	key, err := Resolve(context.Background(), "  ", DefaultEnv)
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)
}

func TestResolve_NoKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := Resolve(context.Background(), "", DefaultEnv)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = Resolve(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

type failingSource struct{}

func (failingSource) Name() string                           { return "broken" }
func (failingSource) APIKey(context.Context) (string, error) { return "", errors.New("boom") }

func TestChain_SkipsFailingSources(t *testing.T) {
	c := Chain{failingSource{}, Static(""), Static("third")}
	key, err := c.APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "third", key)
	assert.Equal(t, "broken,session,session", c.Name())
}

func TestGPGFile_MissingFileHasNoKey(t *testing.T) {
	key, err := GPGFile{Path: filepath.Join(t.TempDir(), "nope.gpg")}.APIKey(context.Background())
	require.NoError(t, err)
	assert.Empty(t, key)
}

type fakeSSM struct {
	calls int
	value string
	err   error
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(f.value)}}, nil
}

func TestSSM_LoadsOnce(t *testing.T) {
	fake := &fakeSSM{value: "ssm-key\n"}
	src := NewSSM(fake, "")
	assert.Equal(t, "ssm:"+DefaultSSMParam, src.Name())

	for i := 0; i < 3; i++ {
		key, err := src.APIKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ssm-key", key)
	}
	assert.Equal(t, 1, fake.calls)
}

func TestSSM_ErrorFallsThroughChain(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	chain := Chain{DefaultEnv, NewSSM(&fakeSSM{err: errors.New("denied")}, "/x")}
	key, err := Resolve(context.Background(), "", chain)
	require.NoError(t, err)
	assert.Equal(t, "env-key", key)

	t.Setenv("GEMINI_API_KEY", "")
	_, err = Resolve(context.Background(), "", Chain{DefaultEnv, NewSSM(&fakeSSM{err: errors.New("denied")}, "/x")})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********cdef", Mask("123456abcdef"))
	assert.Equal(t, "***", Mask("abc"))
}

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f fakeGenerator) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return f.resp, f.err
}

func TestValidateAPIKey(t *testing.T) {
	var buf bytes.Buffer
	prev := metrics.SetOutput(&buf)
	t.Cleanup(func() { metrics.SetOutput(prev) })

	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}
	require.NoError(t, ValidateAPIKey(context.Background(), fakeGenerator{resp: ok}, "m"))
	assert.Contains(t, buf.String(), `"Result":"success"`)

	tests := []struct {
		name string
		gen  fakeGenerator
		want ValidationErrorType
	}{
		{"403", fakeGenerator{err: genai.APIError{Code: 403}}, ErrTypeInvalidKey},
		{"429", fakeGenerator{err: genai.APIError{Code: 429}}, ErrTypeQuotaExceeded},
		{"503", fakeGenerator{err: genai.APIError{Code: 503}}, ErrTypeNetworkError},
		{"dial", fakeGenerator{err: errors.New("dial tcp: no such host")}, ErrTypeNetworkError},
		{"text invalid", fakeGenerator{err: errors.New("API key not valid")}, ErrTypeInvalidKey},
		{"empty", fakeGenerator{resp: &genai.GenerateContentResponse{}}, ErrTypeUnknown},
		{"no key", fakeGenerator{err: ErrNoAPIKey}, ErrTypeNoKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(context.Background(), tt.gen, "m")
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.want, ve.Type)
		})
	}
}
