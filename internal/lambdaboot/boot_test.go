package lambdaboot

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/ai-marketing-designer/internal/auth"
	"github.com/fpang/ai-marketing-designer/internal/config"
)

type fakeSSM struct {
	calls int
	param string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.calls++
	f.param = aws.ToString(in.Name)
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: aws.String("from-ssm")}}, nil
}

func TestKeySource_EnvBeatsSSM(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	f := &fakeSSM{}

	key, err := KeySource(f, config.Config{}).APIKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
	assert.Zero(t, f.calls)
}

func TestKeySource_FallsBackToSSM(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	f := &fakeSSM{}
	src := KeySource(f, config.Config{SSMParam: "/custom/param"})

	for range 2 {
		key, err := src.APIKey(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "from-ssm", key)
	}
	assert.Equal(t, 1, f.calls)
	assert.Equal(t, "/custom/param", f.param)

	key, err := auth.Resolve(context.Background(), "session-key", src)
	require.NoError(t, err)
	assert.Equal(t, "session-key", key)
}
