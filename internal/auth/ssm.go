package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// DefaultSSMParam is used when SSM_API_KEY_PARAM is unset.
const DefaultSSMParam = "/ai-marketing-designer/prod/gemini-api-key"

// SSMGetter is the subset of *ssm.Client used here.
type SSMGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSM reads a SecureString parameter once and caches it for the life of the
// process.
type SSM struct {
	Client SSMGetter
	Param  string

	once sync.Once
	key  string
	err  error
}

// NewSSM returns an SSM source for param, or DefaultSSMParam when empty.
func NewSSM(client SSMGetter, param string) *SSM {
	if param == "" {
		param = DefaultSSMParam
	}
	return &SSM{Client: client, Param: param}
}

func (s *SSM) Name() string { return "ssm:" + s.Param }

func (s *SSM) APIKey(ctx context.Context) (string, error) {
	s.once.Do(func() {
		start := time.Now()
		out, err := s.Client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(s.Param),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			s.err = fmt.Errorf("read %s from SSM: %w", s.Param, err)
			return
		}
		if out.Parameter != nil {
			s.key = strings.TrimSpace(aws.ToString(out.Parameter.Value))
		}
		log.Debug().Str("param", s.Param).Dur("elapsed", time.Since(start)).Msg("Gemini API key loaded from SSM")
	})
	return s.key, s.err
}
