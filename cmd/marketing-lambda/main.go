// Command marketing-lambda serves the marketing API behind API Gateway v2.
//
// Sessions live in the memory of a warm execution environment; the CDN in
// front pins a browser to one origin and injects x-origin-verify.
package main

import (
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-marketing-designer/internal/config"
	"github.com/fpang/ai-marketing-designer/internal/generation"
	"github.com/fpang/ai-marketing-designer/internal/lambdaboot"
	"github.com/fpang/ai-marketing-designer/internal/logging"
	"github.com/fpang/ai-marketing-designer/internal/session"
	"github.com/fpang/ai-marketing-designer/internal/webapi"
)

var (
	api                *webapi.Server
	originVerifySecret string
)

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	awsClients := lambdaboot.InitAWS()
	opts := generation.OptionsFromConfig(cfg)
	opts.Fallback = lambdaboot.KeySource(awsClients.SSM, cfg)
	client := generation.New(opts)

	originVerifySecret = os.Getenv("ORIGIN_VERIFY_SECRET")
	if originVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}

	api = webapi.New(session.NewStore(session.DefaultIdleTTL), client, session.StudioOptions{
		RenderConcurrency: cfg.RenderConcurrency,
		ArchiveMethod:     cfg.ArchiveMethod,
	}, "marketing-lambda")

	ssmParam := cfg.SSMParam
	if ssmParam == "" {
		ssmParam = "default"
	}
	lambdaboot.StartupLog("marketing-lambda", initStart).
		CommitHash(commitHash).
		Model("analysis", cfg.Models.Analysis).
		Model("planning", cfg.Models.Planning).
		Model("image", cfg.Models.Image).
		Credential("geminiApiKey", opts.Fallback.Name()).
		Feature("originVerify", originVerifySecret != "").
		Feature("responseSchema", cfg.ResponseSchema).
		Config("ssmParam", ssmParam).
		Config("archiveMethod", cfg.ArchiveMethod).
		Log()
}

func main() {
	handler := webapi.WithOriginVerify(originVerifySecret, api.Handler())
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
