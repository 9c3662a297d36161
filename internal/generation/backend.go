package generation

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// ContentGenerator is the slice of the genai Models service the client
// uses. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// BackendFactory builds a ContentGenerator for an API key. It is called
// once per operation so that every call uses the key resolved for it.
type BackendFactory func(ctx context.Context, apiKey string) (ContentGenerator, error)

// GenaiOptions tunes the genai-backed factory.
type GenaiOptions struct {
	// BaseURL overrides the Gemini API endpoint, e.g. for a local fake.
	BaseURL    string
	HTTPClient *http.Client
}

// GenaiBackend returns a BackendFactory that talks to the Gemini API through
// google.golang.org/genai.
func GenaiBackend(opts GenaiOptions) BackendFactory {
	return func(ctx context.Context, apiKey string) (ContentGenerator, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:      apiKey,
			Backend:     genai.BackendGeminiAPI,
			HTTPClient:  opts.HTTPClient,
			HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client.Models, nil
	}
}
