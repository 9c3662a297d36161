package generation

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-marketing-designer/internal/imageprep"
	"github.com/fpang/ai-marketing-designer/internal/marketing"
)

// Render generates one image and returns it as a data URL. A response that
// carries no image payload fails with KindNoOutput and is not retried.
func (c *Client) Render(ctx context.Context, req marketing.RenderRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", newError(KindInputLimit, OpRender, nil, "render prompt is empty")
	}
	ratio := req.AspectRatio
	if ratio == "" {
		ratio = marketing.DefaultAspectRatio
	}
	if !ratio.Valid() {
		return "", newError(KindInputLimit, OpRender, nil, "unsupported aspect ratio %q", ratio)
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.ReferenceImage != "" {
		data, mime, err := imageprep.DecodeDataURL(req.ReferenceImage)
		if err != nil {
			return "", newError(KindInputLimit, OpRender, err, "reference image: %v", err)
		}
		ref := marketing.ImageInput{Data: data, MIMEType: mime}
		if err := checkImage(OpRender, "reference image", ref); err != nil {
			return "", err
		}
		parts = append(parts, genai.NewPartFromBytes(data, mime))
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityText), string(genai.ModalityImage)},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: string(ratio),
			ImageSize:   ImageSize,
		},
	}

	resp, err := c.call(ctx, OpRender, c.opts.Models.Image,
		ImageRetry, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", err
	}

	if blob := firstImage(resp); blob != nil {
		log.Debug().
			Str("ratio", string(ratio)).
			Str("mime", blob.MIMEType).
			Int("bytes", len(blob.Data)).
			Msg("Image rendered")
		return imageprep.EncodeDataURL(blob.Data, blob.MIMEType), nil
	}

	log.Error().Str("op", OpRender).Str("reason", "no_image").Msg("Render response carried no image")
	return "", newError(KindNoOutput, OpRender, nil, "render failed: no image was produced")
}

func firstImage(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData
			}
		}
	}
	return nil
}
