package visuals

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// OpenAIBackend generates images with DALL-E through go-openai
type OpenAIBackend struct {
	cfg        config.VisualsConfig
	client     *openai.Client
	httpClient *http.Client
}

// NewOpenAIBackend returns a backend that reports itself unavailable when
// apiKey is empty. baseURL overrides the API endpoint and may be empty.
func NewOpenAIBackend(cfg config.VisualsConfig, apiKey, baseURL string) *OpenAIBackend {
	b := &OpenAIBackend{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if apiKey == "" {
		return b
	}
	oc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	b.client = openai.NewClientWithConfig(oc)
	return b
}

func (b *OpenAIBackend) Name() string { return "openai" }

func (b *OpenAIBackend) Generate(ctx context.Context, prompt, outPath string) error {
	if b.client == nil {
		return types.Unavailablef("OPENAI_API_KEY not set")
	}

	req := openai.ImageRequest{
		Prompt:         prompt,
		Model:          orDefault(b.cfg.Model, openai.CreateImageModelDallE3),
		N:              1,
		Size:           orDefault(b.cfg.Size, openai.CreateImageSize1024x1024),
		Quality:        orDefault(b.cfg.Quality, openai.CreateImageQualityStandard),
		Style:          orDefault(b.cfg.Style, openai.CreateImageStyleVivid),
		ResponseFormat: openai.CreateImageResponseFormatURL,
	}
	resp, err := b.client.CreateImage(ctx, req)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("create image: empty response")
	}

	img := resp.Data[0]
	switch {
	case img.URL != "":
		return download(ctx, b.httpClient, img.URL, outPath)
	case img.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(img.B64JSON)
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		return os.WriteFile(outPath, data, 0o644)
	}
	return fmt.Errorf("create image: response has neither url nor data")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
