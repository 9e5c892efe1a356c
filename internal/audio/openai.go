package audio

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// openAISpeechLimit is the input cap of the speech endpoint
const openAISpeechLimit = 4096

// OpenAISpeech narrates through the OpenAI speech endpoint
type OpenAISpeech struct {
	cfg    config.OpenAITTSConfig
	client *openai.Client
}

// NewOpenAISpeech returns a provider that is unavailable when apiKey is
// empty. baseURL overrides the API endpoint and may be empty.
func NewOpenAISpeech(cfg config.OpenAITTSConfig, apiKey, baseURL string) *OpenAISpeech {
	o := &OpenAISpeech{cfg: cfg}
	if apiKey == "" {
		return o
	}
	oc := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	o.client = openai.NewClientWithConfig(oc)
	return o
}

func (o *OpenAISpeech) Name() string { return "openai" }

func (o *OpenAISpeech) Synthesize(ctx context.Context, text, outPath string) error {
	if o.client == nil {
		return types.Unavailablef("OPENAI_API_KEY not set")
	}

	model := openai.SpeechModel(o.cfg.Model)
	if model == "" {
		model = openai.TTSModel1
	}
	voice := openai.SpeechVoice(o.cfg.Voice)
	if voice == "" {
		voice = openai.VoiceOnyx
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer f.Close()

	// mp3 frames concatenate cleanly, so long texts are sent in pieces
	for i, chunk := range chunkText(text, openAISpeechLimit) {
		resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          model,
			Input:          chunk,
			Voice:          voice,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return fmt.Errorf("speech chunk %d: %w", i, err)
		}
		_, err = io.Copy(f, resp)
		resp.Close()
		if err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
	}
	return f.Close()
}
