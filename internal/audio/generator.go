package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Provider turns text into an mp3 file at outPath. A provider without
// credentials or tooling returns an error wrapping types.ErrProviderUnavailable.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, text, outPath string) error
}

// DurationProber measures media files, typically ffprobe
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Generator handles narration: it tries each provider in order until one
// produces a non-empty file.
type Generator struct {
	providers []Provider
	store     *store.Store
	maxChars  int
	wpm       int
	prober    DurationProber
	logger    *zap.Logger
}

// NewGenerator creates a Generator. prober may be nil, durations are then
// estimated from the word count.
func NewGenerator(providers []Provider, st *store.Store, cfg config.AudioConfig, prober DurationProber, logger *zap.Logger) *Generator {
	return &Generator{
		providers: providers,
		store:     st,
		maxChars:  cfg.MaxChars,
		wpm:       cfg.WordsPerMinute,
		prober:    prober,
		logger:    logger.Named("audio"),
	}
}

// Synthesize narrates text into the audio store under id
func (g *Generator) Synthesize(ctx context.Context, text, id string) (*types.AudioArtifact, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.InvalidArgf("empty narration text")
	}
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	text = Clip(text, g.maxChars)

	var (
		tried   []string
		lastErr error
	)
	for _, p := range g.providers {
		if err := ctx.Err(); err != nil {
			return nil, &types.NarrationError{Tried: tried, Err: err}
		}

		path, err := g.store.Put(store.Audio, id, func(tmp string) error {
			return p.Synthesize(ctx, text, tmp)
		})
		if errors.Is(err, types.ErrProviderUnavailable) {
			g.logger.Debug("skipping provider", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		tried = append(tried, p.Name())
		if err != nil {
			g.logger.Warn("provider failed", zap.String("provider", p.Name()), zap.Error(err))
			lastErr = &types.ProviderError{Provider: p.Name(), Err: err}
			continue
		}

		art := &types.AudioArtifact{
			Path:        path,
			Provider:    p.Name(),
			DurationSec: g.duration(ctx, path, text),
		}
		g.logger.Info("narration ready",
			zap.String("provider", p.Name()),
			zap.String("path", path),
			zap.Float64("duration_sec", art.DurationSec))
		return art, nil
	}

	if lastErr == nil {
		lastErr = types.Unavailablef("no narration provider configured")
	}
	return nil, &types.NarrationError{Tried: tried, Err: lastErr}
}

func (g *Generator) duration(ctx context.Context, path, text string) float64 {
	if g.prober != nil {
		d, err := g.prober.Duration(ctx, path)
		if err == nil && d > 0 {
			return d
		}
		g.logger.Debug("could not measure narration, estimating", zap.Error(err))
	}
	return EstimateDuration(text, g.wpm)
}

// Clip caps text at max runes, marking the cut with "..."
func Clip(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)
	return string(r[:max]) + "..."
}

// EstimateDuration guesses speech length in whole seconds from the word count
func EstimateDuration(text string, wpm int) float64 {
	if wpm <= 0 {
		wpm = 150
	}
	words := len(strings.Fields(text))
	return math.Ceil(float64(words) / float64(wpm) * 60)
}

// Providers builds the configured provider chain in order
func Providers(cfg config.AudioConfig, secrets config.Secrets) ([]Provider, error) {
	var out []Provider
	for _, name := range cfg.Providers {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "elevenlabs":
			out = append(out, NewElevenLabs(cfg.ElevenLabs, secrets.ElevenLabsKey, nil))
		case "openai":
			out = append(out, NewOpenAISpeech(cfg.OpenAI, secrets.OpenAIKey, ""))
		case "google", "gtts":
			out = append(out, NewGoogleTTS(cfg.Language, nil))
		case "edge", "edge-tts":
			out = append(out, NewEdgeTTS(cfg.Edge.Voice))
		default:
			return nil, types.InvalidArgf("unknown audio provider %q", name)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: audio.providers is empty", types.ErrInvalidArgument)
	}
	return out, nil
}

// chunkText splits text on whitespace into pieces of at most limit runes.
// Words longer than limit are cut.
func chunkText(text string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, word := range strings.Fields(text) {
		r := []rune(word)
		for len(r) > limit {
			flush()
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		wl := len(r)
		if wl == 0 {
			continue
		}
		if n > 0 && n+1+wl > limit {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(string(r))
		n += wl
	}
	flush()
	return chunks
}
