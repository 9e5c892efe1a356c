// Package visuals produces one still image per scene. Generation failures
// never surface: the scene gets a solid placeholder frame instead, so the
// video can always be assembled.
package visuals

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Backend renders prompt into an image file at outPath
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt, outPath string) error
}

// PlaceholderProvider names artifacts produced by the fallback frame
const PlaceholderProvider = "placeholder"

type Generator struct {
	backend Backend
	store   *store.Store
	cfg     config.VisualsConfig
	logger  *zap.Logger
}

// NewGenerator creates a Generator. A nil backend always yields placeholders.
func NewGenerator(backend Backend, st *store.Store, cfg config.VisualsConfig, logger *zap.Logger) *Generator {
	return &Generator{backend: backend, store: st, cfg: cfg, logger: logger.Named("visuals")}
}

// ImageID is the store id of scene index of video id
func ImageID(id string, index int) string {
	return fmt.Sprintf("%s_scene_%d", id, index)
}

// Synthesize creates the image for one scene. The only error returned is a
// failure to write the placeholder, i.e. the disk itself is unusable.
func (g *Generator) Synthesize(ctx context.Context, sceneText, id string, index int) (*types.ImageArtifact, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	if index < 0 {
		return nil, types.InvalidArgf("negative scene index %d", index)
	}
	imageID := ImageID(id, index)

	if g.backend != nil {
		path, err := g.generate(ctx, sceneText, imageID)
		if err == nil {
			g.logger.Info("scene image ready",
				zap.Int("scene", index),
				zap.String("backend", g.backend.Name()),
				zap.String("path", path))
			return &types.ImageArtifact{Path: path, SceneIndex: index, Provider: g.backend.Name()}, nil
		}
		if errors.Is(err, types.ErrProviderUnavailable) {
			g.logger.Debug("image backend unavailable, using placeholder", zap.Int("scene", index), zap.Error(err))
		} else {
			g.logger.Warn("image generation failed, using placeholder",
				zap.Int("scene", index),
				zap.String("backend", g.backend.Name()),
				zap.Error(err))
		}
	}

	w, h := g.cfg.Dimensions()
	fill, err := ParseHexColor(g.cfg.PlaceholderColor)
	if err != nil {
		g.logger.Debug("bad placeholder color, using black", zap.Error(err))
	}
	path, err := g.store.Put(store.Images, imageID, func(tmp string) error {
		return WritePlaceholder(tmp, w, h, fill)
	})
	if err != nil {
		return nil, fmt.Errorf("write placeholder for scene %d: %w", index, err)
	}
	return &types.ImageArtifact{Path: path, SceneIndex: index, Provider: PlaceholderProvider}, nil
}

func (g *Generator) generate(ctx context.Context, sceneText, imageID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout())
	defer cancel()

	prompt := BuildPrompt(sceneText, g.cfg.PromptChars, g.cfg.PromptSuffix)
	return g.store.Put(store.Images, imageID, func(tmp string) error {
		return g.backend.Generate(ctx, prompt, tmp)
	})
}

// BuildPrompt frames the first chars runes of a scene as a horror image
// prompt
func BuildPrompt(sceneText string, chars int, suffix string) string {
	text := strings.TrimSpace(sceneText)
	if chars > 0 && utf8.RuneCountInString(text) > chars {
		text = string([]rune(text)[:chars])
	}
	prompt := "Dark horror scene: " + text + "."
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		prompt += " " + suffix
	}
	return prompt
}

// NewBackend selects the image backend named in cfg. "none" returns nil.
func NewBackend(cfg config.VisualsConfig, secrets config.Secrets) (Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case "openai":
		return NewOpenAIBackend(cfg, secrets.OpenAIKey, ""), nil
	case "pollinations":
		return NewPollinations(cfg), nil
	case "none", "":
		return nil, nil
	}
	return nil, types.InvalidArgf("unknown visuals backend %q", cfg.Backend)
}
