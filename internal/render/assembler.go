// Package render turns scene images and a narration track into an mp4
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Assembler builds the final video from the prepared assets
type Assembler struct {
	cfg     config.RenderConfig
	store   *store.Store
	encoder Encoder
	prober  Prober
	logger  *zap.Logger
}

// NewAssembler creates an Assembler. prober may be nil.
func NewAssembler(cfg config.RenderConfig, st *store.Store, encoder Encoder, prober Prober, logger *zap.Logger) *Assembler {
	return &Assembler{cfg: cfg, store: st, encoder: encoder, prober: prober, logger: logger.Named("render")}
}

// Assemble shows each image for seconds_per_image over the narration and
// writes videos/<id>.mp4. Rejected inputs never touch the output.
func (a *Assembler) Assemble(ctx context.Context, images []types.ImageArtifact, audio *types.AudioArtifact, id string) (*types.VideoResult, error) {
	if err := a.check(images, audio, id); err != nil {
		return nil, err
	}

	listPath, err := a.writeList(images, id)
	if err != nil {
		return nil, &types.AssemblyError{Reason: "writing concat list", Err: err}
	}
	defer os.Remove(listPath)

	a.logger.Info("encoding video", zap.String("id", id), zap.Int("images", len(images)))
	out, err := a.store.Put(store.Videos, id, func(tmp string) error {
		return a.encoder.Encode(ctx, Job{
			ListPath:     listPath,
			AudioPath:    audio.Path,
			OutPath:      tmp,
			Width:        a.cfg.Width,
			Height:       a.cfg.Height,
			FPS:          a.cfg.FPS,
			CRF:          a.cfg.CRF,
			Preset:       a.cfg.Preset,
			AudioBitrate: a.cfg.AudioBitrate,
		})
	})
	if err != nil {
		var aerr *types.AssemblyError
		if errors.As(err, &aerr) {
			return nil, aerr
		}
		return nil, &types.AssemblyError{Reason: "encoding", Err: err}
	}

	res := &types.VideoResult{
		Path:        out,
		VideoID:     id,
		DurationSec: a.duration(ctx, out, len(images), audio.DurationSec),
	}
	a.logger.Info("video ready", zap.String("path", out), zap.Float64("duration_sec", res.DurationSec))
	return res, nil
}

func (a *Assembler) check(images []types.ImageArtifact, audio *types.AudioArtifact, id string) error {
	if err := store.ValidateID(id); err != nil {
		return &types.AssemblyError{Reason: "invalid video id", Err: err}
	}
	if len(images) == 0 {
		return &types.AssemblyError{Reason: "no images", Err: types.ErrInvalidArgument}
	}
	for i, img := range images {
		if img.SceneIndex != i {
			return &types.AssemblyError{
				Reason: fmt.Sprintf("image %d has scene index %d", i, img.SceneIndex),
				Err:    types.ErrInvalidArgument,
			}
		}
		if err := store.NonEmpty(img.Path); err != nil {
			return &types.AssemblyError{Reason: fmt.Sprintf("image %d unusable", i), Err: err}
		}
	}
	if audio == nil {
		return &types.AssemblyError{Reason: "no audio", Err: types.ErrInvalidArgument}
	}
	if err := store.NonEmpty(audio.Path); err != nil {
		return &types.AssemblyError{Reason: "audio unusable", Err: err}
	}
	return nil
}

// writeList writes the concat demuxer script. The last image is repeated
// without a duration so the demuxer honours the final one.
func (a *Assembler) writeList(images []types.ImageArtifact, id string) (string, error) {
	dir, err := a.store.Dir(store.Videos)
	if err != nil {
		return "", err
	}
	spi := strconv.FormatFloat(a.cfg.SecondsPerImage, 'f', -1, 64)

	var b strings.Builder
	for _, img := range images {
		p, err := filepath.Abs(img.Path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\nduration %s\n", quote(p), spi)
	}
	last, err := filepath.Abs(images[len(images)-1].Path)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&b, "file '%s'\n", quote(last))

	listPath := filepath.Join(dir, id+"_list.txt")
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return listPath, nil
}

func (a *Assembler) duration(ctx context.Context, path string, n int, audioSec float64) float64 {
	if a.prober != nil {
		if d, err := a.prober.Duration(ctx, path); err == nil && d > 0 {
			return d
		}
	}
	return EstimatedDuration(n, a.cfg.SecondsPerImage, audioSec)
}

// EstimatedDuration is what -shortest yields: the image track or the
// narration, whichever ends first. Unknown audio length counts as infinite.
func EstimatedDuration(images int, secondsPerImage, audioSec float64) float64 {
	d := float64(images) * secondsPerImage
	if audioSec > 0 {
		d = math.Min(d, audioSec)
	}
	return d
}

// quote escapes a path for a single-quoted concat directive
func quote(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
