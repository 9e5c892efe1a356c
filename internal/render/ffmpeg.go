package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Job describes one concat-list encode
type Job struct {
	ListPath     string
	AudioPath    string
	OutPath      string
	Width        int
	Height       int
	FPS          int
	CRF          int
	Preset       string
	AudioBitrate string
}

// Args returns the ffmpeg arguments for the job. Images are letterboxed
// into Width x Height and the video stops with the shorter input.
func (j Job) Args() []string {
	vf := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d",
		j.Width, j.Height, j.Width, j.Height, j.FPS)
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", j.ListPath,
		"-i", j.AudioPath,
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", j.Preset,
		"-crf", strconv.Itoa(j.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", j.AudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		"-f", "mp4",
		j.OutPath,
	}
}

// Encoder runs an encode job to completion
type Encoder interface {
	Encode(ctx context.Context, job Job) error
}

// Prober measures media duration in seconds
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFmpeg is the exec-based Encoder
type FFmpeg struct {
	Bin string
}

func NewFFmpeg(cfg config.RenderConfig) *FFmpeg {
	bin := cfg.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{Bin: bin}
}

// Encode returns *types.AssemblyError carrying the stderr tail on failure
func (f *FFmpeg) Encode(ctx context.Context, job Job) error {
	path, err := exec.LookPath(f.Bin)
	if err != nil {
		return &types.AssemblyError{Reason: "ffmpeg not found", Err: err}
	}

	cmd := exec.CommandContext(ctx, path, job.Args()...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &types.AssemblyError{Reason: "ffmpeg failed", Output: tail(stderr.String(), 800), Err: err}
	}
	return nil
}

// FFprobe is the exec-based Prober
type FFprobe struct {
	Bin string
}

func NewFFprobe(cfg config.RenderConfig) *FFprobe {
	bin := cfg.FFprobe
	if bin == "" {
		bin = "ffprobe"
	}
	return &FFprobe{Bin: bin}
}

// Duration uses ffprobe to get the container duration in seconds
func (f *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	out, err := exec.CommandContext(ctx, f.Bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration: %w", path, err)
	}
	return dur, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
