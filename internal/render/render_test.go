package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

type fakeEncoder struct {
	list    string
	job     Job
	err     error
	payload string
}

func (f *fakeEncoder) Encode(_ context.Context, job Job) error {
	f.job = job
	data, err := os.ReadFile(job.ListPath)
	if err != nil {
		return err
	}
	f.list = string(data)
	if f.err != nil {
		return f.err
	}
	payload := f.payload
	if payload == "" {
		payload = "mp4"
	}
	return os.WriteFile(job.OutPath, []byte(payload), 0o644)
}

type fakeProber struct {
	d   float64
	err error
}

func (f fakeProber) Duration(context.Context, string) (float64, error) { return f.d, f.err }

func testRenderConfig() config.RenderConfig {
	return config.RenderConfig{
		SecondsPerImage: 5, Width: 1920, Height: 1080, FPS: 30,
		CRF: 23, Preset: "medium", AudioBitrate: "192k",
	}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixtures(t *testing.T, n int, audioSec float64) ([]types.ImageArtifact, *types.AudioArtifact) {
	t.Helper()
	dir := t.TempDir()
	var imgs []types.ImageArtifact
	for i := 0; i < n; i++ {
		p := writeFile(t, filepath.Join(dir, fmt.Sprintf("img_%d.png", i)), "png")
		imgs = append(imgs, types.ImageArtifact{Path: p, SceneIndex: i, Provider: "fake"})
	}
	audio := &types.AudioArtifact{Path: writeFile(t, filepath.Join(dir, "a.mp3"), "mp3"), DurationSec: audioSec}
	return imgs, audio
}

func TestAssembleWritesVideo(t *testing.T) {
	st := store.New(t.TempDir())
	enc := &fakeEncoder{}
	a := NewAssembler(testRenderConfig(), st, enc, nil, zap.NewNop())
	imgs, audio := fixtures(t, 3, 100)

	res, err := a.Assemble(context.Background(), imgs, audio, "abc")
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if filepath.Base(res.Path) != "abc.mp4" || res.VideoID != "abc" {
		t.Errorf("unexpected result %+v", res)
	}
	// 3 images x 5s, shorter than the 100s narration
	if res.DurationSec != 15 {
		t.Errorf("duration = %v, want 15", res.DurationSec)
	}

	lines := strings.Split(strings.TrimSpace(enc.list), "\n")
	if len(lines) != 7 {
		t.Fatalf("list has %d lines, want 7:\n%s", len(lines), enc.list)
	}
	last, _ := filepath.Abs(imgs[2].Path)
	if lines[6] != "file '"+last+"'" || lines[1] != "duration 5" {
		t.Errorf("unexpected list:\n%s", enc.list)
	}
	if enc.job.AudioPath != audio.Path || enc.job.Width != 1920 || enc.job.FPS != 30 {
		t.Errorf("job = %+v", enc.job)
	}
	if _, err := os.Stat(enc.job.ListPath); !os.IsNotExist(err) {
		t.Error("concat list should be removed after the run")
	}
}

func TestAssembleDurationRule(t *testing.T) {
	imgs, audio := fixtures(t, 4, 12.5)
	a := NewAssembler(testRenderConfig(), store.New(t.TempDir()), &fakeEncoder{}, fakeProber{err: errors.New("no ffprobe")}, zap.NewNop())
	res, err := a.Assemble(context.Background(), imgs, audio, "short")
	if err != nil {
		t.Fatal(err)
	}
	if res.DurationSec != 12.5 {
		t.Errorf("duration = %v, want audio length 12.5", res.DurationSec)
	}

	a = NewAssembler(testRenderConfig(), store.New(t.TempDir()), &fakeEncoder{}, fakeProber{d: 19.96}, zap.NewNop())
	res, err = a.Assemble(context.Background(), imgs, audio, "probed")
	if err != nil {
		t.Fatal(err)
	}
	if res.DurationSec != 19.96 {
		t.Errorf("probed duration = %v", res.DurationSec)
	}
}

func TestAssemblePreconditions(t *testing.T) {
	imgs, audio := fixtures(t, 2, 10)
	missing := append([]types.ImageArtifact(nil), imgs...)
	missing[1].Path = filepath.Join(t.TempDir(), "gone.png")
	shuffled := []types.ImageArtifact{imgs[1], imgs[0]}
	emptyAudio := &types.AudioArtifact{Path: writeFile(t, filepath.Join(t.TempDir(), "e.mp3"), "")}

	tests := []struct {
		name   string
		images []types.ImageArtifact
		audio  *types.AudioArtifact
		id     string
	}{
		{"no images", nil, audio, "abc"},
		{"missing image file", missing, audio, "abc"},
		{"out of order", shuffled, audio, "abc"},
		{"no audio", imgs, nil, "abc"},
		{"empty audio", imgs, emptyAudio, "abc"},
		{"bad id", imgs, audio, "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.New(t.TempDir())
			enc := &fakeEncoder{}
			a := NewAssembler(testRenderConfig(), st, enc, nil, zap.NewNop())
			_, err := a.Assemble(context.Background(), tt.images, tt.audio, tt.id)
			var aerr *types.AssemblyError
			if !errors.As(err, &aerr) {
				t.Fatalf("expected AssemblyError, got %v", err)
			}
			if enc.list != "" {
				t.Error("encoder must not run")
			}
			if st.Exists(store.Videos, "abc") {
				t.Error("no output expected")
			}
		})
	}
}

func TestAssembleEncoderFailure(t *testing.T) {
	st := store.New(t.TempDir())
	imgs, audio := fixtures(t, 2, 10)

	// a previous good video must survive a failed re-encode
	if _, err := NewAssembler(testRenderConfig(), st, &fakeEncoder{payload: "old"}, nil, zap.NewNop()).
		Assemble(context.Background(), imgs, audio, "abc"); err != nil {
		t.Fatal(err)
	}

	enc := &fakeEncoder{err: &types.AssemblyError{Reason: "ffmpeg failed", Output: "Invalid data found", Err: errors.New("exit status 1")}}
	_, err := NewAssembler(testRenderConfig(), st, enc, nil, zap.NewNop()).Assemble(context.Background(), imgs, audio, "abc")
	var aerr *types.AssemblyError
	if !errors.As(err, &aerr) || aerr.Output != "Invalid data found" {
		t.Fatalf("expected AssemblyError with stderr, got %v", err)
	}

	p, _ := st.Path(store.Videos, "abc")
	if data, _ := os.ReadFile(p); string(data) != "old" {
		t.Errorf("existing video clobbered: %q", data)
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".partial") || strings.HasSuffix(e.Name(), "_list.txt") {
			t.Errorf("leftover file %s", e.Name())
		}
	}
}

func TestAssembleOverwrites(t *testing.T) {
	st := store.New(t.TempDir())
	imgs, audio := fixtures(t, 1, 10)
	for _, payload := range []string{"first", "second"} {
		res, err := NewAssembler(testRenderConfig(), st, &fakeEncoder{payload: payload}, nil, zap.NewNop()).
			Assemble(context.Background(), imgs, audio, "same")
		if err != nil {
			t.Fatal(err)
		}
		if data, _ := os.ReadFile(res.Path); string(data) != payload {
			t.Errorf("got %q, want %q", data, payload)
		}
	}
}

func TestJobArgs(t *testing.T) {
	args := strings.Join(Job{
		ListPath: "l.txt", AudioPath: "a.mp3", OutPath: "o.mp4",
		Width: 1920, Height: 1080, FPS: 30, CRF: 23, Preset: "medium", AudioBitrate: "192k",
	}.Args(), " ")
	for _, want := range []string{
		"-f concat -safe 0 -i l.txt -i a.mp3",
		"scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2",
		"-c:v libx264 -preset medium -crf 23 -pix_fmt yuv420p",
		"-c:a aac -b:a 192k -shortest",
	} {
		if !strings.Contains(args, want) {
			t.Errorf("args missing %q:\n%s", want, args)
		}
	}
	if !strings.HasSuffix(args, "o.mp4") {
		t.Errorf("output must be last: %s", args)
	}
}

func TestQuote(t *testing.T) {
	if got := quote("/tmp/it's here.png"); got != `/tmp/it'\''s here.png` {
		t.Errorf("quote = %s", got)
	}
}

func TestEstimatedDuration(t *testing.T) {
	tests := []struct {
		n     int
		spi   float64
		audio float64
		want  float64
	}{
		{6, 5, 120, 30},
		{6, 5, 22, 22},
		{2, 5, 0, 10},
	}
	for _, tt := range tests {
		if got := EstimatedDuration(tt.n, tt.spi, tt.audio); got != tt.want {
			t.Errorf("EstimatedDuration(%d, %v, %v) = %v, want %v", tt.n, tt.spi, tt.audio, got, tt.want)
		}
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	f := &FFmpeg{Bin: "ffmpeg-not-installed-here"}
	err := f.Encode(context.Background(), Job{})
	var aerr *types.AssemblyError
	if !errors.As(err, &aerr) || aerr.Reason != "ffmpeg not found" {
		t.Fatalf("got %v", err)
	}
}

func TestTail(t *testing.T) {
	if got := tail("  short  ", 10); got != "short" {
		t.Errorf("tail = %q", got)
	}
	if got := tail(strings.Repeat("x", 20)+"END", 3); got != "...END" {
		t.Errorf("tail = %q", got)
	}
}
