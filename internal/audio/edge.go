package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// EdgeTTS shells out to the edge-tts CLI (pip install edge-tts)
type EdgeTTS struct {
	bin   string
	voice string
}

func NewEdgeTTS(voice string) *EdgeTTS {
	if voice == "" {
		voice = "en-US-GuyNeural"
	}
	return &EdgeTTS{bin: "edge-tts", voice: voice}
}

func (e *EdgeTTS) Name() string { return "edge" }

func (e *EdgeTTS) Synthesize(ctx context.Context, text, outPath string) error {
	path, err := exec.LookPath(e.bin)
	if err != nil {
		return types.Unavailablef("%s not installed", e.bin)
	}

	// edge-tts --voice V --text "..." --write-media out.mp3
	cmd := exec.CommandContext(ctx, path,
		"--voice", e.voice,
		"--text", text,
		"--write-media", outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("edge-tts: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
