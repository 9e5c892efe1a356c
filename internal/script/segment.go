// Package script turns story text into the ordered scenes of a video.
package script

import (
	"regexp"
	"strings"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// A sentence is a run of text closed by one or more terminators. Trailing
// text without a terminator counts as a final sentence.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// Segment splits text into at most maxScenes scenes of consecutive sentences.
// Scenes are trimmed, non-empty and in narrative order.
func Segment(text string, maxScenes int) ([]string, error) {
	if maxScenes <= 0 {
		return nil, types.InvalidArgf("max scenes must be positive, got %d", maxScenes)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, types.InvalidArgf("empty story text")
	}

	sentences := Sentences(text)
	if len(sentences) == 0 {
		return []string{text}, nil
	}

	size := (len(sentences) + maxScenes - 1) / maxScenes
	scenes := make([]string, 0, maxScenes)
	for i := 0; i < len(sentences); i += size {
		end := min(i+size, len(sentences))
		scene := strings.TrimSpace(strings.Join(sentences[i:end], " "))
		if scene != "" {
			scenes = append(scenes, scene)
		}
	}

	if len(scenes) > maxScenes {
		scenes = scenes[:maxScenes]
	}
	return scenes, nil
}

// Sentences returns the trimmed, non-empty sentences of text. Text with no
// sentence boundary is returned whole.
func Sentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	if len(matches) == 0 {
		matches = []string{text}
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}
