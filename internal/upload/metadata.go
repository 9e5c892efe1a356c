package upload

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/script"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// YouTube limits
const (
	titleMaxChars       = 100
	descriptionMaxChars = 5000
	tagsMaxChars        = 500
	hookMaxChars        = 300
)

// BuildMetadata derives the upload metadata from the story alone, so the
// same story always yields the same title, description and tags.
func BuildMetadata(story *types.Story, cfg config.UploadConfig) *types.VideoMetadata {
	title := strings.TrimSpace(story.Title)
	if title == "" {
		title = "A Scary Story"
	}
	title = truncate(title+" | Scary Story", titleMaxChars)

	var sb strings.Builder
	if hook := hook(story.Text); hook != "" {
		sb.WriteString(hook)
		sb.WriteString("\n\n")
	}
	sb.WriteString("A horror story, narrated.\n\n")
	if story.Author != "" && story.SourceURL != "" {
		fmt.Fprintf(&sb, "Original story by u/%s: %s\n\n", story.Author, story.SourceURL)
	} else if story.SourceURL != "" {
		fmt.Fprintf(&sb, "Original story: %s\n\n", story.SourceURL)
	}
	sb.WriteString("Sleep well.\n\n")
	sb.WriteString(hashtags(cfg.Tags))

	visibility := cfg.Visibility
	if visibility == "" {
		visibility = "private"
	}
	return &types.VideoMetadata{
		Title:       title,
		Description: truncate(strings.TrimSpace(sb.String()), descriptionMaxChars),
		Tags:        tags(cfg.Tags, story),
		CategoryID:  cfg.CategoryID,
		Visibility:  visibility,
	}
}

// hook is the opening sentences of the story, kept under hookMaxChars
func hook(text string) string {
	var out string
	for _, s := range script.Sentences(text) {
		next := strings.TrimSpace(out + " " + s)
		if utf8.RuneCountInString(next) > hookMaxChars {
			break
		}
		out = next
	}
	if out == "" {
		return truncate(strings.Join(strings.Fields(text), " "), hookMaxChars)
	}
	return out
}

func tags(base []string, story *types.Story) []string {
	seen := map[string]bool{}
	var out []string
	total := 0
	add := func(t string) {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			return
		}
		n := utf8.RuneCountInString(t)
		if total+n > tagsMaxChars {
			return
		}
		seen[key] = true
		total += n
		out = append(out, t)
	}
	for _, t := range base {
		add(t)
	}
	if strings.HasPrefix(story.Source, "r/") {
		add(strings.TrimPrefix(story.Source, "r/"))
	}
	add(story.Title)
	return out
}

func hashtags(tags []string) string {
	var hs []string
	for _, t := range tags {
		h := strings.ReplaceAll(strings.TrimSpace(t), " ", "")
		if h != "" {
			hs = append(hs, "#"+h)
		}
	}
	return strings.Join(hs, " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
