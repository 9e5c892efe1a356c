package types

import "time"

// Story holds a fetched narrative ready for segmentation
type Story struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Author    string     `json:"author"`
	Source    string     `json:"source"`
	SourceURL string     `json:"url"`
	Score     int        `json:"score,omitempty"`
	CreatedAt *time.Time `json:"created,omitempty"`
}

// Meta is the short story descriptor returned to callers
func (s *Story) Meta() StoryMeta {
	return StoryMeta{
		ID:     s.ID,
		Title:  s.Title,
		Author: s.Author,
		URL:    s.SourceURL,
	}
}

// StoryMeta is the part of a Story exposed in results
type StoryMeta struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
}

// AudioArtifact is the narration file of one run
type AudioArtifact struct {
	Path        string  `json:"path"`
	Provider    string  `json:"provider"`
	DurationSec float64 `json:"duration_sec"`
}

// ImageArtifact is the image generated for one scene
type ImageArtifact struct {
	Path       string `json:"path"`
	SceneIndex int    `json:"scene_index"`
	Provider   string `json:"provider"`
}

// VideoResult is the final assembled video
type VideoResult struct {
	Path        string    `json:"path"`
	VideoID     string    `json:"video_id"`
	DurationSec float64   `json:"duration_sec"`
	Story       StoryMeta `json:"story"`
}

// Result is what the request layer hands back to clients
type Result struct {
	Success     bool       `json:"success"`
	RunID       string     `json:"runId,omitempty"`
	Story       *StoryMeta `json:"story,omitempty"`
	VideoURL    string     `json:"videoUrl,omitempty"`
	DurationSec float64    `json:"duration,omitempty"`
	PublishURL  string     `json:"publishUrl,omitempty"`
	FailedStage string     `json:"failedStage,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// VideoMetadata holds all YouTube upload metadata
type VideoMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	CategoryID  string   `json:"category_id"`
	Visibility  string   `json:"visibility"`
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string          `json:"run_id"`
	Stage       string          `json:"stage"`
	StartedAt   time.Time       `json:"started_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Story       *Story          `json:"story,omitempty"`
	Scenes      []string        `json:"scenes,omitempty"`
	Audio       *AudioArtifact  `json:"audio,omitempty"`
	Images      []ImageArtifact `json:"images,omitempty"`
	Video       *VideoResult    `json:"video,omitempty"`
	PublishURL  string          `json:"publish_url,omitempty"`
	FailedStage string          `json:"failed_stage,omitempty"`
	Error       string          `json:"error,omitempty"`
}
