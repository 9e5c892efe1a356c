package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if cfg.Script.MaxScenes != 5 {
		t.Errorf("expected 5 max scenes, got %d", cfg.Script.MaxScenes)
	}
	if cfg.Audio.MaxChars != 5000 {
		t.Errorf("expected 5000 max chars, got %d", cfg.Audio.MaxChars)
	}
	if len(cfg.Audio.Providers) != 4 || cfg.Audio.Providers[0] != "elevenlabs" {
		t.Errorf("unexpected provider order: %v", cfg.Audio.Providers)
	}
	if cfg.Render.SecondsPerImage != 5 || cfg.Render.Width != 1920 || cfg.Render.Height != 1080 {
		t.Errorf("unexpected render defaults: %+v", cfg.Render)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("script:\n  max_scenes: 6\nvisuals:\n  backend: pollinations\npaths:\n  output: " + dir + "\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Script.MaxScenes != 6 {
		t.Errorf("expected overlay max_scenes 6, got %d", cfg.Script.MaxScenes)
	}
	if cfg.Visuals.Backend != "pollinations" {
		t.Errorf("expected pollinations backend, got %q", cfg.Visuals.Backend)
	}
	// untouched sections keep their defaults
	if cfg.Render.FPS != 30 {
		t.Errorf("expected default fps 30, got %d", cfg.Render.FPS)
	}
	if cfg.Paths.Output != dir {
		t.Errorf("expected output %s, got %s", dir, cfg.Paths.Output)
	}
	if cfg.Paths.Logs == "" || cfg.Paths.History == "" {
		t.Error("expected empty paths to be resolved")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("script:\n  max_scenes: 0\nvisuals:\n  backend: midjourney\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFetchTimeout(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"8s", 8 * time.Second},
		{"500ms", 500 * time.Millisecond},
		{"", 8 * time.Second},
		{"soon", 8 * time.Second},
		{"-1s", 8 * time.Second},
	}
	for _, tt := range tests {
		got := ResearchConfig{Timeout: tt.input}.FetchTimeout()
		if got != tt.want {
			t.Errorf("FetchTimeout(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDimensions(t *testing.T) {
	w, h := VisualsConfig{Size: "1792x1024"}.Dimensions()
	if w != 1792 || h != 1024 {
		t.Errorf("got %dx%d", w, h)
	}
	w, h = VisualsConfig{Size: "huge"}.Dimensions()
	if w != 1024 || h != 1024 {
		t.Errorf("expected 1024x1024 fallback, got %dx%d", w, h)
	}
}

func TestIsPlaceholder(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"your_openai_api_key_here", true},
		{"YOUR_ELEVENLABS_KEY_HERE", true},
		{"sk-live-abc123", false},
		{"your_key", false},
	}
	for _, tt := range tests {
		if got := IsPlaceholder(tt.in); got != tt.want {
			t.Errorf("IsPlaceholder(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSecretsFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "your_openai_api_key_here")
	t.Setenv("ELEVENLABS_API_KEY", "el-123")
	t.Setenv("REDDIT_CLIENT_ID", "id")
	t.Setenv("REDDIT_CLIENT_SECRET", "secret")
	t.Setenv("REDDIT_USERNAME", "")
	t.Setenv("REDDIT_PASSWORD", "")

	s := SecretsFromEnv()
	if s.OpenAIKey != "" {
		t.Errorf("placeholder key should resolve to empty, got %q", s.OpenAIKey)
	}
	if s.ElevenLabsKey != "el-123" {
		t.Errorf("expected elevenlabs key, got %q", s.ElevenLabsKey)
	}
	if s.RedditAuthenticated() {
		t.Error("reddit should not be authenticated without username/password")
	}
}
