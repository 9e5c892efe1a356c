package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "horrorgen"

type Config struct {
	Research ResearchConfig `yaml:"research"`
	Script   ScriptConfig   `yaml:"script"`
	Audio    AudioConfig    `yaml:"audio"`
	Visuals  VisualsConfig  `yaml:"visuals"`
	Render   RenderConfig   `yaml:"render"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Upload   UploadConfig   `yaml:"upload"`
	Server   ServerConfig   `yaml:"server"`
	Paths    PathsConfig    `yaml:"paths"`
	Log      LogConfig      `yaml:"log"`

	// Secrets never come from the yaml file.
	Secrets Secrets `yaml:"-"`
}

type ResearchConfig struct {
	Subreddits   []string `yaml:"subreddits"`
	ListingLimit int      `yaml:"listing_limit"`
	MinChars     int      `yaml:"min_chars"`
	MaxChars     int      `yaml:"max_chars"`
	AllowNSFW    bool     `yaml:"allow_nsfw"`
	SkipUsed     bool     `yaml:"skip_used"`
	Feeds        []string `yaml:"feeds"`
	Timeout      string   `yaml:"timeout"`
	UserAgent    string   `yaml:"user_agent"`
}

// FetchTimeout is the read timeout applied to every story fetch
func (r ResearchConfig) FetchTimeout() time.Duration {
	return parseDuration(r.Timeout, 8*time.Second)
}

type ScriptConfig struct {
	MaxScenes int `yaml:"max_scenes"`
}

type AudioConfig struct {
	Providers      []string         `yaml:"providers"`
	MaxChars       int              `yaml:"max_chars"`
	WordsPerMinute int              `yaml:"words_per_minute"`
	Language       string           `yaml:"language"`
	ElevenLabs     ElevenLabsConfig `yaml:"elevenlabs"`
	OpenAI         OpenAITTSConfig  `yaml:"openai"`
	Edge           EdgeTTSConfig    `yaml:"edge"`
}

type ElevenLabsConfig struct {
	BaseURL         string  `yaml:"base_url"`
	VoiceID         string  `yaml:"voice_id"`
	ModelID         string  `yaml:"model_id"`
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
}

type OpenAITTSConfig struct {
	Model string `yaml:"model"`
	Voice string `yaml:"voice"`
}

type EdgeTTSConfig struct {
	Voice string `yaml:"voice"`
}

type VisualsConfig struct {
	Backend          string `yaml:"backend"` // openai | pollinations | none
	Model            string `yaml:"model"`
	Size             string `yaml:"size"`
	Quality          string `yaml:"quality"`
	Style            string `yaml:"style"`
	PromptChars      int    `yaml:"prompt_chars"`
	PromptSuffix     string `yaml:"prompt_suffix"`
	PlaceholderColor string `yaml:"placeholder_color"`
	MaxParallel      int    `yaml:"max_parallel"`
	Timeout          string `yaml:"timeout"`
}

func (v VisualsConfig) RequestTimeout() time.Duration {
	return parseDuration(v.Timeout, 90*time.Second)
}

// Dimensions parses Size ("1024x1024"). Falls back to 1024x1024.
func (v VisualsConfig) Dimensions() (int, int) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(v.Size), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 1024, 1024
	}
	return w, h
}

type RenderConfig struct {
	SecondsPerImage float64 `yaml:"seconds_per_image"`
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	CRF             int     `yaml:"crf"`
	Preset          string  `yaml:"preset"`
	AudioBitrate    string  `yaml:"audio_bitrate"`
	FFmpeg          string  `yaml:"ffmpeg"`
	FFprobe         string  `yaml:"ffprobe"`
}

type PipelineConfig struct {
	ReuseExisting bool `yaml:"reuse_existing"`
}

type UploadConfig struct {
	Visibility        string   `yaml:"visibility"`
	CategoryID        string   `yaml:"category_id"`
	DefaultLanguage   string   `yaml:"default_language"`
	MadeForKids       bool     `yaml:"made_for_kids"`
	NotifySubscribers bool     `yaml:"notify_subscribers"`
	Tags              []string `yaml:"tags"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	PublicBase string `yaml:"public_base"`
}

type PathsConfig struct {
	Output  string `yaml:"output"`
	Logs    string `yaml:"logs"`
	History string `yaml:"history"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the embedded defaults, overlays the user config file (if one
// is found) and resolves secrets from the environment.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Secrets = SecretsFromEnv()
	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading default config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing default config: %w", err)
	}
	return &cfg, nil
}

func findConfigFile() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	if p, err := xdg.SearchConfigFile(filepath.Join(appName, "config.yaml")); err == nil {
		return p
	}
	return ""
}

func (c *Config) resolvePaths() {
	base := filepath.Join(xdg.DataHome, appName)
	if c.Paths.Output == "" {
		c.Paths.Output = filepath.Join(base, "output")
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = filepath.Join(base, "logs")
	}
	if c.Paths.History == "" {
		c.Paths.History = filepath.Join(base, "history.db")
	}
}

// Validate rejects values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Script.MaxScenes <= 0 {
		errs = append(errs, fmt.Errorf("script.max_scenes must be positive, got %d", c.Script.MaxScenes))
	}
	if c.Render.SecondsPerImage <= 0 {
		errs = append(errs, fmt.Errorf("render.seconds_per_image must be positive, got %v", c.Render.SecondsPerImage))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height))
	}
	if c.Render.FPS <= 0 {
		errs = append(errs, fmt.Errorf("render.fps must be positive, got %d", c.Render.FPS))
	}
	if c.Audio.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("audio.max_chars must be positive, got %d", c.Audio.MaxChars))
	}
	switch c.Visuals.Backend {
	case "openai", "pollinations", "none", "":
	default:
		errs = append(errs, fmt.Errorf("visuals.backend %q is not one of openai, pollinations, none", c.Visuals.Backend))
	}
	return errors.Join(errs...)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
