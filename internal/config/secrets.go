package config

import (
	"os"
	"strings"
)

// Secrets holds provider credentials resolved from the environment.
// Presence of a credential selects its provider.
type Secrets struct {
	ElevenLabsKey string
	OpenAIKey     string

	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string

	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// SecretsFromEnv reads every credential the pipeline knows about
func SecretsFromEnv() Secrets {
	return Secrets{
		ElevenLabsKey:       credential("ELEVENLABS_API_KEY"),
		OpenAIKey:           credential("OPENAI_API_KEY"),
		RedditClientID:      credential("REDDIT_CLIENT_ID"),
		RedditClientSecret:  credential("REDDIT_CLIENT_SECRET"),
		RedditUsername:      credential("REDDIT_USERNAME"),
		RedditPassword:      credential("REDDIT_PASSWORD"),
		RedditUserAgent:     strings.TrimSpace(os.Getenv("REDDIT_USER_AGENT")),
		YouTubeClientID:     credential("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: credential("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: credential("YOUTUBE_REFRESH_TOKEN"),
	}
}

// RedditAuthenticated reports whether a full script-app credential set is present
func (s Secrets) RedditAuthenticated() bool {
	return s.RedditClientID != "" && s.RedditClientSecret != "" &&
		s.RedditUsername != "" && s.RedditPassword != ""
}

// YouTubeConfigured reports whether uploads can authenticate
func (s Secrets) YouTubeConfigured() bool {
	return s.YouTubeClientID != "" && s.YouTubeClientSecret != "" && s.YouTubeRefreshToken != ""
}

func credential(name string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if IsPlaceholder(v) {
		return ""
	}
	return v
}

// IsPlaceholder reports whether v is an unset or template value such as
// "your_openai_api_key_here" copied from an example .env.
func IsPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "changeme" || v == "xxx" {
		return true
	}
	return strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here")
}
