// Package upload publishes finished videos to YouTube via Data API v3
package upload

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Uploader handles YouTube video upload
type Uploader struct {
	cfg     config.UploadConfig
	secrets config.Secrets
	logger  *zap.Logger
}

func New(cfg config.UploadConfig, secrets config.Secrets, logger *zap.Logger) *Uploader {
	return &Uploader{cfg: cfg, secrets: secrets, logger: logger.Named("upload")}
}

// Publish uploads video with metadata derived from story and returns the
// watch URL
func (u *Uploader) Publish(ctx context.Context, video *types.VideoResult, story *types.Story) (string, error) {
	if !u.secrets.YouTubeConfigured() {
		return "", types.Unavailablef("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN not set")
	}
	meta := BuildMetadata(story, u.cfg)
	_, url, err := u.Upload(ctx, video.Path, meta)
	return url, err
}

// Upload sends videoFile and returns the YouTube id and watch URL
func (u *Uploader) Upload(ctx context.Context, videoFile string, meta *types.VideoMetadata) (string, string, error) {
	u.logger.Info("authenticating with YouTube API")
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(u.oauthClient(ctx)))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      u.cfg.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Visibility,
			SelfDeclaredMadeForKids: u.cfg.MadeForKids,
		},
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		u.logger.Info("uploading",
			zap.String("title", meta.Title),
			zap.Float64("size_mb", float64(fi.Size())/1024/1024))
	}

	// resumable upload, required above 5MB
	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.cfg.NotifySubscribers).
		Media(f).
		Context(ctx)
	uploaded, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	url := WatchURL(uploaded.Id)
	u.logger.Info("uploaded", zap.String("video_id", uploaded.Id), zap.String("url", url))
	return uploaded.Id, url, nil
}

// oauthClient refreshes an access token from the stored refresh token
func (u *Uploader) oauthClient(ctx context.Context) *http.Client {
	conf := &oauth2.Config{
		ClientID:     u.secrets.YouTubeClientID,
		ClientSecret: u.secrets.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.secrets.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return conf.Client(ctx, token)
}

func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
