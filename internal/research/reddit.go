package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/vartanbeno/go-reddit/v2/reddit"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// postLister is the slice of the go-reddit subreddit service we use
type postLister interface {
	HotPosts(ctx context.Context, subreddit string, opts *reddit.ListOptions) ([]*reddit.Post, *reddit.Response, error)
}

// RedditSource reads hot self posts from the configured subreddits
type RedditSource struct {
	posts      postLister
	subreddits []string
	limit      int
	allowNSFW  bool
	authed     bool
}

// NewRedditSource uses an authenticated client when a full credential set
// is present and falls back to the read-only public API otherwise.
func NewRedditSource(cfg config.ResearchConfig, secrets config.Secrets) (*RedditSource, error) {
	ua := secrets.RedditUserAgent
	if ua == "" {
		ua = cfg.UserAgent
	}

	var (
		client *reddit.Client
		err    error
	)
	authed := secrets.RedditAuthenticated()
	if authed {
		client, err = reddit.NewClient(reddit.Credentials{
			ID:       secrets.RedditClientID,
			Secret:   secrets.RedditClientSecret,
			Username: secrets.RedditUsername,
			Password: secrets.RedditPassword,
		}, reddit.WithUserAgent(ua))
	} else {
		client, err = reddit.NewReadonlyClient(reddit.WithUserAgent(ua))
	}
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}

	src := newRedditSource(client.Subreddit, cfg)
	src.authed = authed
	return src, nil
}

func newRedditSource(posts postLister, cfg config.ResearchConfig) *RedditSource {
	limit := cfg.ListingLimit
	if limit <= 0 {
		limit = 100
	}
	return &RedditSource{
		posts:      posts,
		subreddits: cfg.Subreddits,
		limit:      limit,
		allowNSFW:  cfg.AllowNSFW,
	}
}

func (r *RedditSource) Name() string {
	if r.authed {
		return "reddit"
	}
	return "reddit-public"
}

// Fetch lists hot posts of every subreddit. A subreddit that errors is
// skipped as long as another one answered.
func (r *RedditSource) Fetch(ctx context.Context) ([]*types.Story, error) {
	if len(r.subreddits) == 0 {
		return nil, fmt.Errorf("no subreddits configured")
	}

	var (
		stories []*types.Story
		lastErr error
		ok      int
	)
	for _, sub := range r.subreddits {
		posts, _, err := r.posts.HotPosts(ctx, sub, &reddit.ListOptions{Limit: r.limit})
		if err != nil {
			lastErr = fmt.Errorf("r/%s: %w", sub, err)
			continue
		}
		ok++
		for _, p := range posts {
			if p == nil || strings.TrimSpace(p.Body) == "" {
				continue
			}
			if p.NSFW && !r.allowNSFW {
				continue
			}
			stories = append(stories, postToStory(p, sub))
		}
	}
	if ok == 0 {
		return nil, lastErr
	}
	return stories, nil
}

func postToStory(p *reddit.Post, sub string) *types.Story {
	story := &types.Story{
		ID:        p.ID,
		Title:     strings.TrimSpace(p.Title),
		Text:      strings.TrimSpace(p.Body),
		Author:    p.Author,
		Source:    "r/" + sub,
		SourceURL: permalink(p.Permalink),
		Score:     p.Score,
	}
	if story.Author == "" {
		story.Author = "unknown"
	}
	if p.Created != nil {
		created := p.Created.Time.UTC()
		story.CreatedAt = &created
	}
	return story
}

func permalink(p string) string {
	if p == "" || strings.HasPrefix(p, "http") {
		return p
	}
	return "https://reddit.com" + p
}
