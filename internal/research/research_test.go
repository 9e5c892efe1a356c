package research

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vartanbeno/go-reddit/v2/reddit"
	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

func testConfig() config.ResearchConfig {
	return config.ResearchConfig{
		Subreddits:   []string{"scarystories"},
		ListingLimit: 100,
		MinChars:     500,
		MaxChars:     5000,
		SkipUsed:     true,
		Timeout:      "2s",
	}
}

type fakeSource struct {
	name    string
	stories []*types.Story
	err     error
	block   bool
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context) ([]*types.Story, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.stories, f.err
}

type usedSet map[string]bool

func (u usedSet) StoryUsed(_ context.Context, id string) (bool, error) { return u[id], nil }

func story(id string, chars int) *types.Story {
	return &types.Story{ID: id, Title: "T " + id, Text: strings.Repeat("a", chars), Author: "x"}
}

func TestScraperFallsBackToDemo(t *testing.T) {
	sources := []Source{
		&fakeSource{name: "broken", err: errors.New("connection refused")},
		&fakeSource{name: "empty"},
		&fakeSource{name: "short", stories: []*types.Story{story("s", 10)}},
	}
	s := New(testConfig(), zap.NewNop(), nil, sources...)

	got := s.Story(context.Background())
	if got.ID != "demo" || got.Title != "The Midnight Visitor" || got.Author != "DemoAuthor" {
		t.Fatalf("expected demo story, got %+v", got)
	}
	if got.SourceURL != "https://reddit.com/r/scarystories" {
		t.Errorf("demo url = %q", got.SourceURL)
	}
}

func TestScraperTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = "50ms"
	s := New(cfg, zap.NewNop(), nil, &fakeSource{name: "slow", block: true})

	start := time.Now()
	got := s.Story(context.Background())
	if got.ID != "demo" {
		t.Fatalf("expected demo after timeout, got %q", got.ID)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout not applied, took %s", time.Since(start))
	}
}

func TestScraperFilters(t *testing.T) {
	stories := []*types.Story{
		story("too-short", 500),
		story("too-long", 5000),
		story("used", 1000),
		story("ok", 501),
	}
	s := New(testConfig(), zap.NewNop(), usedSet{"used": true}, &fakeSource{name: "f", stories: stories})

	for i := 0; i < 20; i++ {
		if got := s.Story(context.Background()); got.ID != "ok" {
			t.Fatalf("picked %q, want ok", got.ID)
		}
	}
}

func TestScraperUsesNextSource(t *testing.T) {
	s := New(testConfig(), zap.NewNop(), nil,
		&fakeSource{name: "a", err: errors.New("boom")},
		&fakeSource{name: "b", stories: []*types.Story{story("b1", 800)}},
	)
	if got := s.Story(context.Background()); got.ID != "b1" {
		t.Fatalf("got %q, want b1", got.ID)
	}
}

func TestScraperRandomPick(t *testing.T) {
	stories := []*types.Story{story("a", 800), story("b", 800), story("c", 800)}
	s := New(testConfig(), zap.NewNop(), nil, &fakeSource{name: "f", stories: stories})
	s.pick = func(n int) int { return n - 1 }

	if got := s.Story(context.Background()); got.ID != "c" {
		t.Fatalf("got %q, want c", got.ID)
	}
}

type fakeLister struct {
	posts map[string][]*reddit.Post
	errs  map[string]error
	opts  *reddit.ListOptions
}

func (f *fakeLister) HotPosts(_ context.Context, sub string, opts *reddit.ListOptions) ([]*reddit.Post, *reddit.Response, error) {
	f.opts = opts
	if err := f.errs[sub]; err != nil {
		return nil, nil, err
	}
	return f.posts[sub], nil, nil
}

func TestRedditSourceFetch(t *testing.T) {
	created := time.Date(2024, 10, 31, 3, 13, 0, 0, time.UTC)
	lister := &fakeLister{posts: map[string][]*reddit.Post{
		"scarystories": {
			{ID: "abc", Title: " The Basement ", Body: "It started. ", Author: "ghost", Permalink: "/r/scarystories/comments/abc/x/", Score: 42, Created: &reddit.Timestamp{Time: created}},
			{ID: "nsfw", Title: "nope", Body: "text", NSFW: true},
			{ID: "link", Title: "link post"},
		},
	}}
	src := newRedditSource(lister, testConfig())

	stories, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if lister.opts == nil || lister.opts.Limit != 100 {
		t.Errorf("listing limit = %+v, want 100", lister.opts)
	}
	if len(stories) != 1 {
		t.Fatalf("expected 1 story, got %d", len(stories))
	}
	got := stories[0]
	if got.ID != "abc" || got.Title != "The Basement" || got.Text != "It started." || got.Author != "ghost" {
		t.Errorf("unexpected story %+v", got)
	}
	if got.SourceURL != "https://reddit.com/r/scarystories/comments/abc/x/" {
		t.Errorf("url = %q", got.SourceURL)
	}
	if got.CreatedAt == nil || !got.CreatedAt.Equal(created) {
		t.Errorf("created = %v", got.CreatedAt)
	}
	if got.Source != "r/scarystories" {
		t.Errorf("source = %q", got.Source)
	}
}

func TestRedditSourceAllowNSFW(t *testing.T) {
	lister := &fakeLister{posts: map[string][]*reddit.Post{
		"scarystories": {{ID: "nsfw", Title: "t", Body: "text", NSFW: true}},
	}}
	cfg := testConfig()
	cfg.AllowNSFW = true
	stories, err := newRedditSource(lister, cfg).Fetch(context.Background())
	if err != nil || len(stories) != 1 {
		t.Fatalf("stories=%d err=%v", len(stories), err)
	}
}

func TestRedditSourcePartialFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Subreddits = []string{"down", "scarystories"}
	lister := &fakeLister{
		posts: map[string][]*reddit.Post{"scarystories": {{ID: "a", Title: "t", Body: "b"}}},
		errs:  map[string]error{"down": errors.New("503")},
	}
	stories, err := newRedditSource(lister, cfg).Fetch(context.Background())
	if err != nil || len(stories) != 1 {
		t.Fatalf("stories=%d err=%v", len(stories), err)
	}

	lister.errs["scarystories"] = errors.New("503")
	if _, err := newRedditSource(lister, cfg).Fetch(context.Background()); err == nil {
		t.Fatal("expected error when every subreddit fails")
	}
}

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Scary Stories</title>
  <item>
    <title>The Well</title>
    <link>https://example.com/well</link>
    <guid>well-1</guid>
    <pubDate>Thu, 31 Oct 2024 03:13:00 GMT</pubDate>
    <description><![CDATA[<p>The well was dry.</p><p>Something   still answered.</p><table><tr><td>submitted by /u/x</td></tr></table>]]></description>
  </item>
  <item>
    <title>Empty</title>
    <link>https://example.com/empty</link>
    <description></description>
  </item>
</channel>
</rss>`

func TestFeedSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFeed)
	}))
	defer srv.Close()

	src := NewFeedSource([]string{srv.URL}, "horrorgen-test")
	stories, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 1 {
		t.Fatalf("expected 1 story, got %d", len(stories))
	}
	got := stories[0]
	if got.Title != "The Well" || got.SourceURL != "https://example.com/well" {
		t.Errorf("unexpected story %+v", got)
	}
	if got.Text != "The well was dry.\n\nSomething still answered." {
		t.Errorf("text = %q", got.Text)
	}
	if !strings.HasPrefix(got.ID, "feed_") {
		t.Errorf("id = %q", got.ID)
	}
	if got.CreatedAt == nil {
		t.Error("expected publish date")
	}

	again, _ := src.Fetch(context.Background())
	if again[0].ID != got.ID {
		t.Error("feed story ids must be stable across fetches")
	}
}

func TestFeedSourceNoFeeds(t *testing.T) {
	if _, err := NewFeedSource(nil, "").Fetch(context.Background()); err == nil {
		t.Fatal("expected error without feeds")
	}
}
