package research

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// FeedSource reads stories from RSS/Atom feeds, e.g. a subreddit's .rss
// endpoint when the JSON API is blocked.
type FeedSource struct {
	parser *gofeed.Parser
	urls   []string
}

func NewFeedSource(urls []string, userAgent string) *FeedSource {
	p := gofeed.NewParser()
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &FeedSource{parser: p, urls: urls}
}

func (f *FeedSource) Name() string { return "feed" }

func (f *FeedSource) Fetch(ctx context.Context) ([]*types.Story, error) {
	if len(f.urls) == 0 {
		return nil, fmt.Errorf("no feeds configured")
	}

	var (
		stories []*types.Story
		lastErr error
		ok      int
	)
	for _, u := range f.urls {
		feed, err := f.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			lastErr = fmt.Errorf("fetching %s: %w", u, err)
			continue
		}
		ok++
		for _, item := range feed.Items {
			if story := itemToStory(item, feed.Title); story != nil {
				stories = append(stories, story)
			}
		}
	}
	if ok == 0 {
		return nil, lastErr
	}
	return stories, nil
}

func itemToStory(item *gofeed.Item, feedTitle string) *types.Story {
	body := item.Content
	if body == "" {
		body = item.Description
	}
	text := htmlToText(body)
	if text == "" {
		return nil
	}

	key := item.GUID
	if key == "" {
		key = item.Link
	}
	story := &types.Story{
		ID:        storyID(key + item.Title),
		Title:     strings.TrimSpace(item.Title),
		Text:      text,
		Author:    "unknown",
		Source:    feedTitle,
		SourceURL: item.Link,
	}
	if item.Author != nil && item.Author.Name != "" {
		story.Author = strings.TrimPrefix(item.Author.Name, "/u/")
	}
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		story.CreatedAt = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		story.CreatedAt = &t
	}
	return story
}

// htmlToText keeps paragraph breaks so sentence splitting stays sane.
// Reddit feed bodies wrap the post in a table with "submitted by" links;
// those are dropped.
func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style, table").Remove()

	var paras []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			paras = append(paras, t)
		}
	})
	if len(paras) == 0 {
		return strings.Join(strings.Fields(doc.Text()), " ")
	}
	return strings.Join(paras, "\n\n")
}

func storyID(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("feed_%x", h[:6])
}
