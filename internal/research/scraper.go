package research

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Source is one place stories can come from
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]*types.Story, error)
}

// UsedChecker reports stories already turned into a video
type UsedChecker interface {
	StoryUsed(ctx context.Context, storyID string) (bool, error)
}

var errNoValidStory = errors.New("no valid story found")

// Scraper picks a random valid story from the first source that yields one.
// It never fails: when every source errors, times out or comes back empty,
// the built-in demo story is returned.
type Scraper struct {
	sources  []Source
	timeout  time.Duration
	minChars int
	maxChars int
	skipUsed bool
	used     UsedChecker
	logger   *zap.Logger
	pick     func(n int) int
}

// New creates a Scraper over sources, tried in order. used may be nil.
func New(cfg config.ResearchConfig, logger *zap.Logger, used UsedChecker, sources ...Source) *Scraper {
	return &Scraper{
		sources:  sources,
		timeout:  cfg.FetchTimeout(),
		minChars: cfg.MinChars,
		maxChars: cfg.MaxChars,
		skipUsed: cfg.SkipUsed,
		used:     used,
		logger:   logger.Named("research"),
		pick:     rand.IntN,
	}
}

// Story returns a story to narrate
func (s *Scraper) Story(ctx context.Context) *types.Story {
	for _, src := range s.sources {
		story, err := s.fromSource(ctx, src)
		if err != nil {
			s.logger.Warn("story source failed", zap.String("source", src.Name()), zap.Error(err))
			continue
		}
		s.logger.Info("selected story",
			zap.String("source", src.Name()),
			zap.String("id", story.ID),
			zap.String("title", story.Title),
			zap.Int("chars", utf8.RuneCountInString(story.Text)))
		return story
	}

	s.logger.Info("using demo story")
	return DemoStory()
}

func (s *Scraper) fromSource(ctx context.Context, src Source) (*types.Story, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stories, err := src.Fetch(fetchCtx)
	if err != nil {
		return nil, err
	}

	valid := s.filter(ctx, stories)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w among %d candidates", errNoValidStory, len(stories))
	}
	return valid[s.pick(len(valid))], nil
}

func (s *Scraper) filter(ctx context.Context, stories []*types.Story) []*types.Story {
	var valid []*types.Story
	for _, story := range stories {
		if story == nil || story.ID == "" {
			continue
		}
		n := utf8.RuneCountInString(story.Text)
		if s.minChars > 0 && n <= s.minChars {
			continue
		}
		if s.maxChars > 0 && n >= s.maxChars {
			continue
		}
		if s.skipUsed && s.used != nil {
			used, err := s.used.StoryUsed(ctx, story.ID)
			if err != nil {
				s.logger.Debug("used-story lookup failed", zap.String("id", story.ID), zap.Error(err))
			} else if used {
				continue
			}
		}
		valid = append(valid, story)
	}
	return valid
}
