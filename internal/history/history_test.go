package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func state(runID, storyID, stage string, started time.Time) *types.PipelineState {
	return &types.PipelineState{
		RunID:     runID,
		Stage:     stage,
		StartedAt: started,
		UpdatedAt: started,
		Story:     &types.Story{ID: storyID, Title: "Title " + storyID},
	}
}

func TestRecordAndGet(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	st := state("run-1", "abc", "SYNTHESIZING", now)
	st.Scenes = []string{"One.", "Two."}
	if err := l.Record(ctx, st); err != nil {
		t.Fatal(err)
	}

	st.Stage = "DONE"
	st.Video = &types.VideoResult{Path: "/out/videos/abc.mp4", VideoID: "abc", DurationSec: 10}
	if err := l.Record(ctx, st); err != nil {
		t.Fatal(err)
	}

	got, err := l.Get(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Stage != "DONE" || len(got.Scenes) != 2 || got.Video == nil || got.Video.DurationSec != 10 {
		t.Errorf("unexpected state %+v", got)
	}
	if !got.StartedAt.Equal(now) {
		t.Errorf("started = %v, want %v", got.StartedAt, now)
	}

	runs, err := l.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("upsert should keep one row, got %d", len(runs))
	}
	if runs[0].VideoPath != "/out/videos/abc.mp4" || runs[0].Title != "Title abc" {
		t.Errorf("run summary = %+v", runs[0])
	}
}

func TestGetNotFound(t *testing.T) {
	l := openTestLedger(t)
	if _, err := l.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordRejectsEmptyRunID(t *testing.T) {
	l := openTestLedger(t)
	if err := l.Record(context.Background(), &types.PipelineState{}); !errors.Is(err, types.ErrInvalidArgument) {
		t.Fatalf("got %v", err)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	base := time.Date(2024, 10, 31, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := l.Record(ctx, state(id, "s"+id, "DONE", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "r3" || runs[1].RunID != "r2" {
		t.Errorf("unexpected order: %+v", runs)
	}
}

func TestStoryUsed(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	now := time.Now()

	if err := l.Record(ctx, state("r1", "done-story", "DONE", now)); err != nil {
		t.Fatal(err)
	}
	failed := state("r2", "failed-story", "ERROR", now)
	failed.FailedStage = "ASSEMBLING"
	if err := l.Record(ctx, failed); err != nil {
		t.Fatal(err)
	}

	tests := map[string]bool{"done-story": true, "failed-story": false, "never-seen": false}
	for id, want := range tests {
		got, err := l.StoryUsed(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("StoryUsed(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestSetPublished(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	if err := l.Record(ctx, state("r1", "abc", "DONE", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := l.SetPublished(ctx, "r1", "https://youtu.be/xyz"); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Get(ctx, "r1")
	if got.PublishURL != "https://youtu.be/xyz" {
		t.Errorf("publish url = %q", got.PublishURL)
	}
	if err := l.SetPublished(ctx, "nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown run: %v", err)
	}
}
