// Package history is the run ledger: one row per pipeline run, kept in a
// local sqlite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// ErrNotFound is returned for an unknown run id
var ErrNotFound = errors.New("run not found")

// busyTimeout lets the read handle wait out a concurrent write
const busyTimeout = "_pragma=busy_timeout(5000)"

// stageDone mirrors pipeline.StageDone without importing it
const stageDone = "DONE"

// Run is the summary row of one pipeline run
type Run struct {
	RunID       string    `json:"runId"`
	StoryID     string    `json:"storyId"`
	Title       string    `json:"title"`
	Stage       string    `json:"stage"`
	FailedStage string    `json:"failedStage,omitempty"`
	Error       string    `json:"error,omitempty"`
	VideoPath   string    `json:"videoPath,omitempty"`
	DurationSec float64   `json:"duration,omitempty"`
	PublishURL  string    `json:"publishUrl,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Ledger struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?"+busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&"+busyTimeout)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	l := &Ledger{readDB: readDB, writeDB: writeDB}
	if err := l.init(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) init() error {
	_, err := l.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			story_id     TEXT NOT NULL DEFAULT '',
			title        TEXT NOT NULL DEFAULT '',
			stage        TEXT NOT NULL,
			failed_stage TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			video_path   TEXT NOT NULL DEFAULT '',
			duration_sec REAL NOT NULL DEFAULT 0,
			publish_url  TEXT NOT NULL DEFAULT '',
			state        TEXT NOT NULL,
			started_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_runs_story ON runs(story_id, stage);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	return errors.Join(l.readDB.Close(), l.writeDB.Close())
}

// Record upserts the current state of a run
func (l *Ledger) Record(ctx context.Context, st *types.PipelineState) error {
	if st == nil || st.RunID == "" {
		return types.InvalidArgf("state without run id")
	}
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	var storyID, title, videoPath string
	var duration float64
	if st.Story != nil {
		storyID, title = st.Story.ID, st.Story.Title
	}
	if st.Video != nil {
		videoPath, duration = st.Video.Path, st.Video.DurationSec
	}

	_, err = l.writeDB.ExecContext(ctx, `
		INSERT INTO runs (run_id, story_id, title, stage, failed_stage, error, video_path, duration_sec, publish_url, state, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			story_id = excluded.story_id,
			title = excluded.title,
			stage = excluded.stage,
			failed_stage = excluded.failed_stage,
			error = excluded.error,
			video_path = excluded.video_path,
			duration_sec = excluded.duration_sec,
			publish_url = excluded.publish_url,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, st.RunID, storyID, title, st.Stage, st.FailedStage, st.Error, videoPath, duration, st.PublishURL,
		string(blob), formatTime(st.StartedAt), formatTime(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("recording run %s: %w", st.RunID, err)
	}
	return nil
}

// Get returns the full state of a run
func (l *Ledger) Get(ctx context.Context, runID string) (*types.PipelineState, error) {
	var blob string
	err := l.readDB.QueryRowContext(ctx, "SELECT state FROM runs WHERE run_id = ?", runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", runID, err)
	}
	var st types.PipelineState
	if err := json.Unmarshal([]byte(blob), &st); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", runID, err)
	}
	return &st, nil
}

// Recent lists the latest runs, newest first
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.readDB.QueryContext(ctx, `
		SELECT run_id, story_id, title, stage, failed_stage, error, video_path, duration_sec, publish_url, started_at, updated_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			started, updated string
		)
		if err := rows.Scan(&r.RunID, &r.StoryID, &r.Title, &r.Stage, &r.FailedStage, &r.Error,
			&r.VideoPath, &r.DurationSec, &r.PublishURL, &started, &updated); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = parseTime(started)
		r.UpdatedAt = parseTime(updated)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StoryUsed reports whether a finished run already narrated storyID
func (l *Ledger) StoryUsed(ctx context.Context, storyID string) (bool, error) {
	var n int
	err := l.readDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM runs WHERE story_id = ? AND stage = ?", storyID, stageDone).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying story %s: %w", storyID, err)
	}
	return n > 0, nil
}

// SetPublished stores the public URL of an uploaded run
func (l *Ledger) SetPublished(ctx context.Context, runID, url string) error {
	st, err := l.Get(ctx, runID)
	if err != nil {
		return err
	}
	st.PublishURL = url
	st.UpdatedAt = time.Now().UTC()
	return l.Record(ctx, st)
}

// timeLayout is fixed width so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
