package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

// Run stages, in order. StageFailed is reachable from any of them.
const (
	StageFetching     = "FETCHING_STORY"
	StageSegmenting   = "SEGMENTING"
	StageSynthesizing = "SYNTHESIZING"
	StageAssembling   = "ASSEMBLING"
	StageDone         = "DONE"
	StageFailed       = "ERROR"
)

// StageError is the top-level failure of a run
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Recorder persists run state at every transition
type Recorder interface {
	Record(ctx context.Context, st *types.PipelineState) error
}

// Recorders fans a state out to several recorders
type Recorders []Recorder

func (rs Recorders) Record(ctx context.Context, st *types.PipelineState) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		errs = append(errs, r.Record(ctx, st))
	}
	return errors.Join(errs...)
}

// StateFile writes each run's state to <dir>/<run_id>.json
type StateFile struct {
	Dir string
}

func (s StateFile) Record(_ context.Context, st *types.PipelineState) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	path := filepath.Join(s.Dir, st.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
