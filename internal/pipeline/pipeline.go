// Package pipeline drives one story from fetch to finished video
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kowayz/ytb-story-horro-gen/internal/script"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

type StorySource interface {
	Story(ctx context.Context) *types.Story
}

type Narrator interface {
	Synthesize(ctx context.Context, text, id string) (*types.AudioArtifact, error)
}

type Illustrator interface {
	Synthesize(ctx context.Context, sceneText, id string, index int) (*types.ImageArtifact, error)
}

type Assembler interface {
	Assemble(ctx context.Context, images []types.ImageArtifact, audio *types.AudioArtifact, id string) (*types.VideoResult, error)
}

// Publisher uploads a finished video and returns its public URL
type Publisher interface {
	Publish(ctx context.Context, video *types.VideoResult, story *types.Story) (string, error)
}

// Deps are the services a run is built from. Recorder and Publisher are
// optional.
type Deps struct {
	Stories     StorySource
	Narrator    Narrator
	Illustrator Illustrator
	Assembler   Assembler
	Store       *store.Store
	Recorder    Recorder
	Publisher   Publisher
}

type Options struct {
	MaxScenes     int
	MaxParallel   int
	ReuseExisting bool
	PublicBase    string
}

// Request parameterises a single run. Zero values fall back to Options.
type Request struct {
	VideoID   string `json:"videoId,omitempty"`
	MaxScenes int    `json:"maxScenes,omitempty"`
	Reuse     bool   `json:"reuse,omitempty"`
	Publish   bool   `json:"publish,omitempty"`
}

type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func New(deps Deps, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger.Named("pipeline"), now: time.Now}
}

// run carries the state of one Run call
type run struct {
	o     *Orchestrator
	state *types.PipelineState
	log   *zap.Logger
}

// Run executes FETCHING_STORY → SEGMENTING → SYNTHESIZING → ASSEMBLING →
// DONE. The returned Result is never nil; on failure it carries the failed
// stage and err is a *StageError (or an invalid-argument error when the
// request itself is rejected).
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.Result, error) {
	maxScenes := req.MaxScenes
	if maxScenes == 0 {
		maxScenes = o.opts.MaxScenes
	}
	if maxScenes <= 0 {
		err := types.InvalidArgf("max scenes must be positive, got %d", maxScenes)
		return &types.Result{Error: err.Error()}, err
	}
	if req.VideoID != "" {
		if err := store.ValidateID(req.VideoID); err != nil {
			return &types.Result{Error: err.Error()}, err
		}
	}

	now := o.now().UTC()
	r := &run{
		o:     o,
		state: &types.PipelineState{RunID: uuid.NewString(), StartedAt: now, UpdatedAt: now},
	}
	r.log = o.logger.With(zap.String("run", r.state.RunID))
	r.log.Info("pipeline starting", zap.Int("max_scenes", maxScenes))

	// STAGE 1: story
	r.transition(ctx, StageFetching)
	story := o.deps.Stories.Story(ctx)
	if err := ctx.Err(); err != nil {
		return r.fail(ctx, StageFetching, err)
	}
	if story == nil || strings.TrimSpace(story.Text) == "" {
		return r.fail(ctx, StageFetching, fmt.Errorf("story source returned no text"))
	}
	r.state.Story = story
	meta := story.Meta()

	id := req.VideoID
	if id == "" {
		id = story.ID
	}
	if store.ValidateID(id) != nil {
		id = r.state.RunID
	}
	r.log = r.log.With(zap.String("video_id", id))

	if (req.Reuse || o.opts.ReuseExisting) && o.deps.Store != nil && o.deps.Store.Exists(store.Videos, id) {
		path, _ := o.deps.Store.Path(store.Videos, id)
		r.state.Video = &types.VideoResult{Path: path, VideoID: id, Story: meta}
		r.transition(ctx, StageDone)
		r.log.Info("reusing existing video", zap.String("path", path))
		return &types.Result{Success: true, RunID: r.state.RunID, Story: &meta, VideoURL: VideoURL(o.opts.PublicBase, id)}, nil
	}

	// STAGE 2: scenes
	r.transition(ctx, StageSegmenting)
	scenes, err := script.Segment(story.Text, maxScenes)
	if err != nil {
		return r.fail(ctx, StageSegmenting, err)
	}
	r.state.Scenes = scenes
	r.log.Info("story segmented", zap.Int("scenes", len(scenes)))

	// STAGE 3: narration and images in parallel
	r.transition(ctx, StageSynthesizing)
	audio, images, err := o.synthesize(ctx, story, scenes, id)
	if err != nil {
		return r.fail(ctx, StageSynthesizing, err)
	}
	r.state.Audio = audio
	r.state.Images = images

	// STAGE 4: video
	r.transition(ctx, StageAssembling)
	video, err := o.deps.Assembler.Assemble(ctx, images, audio, id)
	if err != nil {
		return r.fail(ctx, StageAssembling, err)
	}
	video.Story = meta
	r.state.Video = video

	res := &types.Result{
		Success:     true,
		RunID:       r.state.RunID,
		Story:       &meta,
		VideoURL:    VideoURL(o.opts.PublicBase, id),
		DurationSec: video.DurationSec,
	}

	if req.Publish && o.deps.Publisher != nil {
		url, err := o.deps.Publisher.Publish(ctx, video, story)
		if err != nil {
			// the video exists; a failed upload does not fail the run
			r.log.Warn("publish failed", zap.Error(err))
			r.state.Error = "publish: " + err.Error()
		} else {
			r.log.Info("published", zap.String("url", url))
			r.state.PublishURL = url
			res.PublishURL = url
		}
	}

	r.transition(ctx, StageDone)
	r.log.Info("pipeline complete",
		zap.String("path", video.Path),
		zap.Float64("duration_sec", video.DurationSec),
		zap.Duration("took", o.now().Sub(r.state.StartedAt)))
	return res, nil
}

// synthesize runs the narration task and one task per scene image in a
// single errgroup. The first fatal error cancels the rest.
func (o *Orchestrator) synthesize(ctx context.Context, story *types.Story, scenes []string, id string) (*types.AudioArtifact, []types.ImageArtifact, error) {
	g, gctx := errgroup.WithContext(ctx)

	var audio *types.AudioArtifact
	narration := story.Title + ". " + story.Text
	g.Go(func() error {
		a, err := o.deps.Narrator.Synthesize(gctx, narration, id)
		if err != nil {
			return fmt.Errorf("narration: %w", err)
		}
		audio = a
		return nil
	})

	// each task owns one slot of images and done
	images := make([]types.ImageArtifact, len(scenes))
	done := make([]bool, len(scenes))
	sem := make(chan struct{}, o.opts.MaxParallel)
	for i, scene := range scenes {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()
			if err := gctx.Err(); err != nil {
				return err
			}

			img, err := o.deps.Illustrator.Synthesize(gctx, scene, id, i)
			if err != nil {
				return fmt.Errorf("scene %d image: %w", i, err)
			}
			images[i] = *img
			done[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	for i, ok := range done {
		if !ok {
			return nil, nil, fmt.Errorf("scene %d has no image", i)
		}
	}
	if audio == nil {
		return nil, nil, fmt.Errorf("narration produced no audio")
	}
	return audio, images, nil
}

func (r *run) transition(ctx context.Context, stage string) {
	r.state.Stage = stage
	r.state.UpdatedAt = r.o.now().UTC()
	r.log.Info("stage", zap.String("stage", stage))
	r.record(ctx)
}

func (r *run) fail(ctx context.Context, stage string, err error) (*types.Result, error) {
	serr := &StageError{Stage: stage, Err: err}
	r.state.Stage = StageFailed
	r.state.FailedStage = stage
	r.state.Error = err.Error()
	r.state.UpdatedAt = r.o.now().UTC()
	r.log.Error("pipeline failed", zap.String("stage", stage), zap.Error(err))
	r.record(ctx)

	res := &types.Result{RunID: r.state.RunID, FailedStage: stage, Error: serr.Error()}
	if r.state.Story != nil {
		meta := r.state.Story.Meta()
		res.Story = &meta
	}
	return res, serr
}

func (r *run) record(ctx context.Context) {
	if r.o.deps.Recorder == nil {
		return
	}
	// recording must survive a cancelled run so the failure is kept
	if err := r.o.deps.Recorder.Record(context.WithoutCancel(ctx), r.state); err != nil {
		r.log.Warn("could not record state", zap.Error(err))
	}
}

// VideoURL is the public path of video id under base
func VideoURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id + store.Videos.Ext()
}
