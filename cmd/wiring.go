package cmd

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/audio"
	"github.com/Kowayz/ytb-story-horro-gen/internal/config"
	"github.com/Kowayz/ytb-story-horro-gen/internal/history"
	"github.com/Kowayz/ytb-story-horro-gen/internal/logging"
	"github.com/Kowayz/ytb-story-horro-gen/internal/pipeline"
	"github.com/Kowayz/ytb-story-horro-gen/internal/render"
	"github.com/Kowayz/ytb-story-horro-gen/internal/research"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/upload"
	"github.com/Kowayz/ytb-story-horro-gen/internal/visuals"
)

// app holds every service a command may need
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *store.Store
	ledger   *history.Ledger
	scraper  *research.Scraper
	uploader *upload.Uploader
	pipeline *pipeline.Orchestrator

	closeLog func()
}

// bootstrap loads config, opens the ledger and builds the pipeline. No
// network calls are made here.
func bootstrap() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := logging.New(cfg.Log.Level, cfg.Paths.Logs)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	ledger, err := history.Open(cfg.Paths.History)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening history: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store.New(cfg.Paths.Output),
		ledger:   ledger,
		uploader: upload.New(cfg.Upload, cfg.Secrets, logger),
		closeLog: closeLog,
	}
	a.scraper = research.New(cfg.Research, logger, ledger, a.storySources()...)

	a.pipeline, err = a.buildPipeline()
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) storySources() []research.Source {
	var sources []research.Source
	reddit, err := research.NewRedditSource(a.cfg.Research, a.cfg.Secrets)
	if err != nil {
		a.logger.Warn("reddit source disabled", zap.Error(err))
	} else {
		sources = append(sources, reddit)
	}
	if len(a.cfg.Research.Feeds) > 0 {
		sources = append(sources, research.NewFeedSource(a.cfg.Research.Feeds, a.cfg.Research.UserAgent))
	}
	return sources
}

func (a *app) buildPipeline() (*pipeline.Orchestrator, error) {
	cfg := a.cfg
	probe := render.NewFFprobe(cfg.Render)

	providers, err := audio.Providers(cfg.Audio, cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("audio providers: %w", err)
	}
	backend, err := visuals.NewBackend(cfg.Visuals, cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("visuals backend: %w", err)
	}

	deps := pipeline.Deps{
		Stories:     a.scraper,
		Narrator:    audio.NewGenerator(providers, a.store, cfg.Audio, probe, a.logger),
		Illustrator: visuals.NewGenerator(backend, a.store, cfg.Visuals, a.logger),
		Assembler:   render.NewAssembler(cfg.Render, a.store, render.NewFFmpeg(cfg.Render), probe, a.logger),
		Store:       a.store,
		Recorder: pipeline.Recorders{
			a.ledger,
			pipeline.StateFile{Dir: filepath.Join(cfg.Paths.Logs, "runs")},
		},
		Publisher: a.uploader,
	}
	opts := pipeline.Options{
		MaxScenes:     cfg.Script.MaxScenes,
		MaxParallel:   cfg.Visuals.MaxParallel,
		ReuseExisting: cfg.Pipeline.ReuseExisting,
		PublicBase:    cfg.Server.PublicBase,
	}
	return pipeline.New(deps, opts, a.logger), nil
}

func (a *app) Close() {
	if err := a.ledger.Close(); err != nil {
		a.logger.Warn("closing history", zap.Error(err))
	}
	a.closeLog()
}
