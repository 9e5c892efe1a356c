// Package server exposes the pipeline over HTTP
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"
	"go.uber.org/zap"

	"github.com/Kowayz/ytb-story-horro-gen/internal/history"
	"github.com/Kowayz/ytb-story-horro-gen/internal/pipeline"
	"github.com/Kowayz/ytb-story-horro-gen/internal/store"
	"github.com/Kowayz/ytb-story-horro-gen/internal/types"
)

type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*types.Result, error)
}

// RunStore is the read side of the run ledger
type RunStore interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, runID string) (*types.PipelineState, error)
}

// Deps wires the handlers. Runs may be nil when the ledger is disabled.
type Deps struct {
	Stories    pipeline.StorySource
	Runner     Runner
	Runs       RunStore
	Store      *store.Store
	PublicBase string
}

type Server struct {
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps, logger *zap.Logger) *Server {
	if deps.PublicBase == "" {
		deps.PublicBase = "/videos"
	}
	return &Server{deps: deps, logger: logger.Named("server")}
}

// Routes registers the API and the static video directory
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/story/random", s.randomStory).Methods(http.MethodGet)
	api.HandleFunc("/generate-video", s.generateVideo).Methods(http.MethodPost)
	api.HandleFunc("/video/{videoId}", s.videoStatus).Methods(http.MethodGet)
	api.HandleFunc("/runs", s.listRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{runId}", s.getRun).Methods(http.MethodGet)

	if s.deps.Store != nil {
		dir := filepath.Join(s.deps.Store.Root(), string(store.Videos))
		r.PathPrefix("/videos/").Handler(http.StripPrefix("/videos/", http.FileServer(http.Dir(dir))))
	}
	return r
}

// Handler wraps the router with recovery and access logging
func (s *Server) Handler() http.Handler {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.Use(negroni.HandlerFunc(s.accessLog))
	n.UseHandler(s.Routes())
	return n
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		IdleTimeout: time.Minute,
		ReadTimeout: 5 * time.Second,
		// a generation request holds the connection for the whole run
		WriteTimeout: 20 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(rw, r)

	status := 0
	if res, ok := rw.(negroni.ResponseWriter); ok {
		status = res.Status()
	}
	s.logger.Info("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Duration("took", time.Since(start)))
}

func (s *Server) randomStory(w http.ResponseWriter, r *http.Request) {
	story := s.deps.Stories.Story(r.Context())
	if story == nil {
		writeError(w, http.StatusServiceUnavailable, "no story available")
		return
	}
	writeJSON(w, http.StatusOK, story)
}

func (s *Server) generateVideo(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	// an empty body runs with the configured defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.deps.Runner.Run(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, types.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, res)
	default:
		s.logger.Error("generation failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, res)
	}
}

type videoStatus struct {
	Exists bool   `json:"exists"`
	URL    string `json:"url,omitempty"`
}

func (s *Server) videoStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["videoId"]
	if err := store.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.deps.Store == nil || !s.deps.Store.Exists(store.Videos, id) {
		writeJSON(w, http.StatusOK, videoStatus{})
		return
	}
	writeJSON(w, http.StatusOK, videoStatus{Exists: true, URL: pipeline.VideoURL(s.deps.PublicBase, id)})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := s.deps.Runs.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled")
		return
	}
	st, err := s.deps.Runs.Get(r.Context(), mux.Vars(r)["runId"])
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("loading run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
