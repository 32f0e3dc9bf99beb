// Package http exposes the inbound trigger: JSON and multipart analyze
// endpoints plus health and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"careerpilot/internal/config"
	"careerpilot/internal/domain/model"
	"careerpilot/internal/usecase"
)

type Server struct {
	cfg          config.ServerConfig
	uc           usecase.AnalysisUseCase
	videoEnabled bool
	log          *zerolog.Logger
	srv          *http.Server
}

func NewServer(cfg config.ServerConfig, uc usecase.AnalysisUseCase, videoEnabled bool, log *zerolog.Logger) *Server {
	s := &Server{cfg: cfg, uc: uc, videoEnabled: videoEnabled, log: log}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(s.cfg.RequestExpiry) * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/analyze/video", s.handleAnalyzeVideo)
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.respond(w, r, req)
}

// handleAnalyzeVideo spools the upload to disk so decoding can reread the
// file, and deletes it once the run returns.
func (s *Server) handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	if !s.videoEnabled {
		writeError(w, http.StatusServiceUnavailable, "video analysis is not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadMB << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, _, err := r.FormFile("video")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing video file field")
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp(s.cfg.UploadDir, "upload-*.mp4")
	if err != nil {
		s.log.Error().Err(err).Msg("cannot spool upload")
		writeError(w, http.StatusInternalServerError, "cannot store upload")
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		writeError(w, http.StatusInternalServerError, "cannot store upload")
		return
	}
	tmp.Close()

	s.respond(w, r, model.AnalysisRequest{VideoPath: tmp.Name()})
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, req model.AnalysisRequest) {
	res, err := s.uc.Analyze(r.Context(), req)
	if err != nil {
		s.log.Error().Err(err).Msg("analysis run failed")
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	if res.Failed() {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
