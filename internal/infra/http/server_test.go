package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"careerpilot/internal/config"
	"careerpilot/internal/domain/model"
)

type fakeUC struct {
	res     *model.AnalysisResult
	err     error
	lastReq model.AnalysisRequest
}

func (f *fakeUC) Analyze(_ context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	f.lastReq = req
	return f.res, f.err
}

func newTestServer(uc *fakeUC, videoEnabled bool) *Server {
	log := zerolog.Nop()
	cfg := config.ServerConfig{
		Port:          0,
		UploadDir:     "",
		MaxUploadMB:   8,
		RequestExpiry: 30,
	}
	return NewServer(cfg, uc, videoEnabled, &log)
}

func TestAnalyzeOK(t *testing.T) {
	uc := &fakeUC{res: &model.AnalysisResult{Analysis: map[string]any{"fit_score": float64(80)}}}
	srv := newTestServer(uc, false)

	body := `{"resume_text": "r", "jd_text": "j"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if uc.lastReq.ResumeText != "r" || uc.lastReq.JDText != "j" {
		t.Fatalf("request not forwarded: %+v", uc.lastReq)
	}
	var out model.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Analysis["fit_score"] != float64(80) {
		t.Fatalf("analysis %v", out.Analysis)
	}
}

func TestAnalyzeErrorResultIsUnprocessable(t *testing.T) {
	uc := &fakeUC{res: &model.AnalysisResult{Error: "missing resume or job description input"}}
	srv := newTestServer(uc, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing resume") {
		t.Fatalf("body %s", rec.Body.String())
	}
}

func TestAnalyzeWorkflowFailureIs500(t *testing.T) {
	uc := &fakeUC{err: errors.New("vector store unreachable")}
	srv := newTestServer(uc, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(`{"resume_text":"r","jd_text":"j"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestAnalyzeRejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(&fakeUC{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestAnalyzeVideoDisabled(t *testing.T) {
	srv := newTestServer(&fakeUC{}, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/video", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestAnalyzeVideoSpoolsUpload(t *testing.T) {
	uc := &fakeUC{res: &model.AnalysisResult{Analysis: map[string]any{"fit_score": float64(55)}}}
	log := zerolog.Nop()
	srv := NewServer(config.ServerConfig{
		UploadDir:     t.TempDir(),
		MaxUploadMB:   8,
		RequestExpiry: 30,
	}, uc, true, &log)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", "screen.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("video-bytes")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	if uc.lastReq.VideoPath == "" {
		t.Fatal("video path not forwarded to the workflow")
	}
}

func TestAnalyzeVideoRejectsOversizedUpload(t *testing.T) {
	log := zerolog.Nop()
	srv := NewServer(config.ServerConfig{
		UploadDir:     t.TempDir(),
		MaxUploadMB:   1,
		RequestExpiry: 30,
	}, &fakeUC{}, true, &log)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", "screen.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(bytes.Repeat([]byte("x"), 2<<20)); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/video", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status %d, want 413", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeUC{}, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}
