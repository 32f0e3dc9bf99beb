package prompts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
)

type fakeKV struct {
	data map[string]string
	err  error
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func writePrompt(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name+".txt"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGetPrefersRedisOverride(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "final_analysis", "file version")
	log := zerolog.Nop()
	kv := &fakeKV{data: map[string]string{"prompt:final_analysis": "redis version"}}

	l := NewLoader(kv, dir, &log)
	got, err := l.Get(context.Background(), "final_analysis")
	if err != nil {
		t.Fatal(err)
	}
	if got != "redis version" {
		t.Fatalf("got %q, want redis override", got)
	}
}

func TestGetFallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "generate_knowledge", "file version")
	log := zerolog.Nop()

	l := NewLoader(&fakeKV{data: map[string]string{}}, dir, &log)
	got, err := l.Get(context.Background(), "generate_knowledge")
	if err != nil {
		t.Fatal(err)
	}
	if got != "file version" {
		t.Fatalf("got %q, want file contents", got)
	}
}

func TestGetDegradesWhenRedisFails(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "analyze_video", "file version")
	log := zerolog.Nop()

	l := NewLoader(&fakeKV{err: errors.New("connection refused")}, dir, &log)
	got, err := l.Get(context.Background(), "analyze_video")
	if err != nil {
		t.Fatal(err)
	}
	if got != "file version" {
		t.Fatalf("got %q, want file fallback despite redis error", got)
	}
}

func TestGetMissingPrompt(t *testing.T) {
	log := zerolog.Nop()
	l := NewLoader(nil, t.TempDir(), &log)
	if _, err := l.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRender(t *testing.T) {
	out := Render("resume: {{resume_text}}, jd: {{jd_text}}, keep: {{unknown}}", map[string]string{
		"resume_text": "r",
		"jd_text":     "j",
	})
	want := "resume: r, jd: j, keep: {{unknown}}"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
