package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"careerpilot/internal/domain"
	"careerpilot/internal/domain/model"
	"careerpilot/internal/domain/ports/repository"
)

// memKV is an in-memory KVStore. Setting failures makes every operation
// fail, for degraded-cache scenarios.
type memKV struct {
	mu       sync.Mutex
	data     map[string]string
	failures error
	gets     int
	sets     int
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.failures != nil {
		return "", m.failures
	}
	v, ok := m.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.failures != nil {
		return m.failures
	}
	m.data[key] = value
	return nil
}

// fakeAI distinguishes the knowledge and analysis calls by the template
// prefixes the fake prompt store renders.
type fakeAI struct {
	knowledgeOut string
	analysisOut  string
	genErr       error
	genCalls     int
	genPrompts   []string

	embedOut   []float32
	embedErr   error
	embedCalls int
}

func (f *fakeAI) Generate(_ context.Context, _ string, prompt string) (string, error) {
	f.genCalls++
	f.genPrompts = append(f.genPrompts, prompt)
	if f.genErr != nil {
		return "", f.genErr
	}
	if strings.HasPrefix(prompt, "KNOWLEDGE") {
		return f.knowledgeOut, nil
	}
	return f.analysisOut, nil
}

func (f *fakeAI) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	f.embedCalls++
	return f.embedOut, f.embedErr
}

type fakeVectors struct {
	searchOut   []model.ContextChunk
	searchErr   error
	searchCalls int
	upsertErr   error
	upserts     []repository.Document
}

func (f *fakeVectors) Search(context.Context, []float32, int) ([]model.ContextChunk, error) {
	f.searchCalls++
	return f.searchOut, f.searchErr
}

func (f *fakeVectors) Upsert(_ context.Context, doc repository.Document) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, doc)
	return nil
}

type fakePrompts struct{}

func (fakePrompts) Get(_ context.Context, name string) (string, error) {
	switch name {
	case promptGenerateKnowledge:
		return "KNOWLEDGE for: {{jd_text}}", nil
	case promptFinalAnalysis:
		return "ANALYZE context={{context}} resume={{resume_text}} jd={{jd_text}}", nil
	}
	return "", domain.ErrNotFound
}

type fakeExtractor struct {
	resume string
	jd     string
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(context.Context, string) (string, string, error) {
	f.calls++
	return f.resume, f.jd, f.err
}

// fakeTokenizer treats every rune as one token.
type fakeTokenizer struct {
	last []rune
}

func (f *fakeTokenizer) Encode(text string, _, _ []string) []int {
	f.last = []rune(text)
	return make([]int, len(f.last))
}

func (f *fakeTokenizer) Decode(tokens []int) string {
	return string(f.last[:len(tokens)])
}
