package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"careerpilot/internal/infra/resilience"
)

func newTestEmbedder(ai *fakeAI, kv *memKV) *CachedEmbedder {
	log := zerolog.Nop()
	caller := resilience.NewCaller(resilience.Config{MaxAttempts: 1, BaseDelay: time.Millisecond}, &log)
	return NewCachedEmbedder(ai, kv, caller, "embed-model", time.Hour, &log)
}

func TestEmbedEmptyTextSkipsProvider(t *testing.T) {
	ai := &fakeAI{}
	e := newTestEmbedder(ai, newMemKV())

	vec, err := e.Embed(context.Background(), "   \n\t ")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 0 {
		t.Fatalf("got %d dims, want empty vector", len(vec))
	}
	if ai.embedCalls != 0 {
		t.Fatal("provider called for empty text")
	}
}

func TestEmbedCachesByModelAndText(t *testing.T) {
	ai := &fakeAI{embedOut: []float32{0.1, 0.2, 0.3}}
	kv := newMemKV()
	e := newTestEmbedder(ai, kv)

	first, err := e.Embed(context.Background(), "golang backend engineer")
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embed(context.Background(), "golang backend engineer")
	if err != nil {
		t.Fatal(err)
	}
	if ai.embedCalls != 1 {
		t.Fatalf("provider called %d times, want 1", ai.embedCalls)
	}
	if len(first) != 3 || len(second) != 3 || second[1] != first[1] {
		t.Fatalf("cached vector mismatch: %v vs %v", first, second)
	}

	key := embedKey("embed-model", "golang backend engineer")
	if _, err := kv.Get(context.Background(), key); err != nil {
		t.Fatalf("vector not stored under stable key: %v", err)
	}
}

func TestEmbedDegradesWhenCacheFails(t *testing.T) {
	ai := &fakeAI{embedOut: []float32{1}}
	kv := newMemKV()
	kv.failures = errors.New("redis down")
	e := newTestEmbedder(ai, kv)

	vec, err := e.Embed(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 1 || ai.embedCalls != 1 {
		t.Fatalf("expected direct provider call, got vec=%v calls=%d", vec, ai.embedCalls)
	}
}

func TestEmbedPropagatesProviderError(t *testing.T) {
	ai := &fakeAI{embedErr: errors.New("quota exceeded")}
	e := newTestEmbedder(ai, newMemKV())

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestEmbedKeyStable(t *testing.T) {
	a := embedKey("m", "same text")
	b := embedKey("m", "same text")
	if a != b {
		t.Fatalf("key not stable: %s vs %s", a, b)
	}
	if embedKey("other-model", "same text") == a {
		t.Fatal("model must partition the key space")
	}
	if embedKey("m", "other text") == a {
		t.Fatal("text must partition the key space")
	}
}
