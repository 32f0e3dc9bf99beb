package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
	"careerpilot/internal/domain/ports/adapter"
	"careerpilot/internal/domain/ports/repository"
	"careerpilot/internal/infra/metrics"
	"careerpilot/internal/infra/resilience"
)

const embedKeyPrefix = "emb:"

// Embedder turns text into a vector. Implementations may cache.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var _ Embedder = (*CachedEmbedder)(nil)

// CachedEmbedder wraps a provider's embedding endpoint with a redis
// cache keyed by model and text hash, so identical passages are embedded
// once per model. Cache failures degrade to a direct provider call.
type CachedEmbedder struct {
	ai     adapter.AIProvider
	kv     repository.KVStore
	caller *resilience.Caller
	model  string
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewCachedEmbedder(ai adapter.AIProvider, kv repository.KVStore, caller *resilience.Caller, model string, ttl time.Duration, log *zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{ai: ai, kv: kv, caller: caller, model: model, ttl: ttl, log: log}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return []float32{}, nil
	}

	key := embedKey(e.model, text)
	if v, err := e.kv.Get(ctx, key); err == nil {
		var vec []float32
		if jerr := json.Unmarshal([]byte(v), &vec); jerr == nil {
			metrics.IncCacheRequest("embedding", "hit")
			return vec, nil
		}
		e.log.Warn().Str("key", key).Msg("dropping corrupt embedding cache entry")
	} else if !errors.Is(err, domain.ErrNotFound) {
		e.log.Warn().Err(err).Msg("embedding cache lookup failed")
	}
	metrics.IncCacheRequest("embedding", "miss")

	vec, err := resilience.Call(ctx, e.caller, "embed", func(c context.Context) ([]float32, error) {
		return e.ai.Embed(c, e.model, text)
	})
	if err != nil {
		return nil, err
	}

	if data, jerr := json.Marshal(vec); jerr == nil {
		if serr := e.kv.Set(ctx, key, string(data), e.ttl); serr != nil {
			e.log.Warn().Err(serr).Str("key", key).Msg("embedding cache write failed")
		}
	}
	return vec, nil
}

// embedKey is stable across processes and restarts: the text is hashed,
// never truncated or stored raw.
func embedKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return embedKeyPrefix + model + ":" + hex.EncodeToString(sum[:])
}
