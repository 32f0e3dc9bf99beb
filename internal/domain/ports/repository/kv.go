package repository

import (
	"context"
	"time"
)

// KVStore is the shared, externally-synchronized key-value cache behind the
// result, embedding and video-extraction caches. Each operation is an
// independent atomic get/set; callers never hold a lock across workflow
// steps. Get returns domain.ErrNotFound for absent or expired keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
