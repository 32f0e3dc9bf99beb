package repository

import (
	"context"

	"careerpilot/internal/domain/model"
)

// Document is a knowledge passage to be indexed. Identity is derived from
// Text content, so re-upserting the same passage replaces the prior entry
// rather than duplicating it.
type Document struct {
	Text      string
	Embedding []float32
	Source    string
}

// VectorStore is the gateway to the external similarity index. Search
// results come back in descending score order as reported by the index;
// ordering among equal scores is the index's native order and is not
// deterministic.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, topK int) ([]model.ContextChunk, error)
	Upsert(ctx context.Context, doc Document) error
}
