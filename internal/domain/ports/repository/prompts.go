package repository

import "context"

// PromptStore resolves named prompt templates. Template content is opaque
// to the workflow; placeholders are substituted by the caller.
type PromptStore interface {
	Get(ctx context.Context, name string) (string, error)
}
