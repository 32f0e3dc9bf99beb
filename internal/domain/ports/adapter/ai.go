package adapter

import (
	"context"

	"careerpilot/internal/domain/model"
)

// AIProvider is the outbound port to the LLM collaborator. Implementations
// perform exactly one network round trip per call; retry, correlation and
// timing live in the resilience envelope, not here.
type AIProvider interface {
	// Generate issues a text-generation call and returns the raw model text.
	Generate(ctx context.Context, modelName, prompt string) (string, error)
	// Embed returns the embedding vector for text under the given model.
	Embed(ctx context.Context, modelName, text string) ([]float32, error)
}

// VisionProvider generates text from a prompt plus prepared video frames.
// A provider-side refusal must surface as domain.ErrSafetyBlocked so
// callers can distinguish it from ordinary failures.
type VisionProvider interface {
	GenerateVision(ctx context.Context, modelName, prompt string, frames []model.Frame) (string, error)
}
