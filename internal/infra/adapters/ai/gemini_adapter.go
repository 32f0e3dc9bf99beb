package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"careerpilot/internal/domain"
	"careerpilot/internal/domain/model"
	"careerpilot/internal/domain/ports/adapter"
)

var (
	_ adapter.AIProvider     = (*GeminiAdapter)(nil)
	_ adapter.VisionProvider = (*GeminiAdapter)(nil)
)

// GeminiAdapter implements text generation, vision extraction and
// embeddings using the official SDK. It is the only provider that
// implements the vision port.
type GeminiAdapter struct {
	client *genai.Client
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c}, nil
}

func (g *GeminiAdapter) Generate(ctx context.Context, modelName, prompt string) (string, error) {
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: prompt}}}}
	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, nil)
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

// GenerateVision sends the prompt plus prepared frames as inline image
// parts and requests a JSON response.
func (g *GeminiAdapter) GenerateVision(ctx context.Context, modelName, prompt string, frames []model.Frame) (string, error) {
	parts := make([]*genai.Part, 0, len(frames)+1)
	parts = append(parts, &genai.Part{Text: prompt})
	for _, f := range frames {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: f.MIMEType, Data: f.Data},
		})
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, modelName, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	return textFromResponse(resp)
}

func (g *GeminiAdapter) Embed(ctx context.Context, modelName, text string) ([]float32, error) {
	contents := []*genai.Content{{Parts: []*genai.Part{{Text: text}}}}
	resp, err := g.client.Models.EmbedContent(ctx, modelName, contents, nil)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, domain.ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}

// textFromResponse extracts the candidate text, mapping provider-side
// refusals to domain.ErrSafetyBlocked so callers can tell them apart from
// ordinary failures.
func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("%w: prompt blocked (%s)", domain.ErrSafetyBlocked, resp.PromptFeedback.BlockReason)
		}
		return "", domain.ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: candidate blocked", domain.ErrSafetyBlocked)
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", domain.ErrEmptyResponse
	}

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", domain.ErrEmptyResponse
	}
	return sb.String(), nil
}
