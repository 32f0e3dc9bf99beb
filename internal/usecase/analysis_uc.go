// Package usecase holds the orchestration workflow: a fixed state machine
// that routes a request through video extraction, caching, retrieval,
// knowledge generation and the final analysis call.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
	"careerpilot/internal/domain/model"
	"careerpilot/internal/domain/ports/adapter"
	"careerpilot/internal/domain/ports/repository"
	"careerpilot/internal/infra/logging"
	"careerpilot/internal/infra/metrics"
	"careerpilot/internal/infra/resilience"
	"careerpilot/internal/prompts"
	"careerpilot/internal/repair"
)

const (
	analysisKeyPrefix = "analysis:"
	sourceGenerated   = "generated_from_jd"

	promptGenerateKnowledge = "generate_knowledge"
	promptFinalAnalysis     = "final_analysis"
)

type step string

const (
	stepRouteInput        step = "route_input"
	stepProcessVideo      step = "process_video"
	stepCheckCache        step = "check_cache"
	stepSearchVectors     step = "search_vectors"
	stepGenerateKnowledge step = "generate_knowledge"
	stepIngestKnowledge   step = "ingest_knowledge"
	stepFinalAnalysis     step = "final_analysis"
	stepDone              step = "done"
)

// Tokenizer trims prompt context against a token budget. The concrete
// implementation is wired in at startup; a nil tokenizer disables
// truncation.
type Tokenizer interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
	Decode(tokens []int) string
}

type AnalysisUseCase interface {
	// Analyze runs one request through the workflow. The returned result is
	// either a structured analysis, a degraded analysis carrying only
	// "raw_text", or an explicit error marker. A non-nil error means the
	// pipeline itself failed, not that it decided the inputs were unusable.
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

var _ AnalysisUseCase = (*analysisUC)(nil)

type analysisUC struct {
	ai        adapter.AIProvider
	embedder  Embedder
	vectors   repository.VectorStore
	kv        repository.KVStore
	extractor repository.TextExtractor
	prompts   repository.PromptStore
	caller    *resilience.Caller
	tokenizer Tokenizer

	chatModel   string
	topK        int
	resultTTL   time.Duration
	tokenBudget int

	log *zerolog.Logger
}

type Params struct {
	AI        adapter.AIProvider
	Embedder  Embedder
	Vectors   repository.VectorStore
	KV        repository.KVStore
	Extractor repository.TextExtractor // nil disables the video route
	Prompts   repository.PromptStore
	Caller    *resilience.Caller
	Tokenizer Tokenizer // nil disables context truncation

	ChatModel          string
	TopK               int
	ResultTTL          time.Duration
	ContextTokenBudget int

	Log *zerolog.Logger
}

func NewAnalysisUseCase(p Params) AnalysisUseCase {
	return &analysisUC{
		ai:          p.AI,
		embedder:    p.Embedder,
		vectors:     p.Vectors,
		kv:          p.KV,
		extractor:   p.Extractor,
		prompts:     p.Prompts,
		caller:      p.Caller,
		tokenizer:   p.Tokenizer,
		chatModel:   p.ChatModel,
		topK:        p.TopK,
		resultTTL:   p.ResultTTL,
		tokenBudget: p.ContextTokenBudget,
		log:         p.Log,
	}
}

// Fingerprint derives the result cache key for a text pair. It is a
// content hash, stable across processes and restarts.
func Fingerprint(resumeText, jdText string) string {
	h := sha256.New()
	h.Write([]byte(resumeText))
	h.Write([]byte{0})
	h.Write([]byte(jdText))
	return analysisKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (u *analysisUC) Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	run := model.NewAnalysisRun(req)
	ctx = logging.WithRunID(ctx, run.ID)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "AnalysisUC.Analyze")()

	cur := stepRouteInput
	for cur != stepDone {
		next, err := u.exec(ctx, log, cur, run)
		if err != nil {
			metrics.IncWorkflowStep(string(cur), "error")
			metrics.IncWorkflowRun("error")
			log.Error().Err(err).Str("step", string(cur)).Msg("workflow step failed")
			return nil, fmt.Errorf("step %s: %w", cur, err)
		}
		metrics.IncWorkflowStep(string(cur), "ok")
		cur = next
	}

	res := run.Result
	if res == nil {
		metrics.IncWorkflowRun("error")
		return nil, errors.New("workflow finished without a result")
	}
	switch {
	case res.Cached:
		metrics.IncWorkflowRun("cached")
	case res.Failed():
		metrics.IncWorkflowRun("failed")
	case repair.IsRawFallback(res.Analysis):
		metrics.IncWorkflowRun("degraded")
	default:
		metrics.IncWorkflowRun("ok")
	}
	return res, nil
}

func (u *analysisUC) exec(ctx context.Context, log *zerolog.Logger, cur step, run *model.AnalysisRun) (step, error) {
	log.Debug().Str("step", string(cur)).Msg("executing step")
	switch cur {
	case stepRouteInput:
		return u.routeInput(run)
	case stepProcessVideo:
		return u.processVideo(ctx, log, run)
	case stepCheckCache:
		return u.checkCache(ctx, log, run)
	case stepSearchVectors:
		return u.searchVectors(ctx, run)
	case stepGenerateKnowledge:
		return u.generateKnowledge(ctx, run)
	case stepIngestKnowledge:
		return u.ingestKnowledge(ctx, run)
	case stepFinalAnalysis:
		return u.performFinalAnalysis(ctx, log, run)
	default:
		return "", fmt.Errorf("unknown step %q", cur)
	}
}

func (u *analysisUC) routeInput(run *model.AnalysisRun) (step, error) {
	if run.VideoPath != "" {
		return stepProcessVideo, nil
	}
	if strings.TrimSpace(run.ResumeText) == "" || strings.TrimSpace(run.JDText) == "" {
		run.Result = &model.AnalysisResult{Error: domain.ErrMissingInput.Error()}
		return stepDone, nil
	}
	return stepCheckCache, nil
}

// processVideo recovers the text pair from the upload. Extraction failures
// are a decision, not a crash: the run terminates with an error marker the
// caller can inspect.
func (u *analysisUC) processVideo(ctx context.Context, log *zerolog.Logger, run *model.AnalysisRun) (step, error) {
	if u.extractor == nil {
		run.Result = &model.AnalysisResult{Error: "video analysis is not available"}
		return stepDone, nil
	}

	resume, jd, err := u.extractor.Extract(ctx, run.VideoPath)
	if err != nil {
		log.Warn().Err(err).Str("video", run.VideoPath).Msg("video extraction failed")
		run.Result = &model.AnalysisResult{Error: fmt.Sprintf("video extraction failed: %v", err)}
		return stepDone, nil
	}
	if strings.TrimSpace(resume) == "" || strings.TrimSpace(jd) == "" {
		run.Result = &model.AnalysisResult{Error: domain.ErrMissingInput.Error()}
		return stepDone, nil
	}

	run.ResumeText = resume
	run.JDText = jd
	return stepCheckCache, nil
}

// checkCache is a pure exit on a hit: no later step runs.
func (u *analysisUC) checkCache(ctx context.Context, log *zerolog.Logger, run *model.AnalysisRun) (step, error) {
	run.CacheKey = Fingerprint(run.ResumeText, run.JDText)

	v, err := u.kv.Get(ctx, run.CacheKey)
	if err == nil {
		var analysis map[string]any
		if jerr := json.Unmarshal([]byte(v), &analysis); jerr == nil {
			metrics.IncCacheRequest("analysis", "hit")
			run.Result = &model.AnalysisResult{Analysis: analysis, Cached: true}
			return stepDone, nil
		}
		log.Warn().Str("key", run.CacheKey).Msg("dropping corrupt result cache entry")
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("result cache lookup failed")
	}
	metrics.IncCacheRequest("analysis", "miss")
	return stepSearchVectors, nil
}

func (u *analysisUC) searchVectors(ctx context.Context, run *model.AnalysisRun) (step, error) {
	vec, err := u.embedder.Embed(ctx, run.JDText)
	if err != nil {
		return "", fmt.Errorf("embed job description: %w", err)
	}
	if len(vec) == 0 {
		return stepGenerateKnowledge, nil
	}

	chunks, err := u.vectors.Search(ctx, vec, u.topK)
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}
	run.Context = chunks
	if len(chunks) == 0 {
		return stepGenerateKnowledge, nil
	}
	return stepFinalAnalysis, nil
}

// generateKnowledge synthesizes a foundational passage when retrieval came
// back empty. There is no fallback past this point, so failure is fatal
// for the run.
func (u *analysisUC) generateKnowledge(ctx context.Context, run *model.AnalysisRun) (step, error) {
	tmpl, err := u.prompts.Get(ctx, promptGenerateKnowledge)
	if err != nil {
		return "", err
	}
	prompt := prompts.Render(tmpl, map[string]string{"jd_text": run.JDText})

	raw, err := resilience.Call(ctx, u.caller, "generate_knowledge", func(c context.Context) (string, error) {
		return u.ai.Generate(c, u.chatModel, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("generate knowledge: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("generate knowledge: %w", domain.ErrEmptyResponse)
	}

	run.Generated = strings.TrimSpace(raw)
	return stepIngestKnowledge, nil
}

// ingestKnowledge indexes the generated passage and makes it available to
// the current run, not only to future retrievals.
func (u *analysisUC) ingestKnowledge(ctx context.Context, run *model.AnalysisRun) (step, error) {
	vec, err := u.embedder.Embed(ctx, run.Generated)
	if err != nil {
		return "", fmt.Errorf("embed generated knowledge: %w", err)
	}
	if len(vec) > 0 {
		err := u.vectors.Upsert(ctx, repository.Document{
			Text:      run.Generated,
			Embedding: vec,
			Source:    sourceGenerated,
		})
		if err != nil {
			return "", fmt.Errorf("upsert generated knowledge: %w", err)
		}
	}

	run.Context = append(run.Context, model.ContextChunk{Text: run.Generated, Source: sourceGenerated})
	return stepFinalAnalysis, nil
}

func (u *analysisUC) performFinalAnalysis(ctx context.Context, log *zerolog.Logger, run *model.AnalysisRun) (step, error) {
	if strings.TrimSpace(run.ResumeText) == "" || strings.TrimSpace(run.JDText) == "" {
		run.Result = &model.AnalysisResult{Error: domain.ErrMissingInput.Error()}
		return stepDone, nil
	}
	if len(run.Context) == 0 {
		run.Result = &model.AnalysisResult{Error: "no context available for analysis"}
		return stepDone, nil
	}

	parts := make([]string, len(run.Context))
	for i, c := range run.Context {
		parts[i] = c.Text
	}
	contextText := u.truncateContext(strings.Join(parts, "\n"), log)

	tmpl, err := u.prompts.Get(ctx, promptFinalAnalysis)
	if err != nil {
		return "", err
	}
	prompt := prompts.Render(tmpl, map[string]string{
		"context":     contextText,
		"resume_text": run.ResumeText,
		"jd_text":     run.JDText,
	})

	raw, err := resilience.Call(ctx, u.caller, "final_analysis", func(c context.Context) (string, error) {
		return u.ai.Generate(c, u.chatModel, prompt)
	})
	if err != nil {
		return "", fmt.Errorf("final analysis: %w", err)
	}

	run.Result = &model.AnalysisResult{Analysis: repair.Parse(raw)}
	u.writeResultCache(ctx, log, run)
	return stepDone, nil
}

func (u *analysisUC) truncateContext(text string, log *zerolog.Logger) string {
	if u.tokenizer == nil || u.tokenBudget <= 0 {
		return text
	}
	tokens := u.tokenizer.Encode(text, nil, nil)
	if len(tokens) <= u.tokenBudget {
		return text
	}
	log.Warn().Int("tokens", len(tokens)).Int("budget", u.tokenBudget).Msg("context truncated to token budget")
	return u.tokenizer.Decode(tokens[:u.tokenBudget])
}

// writeResultCache stores the completed analysis. A run that reached this
// point without a cache key still returns its result; the gap is only
// logged.
func (u *analysisUC) writeResultCache(ctx context.Context, log *zerolog.Logger, run *model.AnalysisRun) {
	if run.CacheKey == "" {
		log.Warn().Msg("completed run has no cache key, result not cached")
		return
	}
	data, err := json.Marshal(run.Result.Analysis)
	if err != nil {
		return
	}
	if err := u.kv.Set(ctx, run.CacheKey, string(data), u.resultTTL); err != nil {
		log.Warn().Err(err).Str("key", run.CacheKey).Msg("result cache write failed")
	}
}
