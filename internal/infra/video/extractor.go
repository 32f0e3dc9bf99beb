package video

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"careerpilot/internal/domain"
	"careerpilot/internal/domain/model"
	"careerpilot/internal/domain/ports/adapter"
	"careerpilot/internal/domain/ports/repository"
	"careerpilot/internal/infra/metrics"
	"careerpilot/internal/infra/resilience"
	"careerpilot/internal/infra/worker"
	"careerpilot/internal/repair"
)

const (
	cacheKeyPrefix    = "video_extract:"
	visionPromptName  = "analyze_video"
	cacheName         = "video"
)

// cachedExtraction is the JSON shape stored per video hash.
type cachedExtraction struct {
	ResumeText string `json:"resume_text"`
	JDText     string `json:"jd_text"`
}

var _ repository.TextExtractor = (*Extractor)(nil)

// Extractor extracts resume and job description text from a screen
// recording. Results are cached by the sha-256 of the file contents, so
// re-uploading the same recording never decodes it twice. The vision
// model is tried first; any failure there falls back to OCR.
type Extractor struct {
	source      FrameSource
	ocr         OCRReader
	vision      adapter.VisionProvider
	prompts     repository.PromptStore
	kv          repository.KVStore
	caller      *resilience.Caller
	pool        *worker.Pool
	visionModel string
	intervalMs  int
	threshold   int
	cacheTTL    time.Duration
	log         *zerolog.Logger
}

type ExtractorParams struct {
	Source      FrameSource
	OCR         OCRReader
	Vision      adapter.VisionProvider // nil disables the vision path
	Prompts     repository.PromptStore
	KV          repository.KVStore
	Caller      *resilience.Caller
	Pool        *worker.Pool // nil runs decode and OCR inline
	VisionModel string
	IntervalMs  int
	Threshold   int
	CacheTTL    time.Duration
	Log         *zerolog.Logger
}

func NewExtractor(p ExtractorParams) *Extractor {
	return &Extractor{
		source:      p.Source,
		ocr:         p.OCR,
		vision:      p.Vision,
		prompts:     p.Prompts,
		kv:          p.KV,
		caller:      p.Caller,
		pool:        p.Pool,
		visionModel: p.VisionModel,
		intervalMs:  p.IntervalMs,
		threshold:   p.Threshold,
		cacheTTL:    p.CacheTTL,
		log:         p.Log,
	}
}

func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, string, error) {
	key, err := cacheKey(videoPath)
	if err != nil {
		return "", "", err
	}

	if cached, ok := e.lookupCache(ctx, key); ok {
		metrics.IncCacheRequest(cacheName, "hit")
		return cached.ResumeText, cached.JDText, nil
	}
	metrics.IncCacheRequest(cacheName, "miss")

	frames, err := e.decodeFrames(ctx, videoPath)
	if err != nil {
		return "", "", err
	}

	resume, jd, verr := e.visionExtract(ctx, frames)
	if verr != nil {
		e.log.Warn().Err(verr).Str("video", videoPath).Msg("vision extraction failed, falling back to ocr")
		resume, jd, err = e.ocrExtract(ctx, frames)
		if err != nil {
			return "", "", fmt.Errorf("ocr fallback: %w", err)
		}
	}

	e.storeCache(ctx, key, cachedExtraction{ResumeText: resume, JDText: jd})
	return resume, jd, nil
}

func (e *Extractor) decodeFrames(ctx context.Context, videoPath string) ([]model.Frame, error) {
	var raw []RawFrame
	decode := func(tctx context.Context) error {
		var derr error
		raw, derr = e.source.Frames(tctx, videoPath, e.intervalMs)
		return derr
	}
	if err := e.run(ctx, decode); err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.ErrNoFrames
	}

	deduped, err := DedupeFrames(raw, e.threshold)
	if err != nil {
		return nil, err
	}
	e.log.Debug().Int("decoded", len(raw)).Int("kept", len(deduped)).Msg("frames deduplicated")
	return PrepareFrames(deduped)
}

func (e *Extractor) visionExtract(ctx context.Context, frames []model.Frame) (string, string, error) {
	if e.vision == nil {
		return "", "", errors.New("no vision provider configured")
	}
	prompt, err := e.prompts.Get(ctx, visionPromptName)
	if err != nil {
		return "", "", err
	}

	raw, err := resilience.Call(ctx, e.caller, "vision_extract", func(c context.Context) (string, error) {
		return e.vision.GenerateVision(c, e.visionModel, prompt, frames)
	})
	if err != nil {
		return "", "", err
	}

	parsed := repair.Parse(raw)
	if repair.IsRawFallback(parsed) {
		return "", "", errors.New("vision response is not structured")
	}
	if blocked, ok := parsed["blocked"].(bool); ok && blocked {
		return "", "", domain.ErrSafetyBlocked
	}
	resume, _ := parsed["resume_text"].(string)
	jd, _ := parsed["jd_text"].(string)
	if resume == "" || jd == "" {
		return "", "", errors.New("vision response missing resume_text or jd_text")
	}
	return resume, jd, nil
}

func (e *Extractor) ocrExtract(ctx context.Context, frames []model.Frame) (string, string, error) {
	var blocks []string
	read := func(context.Context) error {
		var rerr error
		blocks, rerr = e.ocr.ReadText(frames)
		return rerr
	}
	if err := e.run(ctx, read); err != nil {
		return "", "", err
	}

	resume, jd := ClassifyBlocks(blocks)
	if resume == "" && jd == "" {
		return "", "", errors.New("no text recognized in frames")
	}
	return resume, jd, nil
}

// run executes fn on the worker pool when one is configured.
func (e *Extractor) run(ctx context.Context, fn worker.Task) error {
	if e.pool != nil {
		return e.pool.Do(ctx, fn)
	}
	return fn(ctx)
}

func (e *Extractor) lookupCache(ctx context.Context, key string) (cachedExtraction, bool) {
	v, err := e.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			e.log.Warn().Err(err).Msg("video cache lookup failed")
		}
		return cachedExtraction{}, false
	}
	var c cachedExtraction
	if err := json.Unmarshal([]byte(v), &c); err != nil {
		e.log.Warn().Err(err).Str("key", key).Msg("dropping corrupt video cache entry")
		return cachedExtraction{}, false
	}
	return c, true
}

func (e *Extractor) storeCache(ctx context.Context, key string, c cachedExtraction) {
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := e.kv.Set(ctx, key, string(data), e.cacheTTL); err != nil {
		e.log.Warn().Err(err).Str("key", key).Msg("video cache write failed")
	}
}

// cacheKey hashes the whole file so the key survives renames and re-uploads.
func cacheKey(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open video %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash video %s: %w", path, err)
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil)), nil
}
