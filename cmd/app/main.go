package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"careerpilot/internal/config"
	"careerpilot/internal/domain/ports/adapter"
	"careerpilot/internal/domain/ports/repository"
	aiAdapters "careerpilot/internal/infra/adapters/ai"
	httpapi "careerpilot/internal/infra/http"
	"careerpilot/internal/infra/logging"
	"careerpilot/internal/infra/metrics"
	qd "careerpilot/internal/infra/qdrant"
	red "careerpilot/internal/infra/redis"
	"careerpilot/internal/infra/resilience"
	"careerpilot/internal/infra/video"
	"careerpilot/internal/infra/worker"
	"careerpilot/internal/prompts"
	"careerpilot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	// ---- Qdrant ----
	vectors, err := qd.NewStore(ctx, &cfg.Qdrant, logger)
	if err != nil {
		log.Fatalf("qdrant: %v", err)
	}
	defer vectors.Close()

	// ---- AI providers (gemini preferred; openai has no vision path) ----
	var ai adapter.AIProvider
	var vision adapter.VisionProvider
	if cfg.AI.GeminiKey != "" {
		g, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL)
		if err != nil {
			log.Fatalf("gemini: %v", err)
		}
		ai, vision = g, g
	} else {
		o, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey)
		if err != nil {
			log.Fatalf("openai: %v", err)
		}
		ai = o
		logger.Warn().Msg("no gemini key configured, video analysis disabled")
	}

	caller := resilience.NewCaller(resilience.Config{
		MaxAttempts: cfg.Workflow.RetryMaxAttempts,
		BaseDelay:   cfg.Workflow.RetryBaseDelay.Std(),
		MaxDelay:    cfg.Workflow.RetryMaxDelay.Std(),
		CallTimeout: cfg.Workflow.CallTimeout.Std(),
	}, logger)

	// ---- Worker pool for CPU-bound decode/OCR ----
	pool := worker.NewPool(cfg.Video.Workers)
	pool.Start(ctx)
	defer pool.Stop()

	promptStore := prompts.NewLoader(redisClient, cfg.Prompts.Dir, logger)
	embedder := usecase.NewCachedEmbedder(ai, redisClient, caller, cfg.AI.EmbeddingModel, cfg.Workflow.EmbeddingTTL.Std(), logger)

	var extractor repository.TextExtractor
	if vision != nil {
		if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
			log.Fatalf("upload dir: %v", err)
		}
		extractor = video.NewExtractor(video.ExtractorParams{
			Source:      video.GocvSource{},
			OCR:         video.NewTesseractOCR(cfg.Video.OCRLanguages),
			Vision:      vision,
			Prompts:     promptStore,
			KV:          redisClient,
			Caller:      caller,
			Pool:        pool,
			VisionModel: cfg.AI.VisionModel,
			IntervalMs:  cfg.Video.FrameIntervalMs,
			Threshold:   cfg.Video.DedupeThreshold,
			CacheTTL:    cfg.Workflow.VideoTTL.Std(),
			Log:         logger,
		})
	}

	var tokenizer usecase.Tokenizer
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err != nil {
		logger.Warn().Err(err).Msg("tokenizer unavailable, context truncation disabled")
	} else {
		tokenizer = enc
	}

	uc := usecase.NewAnalysisUseCase(usecase.Params{
		AI:                 ai,
		Embedder:           embedder,
		Vectors:            vectors,
		KV:                 redisClient,
		Extractor:          extractor,
		Prompts:            promptStore,
		Caller:             caller,
		Tokenizer:          tokenizer,
		ChatModel:          cfg.AI.ChatModel,
		TopK:               cfg.Workflow.TopK,
		ResultTTL:          cfg.Workflow.ResultTTL.Std(),
		ContextTokenBudget: cfg.Workflow.ContextTokenBudget,
		Log:                logger,
	})

	srv := httpapi.NewServer(cfg.Server, uc, extractor != nil, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}
