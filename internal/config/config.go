package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

// Duration decodes YAML durations given either as Go duration strings
// ("30m", "500ms") or as plain integer seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	UploadDir     string `yaml:"upload_dir"`      // spool dir for video uploads
	MaxUploadMB   int64  `yaml:"max_upload_mb"`   // multipart memory/size cap
	RequestExpiry int    `yaml:"request_timeout"` // seconds per analyze request
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QdrantConfig struct {
	Addr       string `yaml:"addr"` // host:port of the gRPC endpoint
	Collection string `yaml:"collection"`
	VectorSize uint64 `yaml:"vector_size"`
}

type AIConfig struct {
	GeminiKey      string `yaml:"gemini_key"`
	GeminiURL      string `yaml:"gemini_url"`
	OpenAIKey      string `yaml:"openai_key"`
	ChatModel      string `yaml:"chat_model"`
	VisionModel    string `yaml:"vision_model"`
	EmbeddingModel string `yaml:"embedding_model"`
}

type VideoConfig struct {
	FrameIntervalMs int      `yaml:"frame_interval_ms"`
	DedupeThreshold int      `yaml:"dedupe_threshold"` // pHash Hamming distance
	OCRLanguages    []string `yaml:"ocr_languages"`
	Workers         int      `yaml:"workers"` // CPU-bound decode/OCR pool size
}

type WorkflowConfig struct {
	TopK               int      `yaml:"top_k"`
	ResultTTL          Duration `yaml:"result_ttl"`
	EmbeddingTTL       Duration `yaml:"embedding_ttl"`
	VideoTTL           Duration `yaml:"video_ttl"`
	ContextTokenBudget int      `yaml:"context_token_budget"`

	RetryMaxAttempts int      `yaml:"retry_max_attempts"`
	RetryBaseDelay   Duration `yaml:"retry_base_delay"`
	RetryMaxDelay    Duration `yaml:"retry_max_delay"`
	CallTimeout      Duration `yaml:"call_timeout"`
}

type PromptsConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Qdrant   QdrantConfig   `yaml:"qdrant"`
	AI       AIConfig       `yaml:"ai"`
	Video    VideoConfig    `yaml:"video"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Prompts  PromptsConfig  `yaml:"prompts"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Qdrant.Addr == "" {
		return nil, errors.New("qdrant.addr is required")
	}
	if cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		return nil, errors.New("one of ai.gemini_key or ai.openai_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = os.TempDir()
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 128
	}
	if cfg.Server.RequestExpiry <= 0 {
		cfg.Server.RequestExpiry = 300
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "career_knowledge"
	}
	if cfg.Qdrant.VectorSize == 0 {
		cfg.Qdrant.VectorSize = 768
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gemini-2.0-flash"
	}
	if cfg.AI.VisionModel == "" {
		cfg.AI.VisionModel = cfg.AI.ChatModel
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-004"
	}
	if cfg.Video.FrameIntervalMs <= 0 {
		cfg.Video.FrameIntervalMs = 300
	}
	if cfg.Video.DedupeThreshold <= 0 {
		cfg.Video.DedupeThreshold = 5
	}
	if len(cfg.Video.OCRLanguages) == 0 {
		cfg.Video.OCRLanguages = []string{"eng"}
	}
	if cfg.Workflow.TopK <= 0 {
		cfg.Workflow.TopK = 3
	}
	if cfg.Workflow.ResultTTL <= 0 {
		cfg.Workflow.ResultTTL = Duration(time.Hour)
	}
	if cfg.Workflow.EmbeddingTTL <= 0 {
		cfg.Workflow.EmbeddingTTL = Duration(30 * 24 * time.Hour)
	}
	if cfg.Workflow.VideoTTL <= 0 {
		cfg.Workflow.VideoTTL = Duration(time.Hour)
	}
	if cfg.Workflow.ContextTokenBudget <= 0 {
		cfg.Workflow.ContextTokenBudget = 6000
	}
	if cfg.Workflow.RetryMaxAttempts <= 0 {
		cfg.Workflow.RetryMaxAttempts = 3
	}
	if cfg.Workflow.RetryBaseDelay <= 0 {
		cfg.Workflow.RetryBaseDelay = Duration(500 * time.Millisecond)
	}
	if cfg.Workflow.RetryMaxDelay <= 0 {
		cfg.Workflow.RetryMaxDelay = Duration(5 * time.Second)
	}
	if cfg.Workflow.CallTimeout <= 0 {
		cfg.Workflow.CallTimeout = Duration(30 * time.Second)
	}
	if cfg.Prompts.Dir == "" {
		cfg.Prompts.Dir = "prompts"
	}
}
