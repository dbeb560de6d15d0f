package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

// Scorer providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderGemini    = "gemini"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8090"`

	// Auth
	APIKey string `envconfig:"DOCMARK_API_KEY"`

	// Upload limits
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"` // 50MB

	// Run state
	RunTTL time.Duration `envconfig:"RUN_TTL" default:"1h"`

	// Per-run audit files; empty disables them.
	AuditDir string `envconfig:"AUDIT_DIR"`

	Scorer    ScorerConfig    `envconfig:"SCORER"`
	Chunk     ChunkConfig     `envconfig:"CHUNK"`
	Selection SelectionConfig `envconfig:"SELECTION"`
}

// ScorerConfig selects and configures the relevance scoring service.
type ScorerConfig struct {
	Provider   string `envconfig:"PROVIDER" default:"anthropic"`
	APIKey     string `envconfig:"API_KEY"`
	Model      string `envconfig:"MODEL"`
	BaseURL    string `envconfig:"BASE_URL"`
	APIVersion string `envconfig:"API_VERSION" default:"2024-05-01-preview"` // azure only

	MaxTokens         int           `envconfig:"MAX_TOKENS" default:"1024"`
	Timeout           time.Duration `envconfig:"TIMEOUT" default:"60s"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" default:"0"` // 0 = unlimited
}

type ChunkConfig struct {
	MaxChars      int     `envconfig:"MAX_CHARS" default:"1200"`
	MergeDistance float64 `envconfig:"MERGE_DISTANCE" default:"18"`
}

type SelectionConfig struct {
	BatchSize      int     `envconfig:"BATCH_SIZE" default:"8"`
	MinThreshold   float64 `envconfig:"MIN_THRESHOLD" default:"0.60"`
	SoftCap        float64 `envconfig:"SOFT_CAP" default:"2.0"`
	DefaultDensity float64 `envconfig:"DEFAULT_DENSITY" default:"0.10"`
}

// Load reads an optional .env file and then the process environment.
// It does not validate; callers pick Validate or Scorer.Validate.
func Load() (Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return cfg, nil
}

// Validate checks everything the HTTP server needs.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: DOCMARK_API_KEY", ErrMissingRequired)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.RunTTL <= 0 {
		return fmt.Errorf("RUN_TTL must be positive, got %s", c.RunTTL)
	}
	if err := c.Scorer.Validate(); err != nil {
		return err
	}
	if err := c.Chunk.Validate(); err != nil {
		return err
	}
	return c.Selection.Validate()
}

func (s ScorerConfig) Validate() error {
	switch s.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderAzure, ProviderGemini:
	default:
		return fmt.Errorf("SCORER_PROVIDER %q is not one of anthropic, openai, azure, gemini", s.Provider)
	}
	if s.APIKey == "" {
		return fmt.Errorf("%w: SCORER_API_KEY", ErrMissingRequired)
	}
	if s.Provider == ProviderAzure && s.BaseURL == "" {
		return fmt.Errorf("%w: SCORER_BASE_URL (azure endpoint)", ErrMissingRequired)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("SCORER_MAX_TOKENS must be positive, got %d", s.MaxTokens)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("SCORER_TIMEOUT must be positive, got %s", s.Timeout)
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("SCORER_REQUESTS_PER_SECOND must not be negative, got %g", s.RequestsPerSecond)
	}
	return nil
}

func (c ChunkConfig) Validate() error {
	if c.MaxChars <= 0 {
		return fmt.Errorf("CHUNK_MAX_CHARS must be positive, got %d", c.MaxChars)
	}
	if c.MergeDistance <= 0 {
		return fmt.Errorf("CHUNK_MERGE_DISTANCE must be positive, got %g", c.MergeDistance)
	}
	return nil
}

func (s SelectionConfig) Validate() error {
	if s.BatchSize <= 0 {
		return fmt.Errorf("SELECTION_BATCH_SIZE must be positive, got %d", s.BatchSize)
	}
	if s.MinThreshold < 0 || s.MinThreshold > 1 {
		return fmt.Errorf("SELECTION_MIN_THRESHOLD must be within 0..1, got %g", s.MinThreshold)
	}
	if s.SoftCap < 1 {
		return fmt.Errorf("SELECTION_SOFT_CAP must be at least 1, got %g", s.SoftCap)
	}
	if s.DefaultDensity < 0.01 || s.DefaultDensity > 0.5 {
		return fmt.Errorf("SELECTION_DEFAULT_DENSITY must be within 0.01..0.5, got %g", s.DefaultDensity)
	}
	return nil
}
