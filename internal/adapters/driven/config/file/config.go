// Package file provides the TOML-based configuration for stagechat.
// Settings live in a config file; API keys come from the environment
// (a .env file is honoured when present).
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults chosen to match the behaviour of the original assistant:
// three retrieved passages per question and a seven-message history
// window.
const (
	DefaultTopK             = 3
	DefaultOverfetch        = 3
	DefaultHistoryWindow    = 7
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultMaxContextTokens = 3000
	DefaultMinScore         = 0.15
	DefaultTemperature      = 0.2
	DefaultMaxOutputTokens  = 512
	DefaultSessionCap       = 50
	DefaultSessionTTL       = 24 * time.Hour
)

// Config holds all engine settings.
type Config struct {
	// Stage is the stage root directory for the filesystem backend.
	Stage string `toml:"stage"`

	// DataDir is where the metadata database lives.
	// Empty means ~/.stagechat/data.
	DataDir string `toml:"data_dir"`

	Chunking   ChunkingConfig   `toml:"chunking"`
	Retrieval  RetrievalConfig  `toml:"retrieval"`
	Embedding  BackendConfig    `toml:"embedding"`
	Completion CompletionConfig `toml:"completion"`
	Session    SessionConfig    `toml:"session"`
}

// ChunkingConfig controls passage splitting.
type ChunkingConfig struct {
	// MaxSize is the passage size in runes.
	MaxSize int `toml:"max_size"`

	// Overlap is the number of runes shared between consecutive passages.
	Overlap int `toml:"overlap"`
}

// RetrievalConfig controls similarity search and context packing.
type RetrievalConfig struct {
	// TopK is the number of passages packed into the context.
	TopK int `toml:"top_k"`

	// Overfetch multiplies TopK for the raw search to compensate for
	// filtering and deduplication.
	Overfetch int `toml:"overfetch"`

	// MaxContextTokens bounds the packed context size.
	MaxContextTokens int `toml:"max_context_tokens"`

	// MinScore drops candidates below this similarity.
	MinScore float64 `toml:"min_score"`
}

// BackendConfig identifies an embedding backend.
type BackendConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the model name.
	Model string `toml:"model"`
}

// CompletionConfig identifies the completion backend and its explicit
// generation settings.
type CompletionConfig struct {
	// Provider is "openai" or "ollama".
	Provider string `toml:"provider"`

	// BaseURL overrides the provider's API endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the model name.
	Model string `toml:"model"`

	// Temperature controls generation randomness.
	Temperature float64 `toml:"temperature"`

	// MaxOutputTokens bounds the generated answer length.
	MaxOutputTokens int `toml:"max_output_tokens"`
}

// SessionConfig controls conversation memory.
type SessionConfig struct {
	// Cap is the maximum number of turns kept per session.
	Cap int `toml:"cap"`

	// TTL expires sessions idle longer than this.
	TTL time.Duration `toml:"ttl"`

	// HistoryWindow is the number of recent messages included in the
	// prompt for context disambiguation.
	HistoryWindow int `toml:"history_window"`
}

// Default returns a config with all defaults applied.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			MaxSize: DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:             DefaultTopK,
			Overfetch:        DefaultOverfetch,
			MaxContextTokens: DefaultMaxContextTokens,
			MinScore:         DefaultMinScore,
		},
		Embedding: BackendConfig{
			Provider: "openai",
		},
		Completion: CompletionConfig{
			Provider:        "openai",
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxOutputTokens,
		},
		Session: SessionConfig{
			Cap:           DefaultSessionCap,
			TTL:           DefaultSessionTTL,
			HistoryWindow: DefaultHistoryWindow,
		},
	}
}

// Load reads the config file at path, applying defaults for anything
// unset. A missing file yields the defaults. If path is empty,
// ~/.stagechat/config.toml is used.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".stagechat", "config.toml")
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyFloors()
	return cfg, nil
}

// applyFloors restores defaults for values that would break invariants.
func (c *Config) applyFloors() {
	if c.Chunking.MaxSize <= 0 {
		c.Chunking.MaxSize = DefaultChunkSize
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.MaxSize {
		c.Chunking.Overlap = c.Chunking.MaxSize / 5
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = DefaultTopK
	}
	if c.Retrieval.Overfetch < 1 {
		c.Retrieval.Overfetch = DefaultOverfetch
	}
	if c.Retrieval.MaxContextTokens <= 0 {
		c.Retrieval.MaxContextTokens = DefaultMaxContextTokens
	}
	if c.Session.Cap <= 0 {
		c.Session.Cap = DefaultSessionCap
	}
	if c.Session.HistoryWindow <= 0 {
		c.Session.HistoryWindow = DefaultHistoryWindow
	}
}
