// Package cli provides the stagechat command line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/parchment-labs/stagechat/internal/adapters/driven/config/file"
	embeddingollama "github.com/parchment-labs/stagechat/internal/adapters/driven/embedding/ollama"
	embeddingopenai "github.com/parchment-labs/stagechat/internal/adapters/driven/embedding/openai"
	llmollama "github.com/parchment-labs/stagechat/internal/adapters/driven/llm/ollama"
	llmopenai "github.com/parchment-labs/stagechat/internal/adapters/driven/llm/openai"
	"github.com/parchment-labs/stagechat/internal/adapters/driven/stage/filesystem"
	"github.com/parchment-labs/stagechat/internal/adapters/driven/storage/sqlite"
	vectormem "github.com/parchment-labs/stagechat/internal/adapters/driven/vector/memory"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
	"github.com/parchment-labs/stagechat/internal/core/services"
	"github.com/parchment-labs/stagechat/internal/extractors"
	"github.com/parchment-labs/stagechat/internal/logger"
)

// version is set by Execute from the build.
var version = "dev"

// Flag values bound on the root command.
var (
	flagVerbose bool
	flagConfig  string
	flagDataDir string
	flagStage   string
)

// Wired services, available to all subcommands after initEngine.
var (
	cfg            *file.Config
	stage          driven.StageStore
	store          *sqlite.Store
	chatService    *services.ChatService
	indexerService *services.IndexerService
	catalogService *services.CatalogService
)

var rootCmd = &cobra.Command{
	Use:   "stagechat",
	Short: "Chat with the documents in your stage",
	Long: `Stagechat indexes the documents in a stage directory and answers
questions about them, with citations back to the source documents.

Documents are extracted, split into overlapping passages, embedded and
held in a vector index. Questions retrieve the most relevant passages
and the answer is generated from exactly those.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(flagVerbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.stagechat/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.stagechat/data)")
	rootCmd.PersistentFlags().StringVar(&flagStage, "stage", "", "stage directory holding the documents")
}

// Execute runs the root command.
func Execute(v string) error {
	version = v
	return rootCmd.Execute()
}

// initEngine wires the full engine: config, stage, stores, backends and
// services. Commands that talk to the corpus call it first.
func initEngine() error {
	// API keys may live in a .env next to the binary. Missing file is fine.
	_ = godotenv.Load()

	var err error
	cfg, err = file.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagStage != "" {
		cfg.Stage = flagStage
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if cfg.Stage == "" {
		return errors.New("no stage configured: set --stage or the stage key in the config file")
	}

	stage, err = filesystem.New(cfg.Stage)
	if err != nil {
		return fmt.Errorf("opening stage: %w", err)
	}

	store, err = sqlite.NewStore(cfg.DataDir, sqlite.WithSessionCap(cfg.Session.Cap))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	embedding, err := newEmbeddingService()
	if err != nil {
		return err
	}
	completion, err := newCompletionService()
	if err != nil {
		return err
	}

	index := vectormem.NewIndex()

	indexerService = services.NewIndexerService(
		stage,
		extractors.Default(),
		embedding,
		index,
		store.DocumentStore(),
		store.SnapshotStore(),
		services.IndexerConfig{
			ChunkSize:    cfg.Chunking.MaxSize,
			ChunkOverlap: cfg.Chunking.Overlap,
		},
	)

	retrieval := services.NewRetrievalService(embedding, index, services.RetrievalConfig{
		TopK:             cfg.Retrieval.TopK,
		Overfetch:        cfg.Retrieval.Overfetch,
		MaxContextTokens: cfg.Retrieval.MaxContextTokens,
		MinScore:         cfg.Retrieval.MinScore,
	})

	chatService = services.NewChatService(retrieval, completion, store.SessionStore(), services.ChatConfig{
		HistoryWindow:   cfg.Session.HistoryWindow,
		Temperature:     cfg.Completion.Temperature,
		MaxOutputTokens: cfg.Completion.MaxOutputTokens,
	})

	catalogService = services.NewCatalogService(stage)

	return nil
}

// loadIndex rebuilds the vector index from the store. Commands that
// answer questions call it after initEngine; sync skips it because a
// refresh supersedes the rebuild.
func loadIndex(cmd *cobra.Command) error {
	if err := indexerService.Load(cmd.Context()); err != nil {
		return fmt.Errorf("loading index: %w", err)
	}

	purged, err := store.SessionStore().PurgeExpired(cmd.Context(), cfg.Session.TTL)
	if err != nil {
		logger.Warn("Purging expired sessions: %v", err)
	} else if purged > 0 {
		logger.Debug("Purged %d expired sessions", purged)
	}
	return nil
}

// closeEngine releases what initEngine opened.
func closeEngine() {
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Warn("Closing store: %v", err)
		}
	}
	if stage != nil {
		if err := stage.Close(); err != nil {
			logger.Warn("Closing stage: %v", err)
		}
	}
}

func newEmbeddingService() (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "", "openai":
		return embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		})
	case "ollama":
		return embeddingollama.NewEmbeddingService(embeddingollama.Config{
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func newCompletionService() (driven.CompletionService, error) {
	switch cfg.Completion.Provider {
	case "", "openai":
		return llmopenai.NewCompletionService(llmopenai.Config{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
		})
	case "ollama":
		return llmollama.NewCompletionService(llmollama.Config{
			BaseURL: cfg.Completion.BaseURL,
			Model:   cfg.Completion.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Completion.Provider)
	}
}
