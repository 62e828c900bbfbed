package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFile_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.MaxSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultHistoryWindow, cfg.Session.HistoryWindow)
	assert.Equal(t, DefaultSessionTTL, cfg.Session.TTL)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
stage = "/srv/docs"

[chunking]
max_size = 500
overlap = 100

[retrieval]
top_k = 5
min_score = 0.3

[completion]
provider = "ollama"
model = "llama3.2"
temperature = 0.7

[session]
history_window = 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/srv/docs", cfg.Stage)
	assert.Equal(t, 500, cfg.Chunking.MaxSize)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 0.3, cfg.Retrieval.MinScore)
	assert.Equal(t, "ollama", cfg.Completion.Provider)
	assert.Equal(t, 0.7, cfg.Completion.Temperature)
	assert.Equal(t, 4, cfg.Session.HistoryWindow)

	// Unset sections keep their defaults.
	assert.Equal(t, DefaultOverfetch, cfg.Retrieval.Overfetch)
	assert.Equal(t, DefaultMaxOutputTokens, cfg.Completion.MaxOutputTokens)
}

func TestLoad_InvalidValuesRestored(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[chunking]
max_size = 100
overlap = 100

[retrieval]
top_k = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	// Overlap must stay below the chunk size.
	assert.Equal(t, 100, cfg.Chunking.MaxSize)
	assert.Equal(t, 20, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultTopK, cfg.Retrieval.TopK)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault_TTL(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}
