package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parchment-labs/stagechat/internal/core/domain"
)

func TestStage_ListAndRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policy.txt"), []byte("refunds"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "faq.md"), []byte("# FAQ"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("skip me"), 0o644))

	stage, err := New(dir)
	require.NoError(t, err)
	defer stage.Close()

	objects, err := stage.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)

	ids := []string{objects[0].ID, objects[1].ID}
	assert.Contains(t, ids, "policy.txt")
	assert.Contains(t, ids, "sub/faq.md")
	for _, obj := range objects {
		assert.NotEmpty(t, obj.Hash)
		assert.False(t, obj.LastModified.IsZero())
	}

	data, err := stage.Read(context.Background(), "policy.txt")
	require.NoError(t, err)
	assert.Equal(t, "refunds", string(data))
}

func TestStage_ListSkipsHiddenDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("[core]"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "objects", "ab12"), []byte{0x00}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("keep"), 0o644))

	stage, err := New(dir)
	require.NoError(t, err)

	objects, err := stage.List(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "visible.txt", objects[0].ID)
}

func TestStage_HashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	stage, err := New(dir)
	require.NoError(t, err)

	before, err := stage.List(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	after, err := stage.List(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, before[0].Hash, after[0].Hash)
}

func TestStage_ReadMissing(t *testing.T) {
	stage, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = stage.Read(context.Background(), "gone.txt")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStage_ReadRejectsEscape(t *testing.T) {
	stage, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = stage.Read(context.Background(), "../outside.txt")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNew_MissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.Is(err, domain.ErrBackendUnavailable))
}
