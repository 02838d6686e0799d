package tools_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/tools"
)

func TestNewLocalFileSystem_RequiresBaseDir(t *testing.T) {
	_, err := tools.NewLocalFileSystem("")
	require.Error(t, err)
}

func TestWriteReadAppendDelete_RoundTrip(t *testing.T) {
	fs, err := tools.NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "a/b/file.txt", "hello"))
	got, err := fs.Read(ctx, "a/b/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	require.NoError(t, fs.Append(ctx, "a/b/file.txt", " world"))
	got, err = fs.Read(ctx, "a/b/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)

	exists, err := fs.Exists(ctx, "a/b/file.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, fs.Delete(ctx, "a/b/file.txt"))
	exists, err = fs.Exists(ctx, "a/b/file.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExists_NonexistentReturnsFalseNotError(t *testing.T) {
	fs, err := tools.NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)
	exists, err := fs.Exists(context.Background(), "missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListDirectory_ReturnsEntryNames(t *testing.T) {
	dir := t.TempDir()
	fs, err := tools.NewLocalFileSystem(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, "one.txt", "1"))
	require.NoError(t, fs.Write(ctx, "two.txt", "2"))

	names, err := fs.ListDirectory(ctx, ".")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one.txt", "two.txt"}, names)
}

func TestReadJSONWriteJSON_RoundTrip(t *testing.T) {
	fs, err := tools.NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	require.NoError(t, fs.WriteJSON(ctx, "data.json", payload{Name: "x", N: 3}))

	var got payload
	require.NoError(t, fs.ReadJSON(ctx, "data.json", &got))
	assert.Equal(t, payload{Name: "x", N: 3}, got)
}

func TestDelete_RemovesDirectoryRecursively(t *testing.T) {
	dir := t.TempDir()
	fs, err := tools.NewLocalFileSystem(dir)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, fs.Write(ctx, "sub/nested.txt", "x"))

	require.NoError(t, fs.Delete(ctx, "sub"))
	exists, err := fs.Exists(ctx, "sub")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = fs.Read(ctx, "sub/nested.txt")
	assert.Error(t, err)
}

func TestAbsolutePathBypassesBaseDir(t *testing.T) {
	other := t.TempDir()
	fs, err := tools.NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)
	abs := filepath.Join(other, "abs.txt")

	require.NoError(t, fs.Write(context.Background(), abs, "content"))
	got, err := fs.Read(context.Background(), abs)
	require.NoError(t, err)
	assert.Equal(t, "content", got)
}
