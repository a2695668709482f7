package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanbriolat/tiktok-archiver"
	"github.com/alanbriolat/tiktok-archiver/export"
	"github.com/alanbriolat/tiktok-archiver/selection"
)

func testRun(args ...string) error {
	ctx := tiktok_archiver.WithLogger(context.Background(), zap.NewNop())
	return run(ctx, zap.NewAtomicLevel(), append([]string{"tiktok-archiver"}, args...))
}

func writeExport(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require_.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require_.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return dir
}

func TestRunMissingArchive(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	output := filepath.Join(dir, "output")
	err := testRun("--save", "favourites", filepath.Join(dir, "missing.zip"), output)
	var parseErr *export.ParseError
	assert.ErrorAs(err, &parseErr)
	assert.NoDirExists(output)
}

func TestRunNoCategories(t *testing.T) {
	assert := assert_.New(t)

	// The archive doesn't exist either, so opening it first would give a different error.
	dir := t.TempDir()
	output := filepath.Join(dir, "output")
	err := testRun(filepath.Join(dir, "missing.zip"), output)
	var configErr *selection.ConfigError
	assert.ErrorAs(err, &configErr)
	assert.ErrorIs(err, selection.ErrNoCategories)
	var parseErr *export.ParseError
	assert.False(errors.As(err, &parseErr))
	assert.NoDirExists(output)

	err = testRun("--save", "followers", filepath.Join(dir, "missing.zip"), output)
	assert.ErrorIs(err, selection.ErrUnknownCategory)
	assert.NoDirExists(output)
}

func TestRunMissingCategory(t *testing.T) {
	assert := assert_.New(t)

	archive := writeExport(t, map[string]string{
		"Activity/Favorite Videos.txt": "Date: 2021-01-01 00:00:00\nVideo Link: https://www.tiktokv.com/share/video/1/\n",
	})
	output := filepath.Join(t.TempDir(), "output")
	err := testRun("--save", "likes", archive, output)
	var parseErr *export.ParseError
	assert.ErrorAs(err, &parseErr)
	assert.ErrorIs(err, export.ErrMissingCategory)
	assert.NoDirExists(output)
}

func TestRunInvalidConfig(t *testing.T) {
	assert := assert_.New(t)

	dir := t.TempDir()
	output := filepath.Join(dir, "output")
	err := testRun("--save", "likes", "--parallel", "0", filepath.Join(dir, "missing.zip"), output)
	assert.ErrorIs(err, tiktok_archiver.ErrInvalidParallel)
	assert.NoDirExists(output)

	assert.Error(testRun("--save", "likes", filepath.Join(dir, "missing.zip")))
}

func TestRunEndToEnd(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("video bytes"))
	}))
	defer server.Close()

	link := server.URL + "/clip.mp4"
	archive := writeExport(t, map[string]string{
		"Activity/Favorite Videos.txt": "Date: 2021-01-01 00:00:00\nVideo Link: " + link + "\n\n" +
			"Date: 2021-01-02 00:00:00\nVideo Link:\n",
	})
	output := filepath.Join(t.TempDir(), "output")
	require.NoError(testRun("--save", "favourites", "--no-info-json", archive, output))

	target := filepath.Join(output, "favourites", export.RawIDFromURL(link)+".mp4")
	content, err := os.ReadFile(target)
	require.NoError(err)
	assert.Equal("video bytes", string(content))
	entries, err := os.ReadDir(filepath.Join(output, "favourites"))
	require.NoError(err)
	assert.Len(entries, 1)

	// Everything is already present the second time round.
	require.NoError(testRun("--save", "favourites", "--no-info-json", archive, output))
	entries, err = os.ReadDir(output)
	require.NoError(err)
	assert.Len(entries, 1)
}
