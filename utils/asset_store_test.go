package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gifBytes = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")

func TestAssetStore_Save(t *testing.T) {
	root := t.TempDir()
	store := NewAssetStore(root, "/media/", 1<<10)

	got, err := store.Save(bytes.NewReader(gifBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/gif", got.ContentType)
	assert.EqualValues(t, len(gifBytes), got.Size)
	assert.True(t, strings.HasPrefix(got.URL, "/media/post_images/"), got.URL)
	assert.True(t, strings.HasSuffix(got.URL, ".gif"), got.URL)

	rel, err := filepath.Rel(root, got.Path)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimPrefix(got.URL, "/media/"), filepath.ToSlash(rel))

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.Equal(t, gifBytes, data)

	require.NoError(t, store.Remove(got.Path))
	assert.NoFileExists(t, got.Path)
	assert.NoError(t, store.Remove(got.Path), "removing twice")
}

func TestAssetStore_SaveRejects(t *testing.T) {
	store := NewAssetStore(t.TempDir(), "/media", 16)

	_, err := store.Save(strings.NewReader("<html>not an image</html>"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = store.Save(strings.NewReader("plain text"))
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Hello", SanitizeLine("  <b>Hello</b> "))
	assert.Equal(t, "", SanitizeLine("<script>alert(1)</script>"))
	assert.Equal(t, `Q&A: Bob's "tips"`, SanitizeLine(`Q&A: <em>Bob's</em> "tips"`))
	assert.Equal(t, "<b>bold</b> ", Sanitize(`<b>bold</b> <script>alert(1)</script>`))
}
