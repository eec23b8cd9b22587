package assets

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDownloadsOnMiss(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("a b\nab c\n"))
	}))
	defer srv.Close()

	store := NewStore(t.TempDir())
	path, err := store.Resolve("codes.en-de", srv.URL+"/codes.en-de")
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a b\nab c\n", string(content))
	assert.Equal(t, 1, hits)

	// Second resolve is served from cache.
	again, err := store.Resolve("codes.en-de", srv.URL+"/codes.en-de")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 1, hits)

	// No leftover lock or temp files.
	assert.NoFileExists(t, path+".lock")
	assert.NoFileExists(t, path+".downloading")
}

func TestResolveBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	store := NewStore(t.TempDir())
	_, err := store.Resolve("missing", srv.URL+"/missing")
	require.Error(t, err)
	assert.False(t, store.HasResource("missing"))
}

func TestResolveExistingFileSkipsNetwork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "codes"), []byte("x y\n"), 0o644))

	store := NewStore(dir)
	path, err := store.Resolve("codes", "http://127.0.0.1:1/unreachable")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "codes"), path)
}
