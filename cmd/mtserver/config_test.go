package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
listen: "127.0.0.1:6007"
cache_dir: /tmp/mtserver-test
languages:
  en:
    tokenizer_command: ["cat"]
  de:
    tokenizer_command: ["cat"]
    subword_codes: codes.de
    subword_codes_url: https://example.invalid/codes.de
pairs:
  - source: en
    target: de
    model: passthrough
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mtserver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6007", cfg.Listen)
	assert.Equal(t, "/tmp/mtserver-test", cfg.CacheDir)
	require.Contains(t, cfg.Languages, "de")
	assert.Equal(t, "codes.de", cfg.Languages["de"].SubwordCodes)
	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, "passthrough", cfg.Pairs[0].Model)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "pairs:\n  - {source: en, target: de}\n"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:5007", cfg.Listen)
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoadConfigNoPairs(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "listen: ':1234'\n"))
	require.Error(t, err)
}

func TestHighlightSpans(t *testing.T) {
	// Spans outside the text or out of order are skipped, not panicked on.
	assert.Equal(t, "abc", highlightSpans("abc", [][2]int{{5, 9}}))
	assert.NotEmpty(t, highlightSpans("guten Morgen", [][2]int{{6, 12}}))
}
