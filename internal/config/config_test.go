package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderCohere, cfg.EmbedLLM.Provider)
	assert.Equal(t, "embed-v4.0", cfg.EmbedLLM.Model)
	assert.Equal(t, "gpt-4.1-mini", cfg.ChatLLM.Model)
	assert.Equal(t, 1000, cfg.RAG.MaxTokens)
	assert.Equal(t, 1, cfg.RAG.TopK)
	assert.Equal(t, BackendChromem, cfg.Index.Backend)
	assert.True(t, filepath.IsAbs(cfg.Paths.BaseDir))
	assert.Equal(t, filepath.Join(cfg.Paths.BaseDir, "data", "processed", "images"), cfg.Paths.ImageDir)
	assert.Equal(t, filepath.Join(cfg.Paths.BaseDir, "data", "chat", "sessions"), cfg.Paths.SessionDir)
}

func TestLoadConfigResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "paths:\n  base_dir: " + dir + "\n  image_dir: pages\n  session_dir: /tmp/sessions\n" +
		"chat_llm:\n  model: gpt-4o\n" +
		"rag:\n  top_k: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "pages"), cfg.Paths.ImageDir)
	assert.Equal(t, "/tmp/sessions", cfg.Paths.SessionDir)
	assert.Equal(t, "gpt-4o", cfg.ChatLLM.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.ChatLLM.APIKeyEnv)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, filepath.Join(dir, "data", "processed", "vector_store", "image_index.chromem"), cfg.IndexPath())
	assert.Equal(t, filepath.Join(dir, "data", "processed", "vector_store", "index_manifest.json"), cfg.ManifestPath())
}

func TestLoadConfigRejectsShortEncryptionKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  encryption_key: short\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveAndEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = dir
	require.NoError(t, applyDefaults(cfg))

	path := filepath.Join(dir, "configs", "config.yaml")
	require.NoError(t, Save(path, cfg))
	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Paths, loaded.Paths)

	require.NoError(t, cfg.EnsureDirs())
	for _, d := range []string{cfg.Paths.ImageDir, cfg.Paths.PDFDir, cfg.Paths.VectorStoreDir, cfg.Paths.SessionDir} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestLLMConfigKey(t *testing.T) {
	t.Setenv("VISION_RAG_TEST_KEY", "  secret ")
	c := LLMConfig{APIKeyEnv: "VISION_RAG_TEST_KEY"}
	assert.Equal(t, "secret", c.Key())
	assert.Equal(t, "", (&LLMConfig{}).Key())
}
