package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"vision-rag/internal/helper"
)

const (
	BackendChromem  = "chromem"
	BackendPGVector = "pgvector"

	ProviderCohere = "cohere"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Log      LogConfig      `yaml:"log"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	Index    IndexConfig    `yaml:"index"`
	Database DatabaseConfig `yaml:"database"`
	RAG      RAGConfig      `yaml:"rag"`
}

// PathsConfig holds the on-disk layout. Relative entries are resolved against BaseDir.
type PathsConfig struct {
	BaseDir        string `yaml:"base_dir"`
	ImageDir       string `yaml:"image_dir"`
	PDFDir         string `yaml:"pdf_dir"`
	VectorStoreDir string `yaml:"vector_store_dir"`
	SessionDir     string `yaml:"session_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// LLMConfig configures one hosted model endpoint. The API key is read from the
// environment variable named by APIKeyEnv so it never lives in the yaml file.
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type IndexConfig struct {
	Backend       string `yaml:"backend"`
	Collection    string `yaml:"collection"`
	IndexFile     string `yaml:"index_file"`
	FilenamesFile string `yaml:"filenames_file"`
	ManifestFile  string `yaml:"manifest_file"`
	EncryptionKey string `yaml:"encryption_key"`
}

type DatabaseConfig struct {
	DSNEnv string `yaml:"dsn_env"`
	Debug  bool   `yaml:"debug"`
}

type RAGConfig struct {
	TopK      int  `yaml:"top_k"`
	MaxTokens int  `yaml:"max_tokens"`
	Verbose   bool `yaml:"verbose"`
}

// Key returns the API key from the configured environment variable.
func (c *LLMConfig) Key() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
}

// DSN returns the Postgres connection string from the configured environment variable.
func (c *DatabaseConfig) DSN() string {
	if c.DSNEnv == "" {
		return ""
	}
	return os.Getenv(c.DSNEnv)
}

// IndexPath is the exported chromem index file.
func (c *Config) IndexPath() string {
	return filepath.Join(c.Paths.VectorStoreDir, c.Index.IndexFile)
}

// FilenamesPath is the filename sequence kept in lockstep with the index.
func (c *Config) FilenamesPath() string {
	return filepath.Join(c.Paths.VectorStoreDir, c.Index.FilenamesFile)
}

// ManifestPath records which embedder built the index.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.VectorStoreDir, c.Index.ManifestFile)
}

// LoadConfig reads a config from path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			if err := applyDefaults(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// EnsureDirs creates every data directory the application reads or writes.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.PDFDir, c.Paths.ImageDir, c.Paths.VectorStoreDir, c.Paths.SessionDir} {
		if err := helper.CreateFolder(dir); err != nil {
			return err
		}
	}
	return nil
}

func Default() *Config {
	return &Config{
		Paths: PathsConfig{BaseDir: "."},
		Log:   LogConfig{Level: "debug"},
		EmbedLLM: LLMConfig{
			Provider:    ProviderCohere,
			BaseURL:     "https://api.cohere.com",
			APIKeyEnv:   "COHERE_API_KEY",
			Model:       "embed-v4.0",
			TimeoutSecs: 30,
		},
		ChatLLM: LLMConfig{
			Provider:    ProviderOpenAI,
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "gpt-4.1-mini",
			TimeoutSecs: 120,
		},
		Index: IndexConfig{
			Backend:       BackendChromem,
			Collection:    "page_images",
			IndexFile:     "image_index.chromem",
			FilenamesFile: "image_filenames.json",
		ManifestFile:  "index_manifest.json",
		},
		Database: DatabaseConfig{DSNEnv: "DATABASE_URL"},
		RAG:      RAGConfig{TopK: 1, MaxTokens: 1000, Verbose: true},
	}
}

func applyDefaults(cfg *Config) error {
	base := cfg.Paths.BaseDir
	if base == "" {
		base = "."
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("failed to resolve base dir %s: %w", base, err)
	}
	cfg.Paths.BaseDir = abs

	cfg.Paths.ImageDir = underBase(abs, cfg.Paths.ImageDir, "data/processed/images")
	cfg.Paths.PDFDir = underBase(abs, cfg.Paths.PDFDir, "data/raw/source_docs")
	cfg.Paths.VectorStoreDir = underBase(abs, cfg.Paths.VectorStoreDir, "data/processed/vector_store")
	cfg.Paths.SessionDir = underBase(abs, cfg.Paths.SessionDir, "data/chat/sessions")

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.EmbedLLM.TimeoutSecs <= 0 {
		cfg.EmbedLLM.TimeoutSecs = 30
	}
	if cfg.ChatLLM.TimeoutSecs <= 0 {
		cfg.ChatLLM.TimeoutSecs = 120
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendChromem
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = "page_images"
	}
	if cfg.Index.IndexFile == "" {
		cfg.Index.IndexFile = "image_index.chromem"
	}
	if cfg.Index.FilenamesFile == "" {
		cfg.Index.FilenamesFile = "image_filenames.json"
	}
	if cfg.Index.ManifestFile == "" {
		cfg.Index.ManifestFile = "index_manifest.json"
	}
	if n := len(cfg.Index.EncryptionKey); n != 0 && n != 32 {
		return fmt.Errorf("index encryption key must be 32 bytes, got %d", n)
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = 1
	}
	if cfg.RAG.MaxTokens <= 0 {
		cfg.RAG.MaxTokens = 1000
	}
	return nil
}

func underBase(base, dir, fallback string) string {
	if dir == "" {
		dir = fallback
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(base, dir)
}
