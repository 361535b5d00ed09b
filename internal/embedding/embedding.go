package embedding

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"vision-rag/internal/config"
)

// Embedder turns a search question into a vector. Queries are only
// comparable with an index built by the same provider and model.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ImageEmbedder embeds page images, given as data URIs, into the query space.
type ImageEmbedder interface {
	EmbedImages(ctx context.Context, dataURIs []string) ([][]float32, error)
}

// DocumentEmbedder embeds page text. Text-only providers index pages this way.
type DocumentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// New builds the embedder selected by the config provider. The same value
// embeds questions and, through ImageEmbedder or DocumentEmbedder, the index.
func New(cfg *config.LLMConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderCohere, "":
		return NewCohereClient(cfg)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}

// NewOpenAIEmbedder creates an embedder backed by an OpenAI-compatible endpoint.
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Loaded embedder config")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.Key()),
		openai.WithEmbeddingModel(cfg.Model),
		openai.WithHTTPClient(newHTTPClient(cfg.TimeoutSecs)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Loaded embedder config")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(newHTTPClient(cfg.TimeoutSecs)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func newHTTPClient(timeoutSecs int) *http.Client {
	t := time.Duration(timeoutSecs) * time.Second
	if t <= 0 {
		t = 30 * time.Second
	}
	return &http.Client{Timeout: t}
}
