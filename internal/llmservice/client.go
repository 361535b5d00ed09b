package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"vision-rag/internal/config"
)

// NewChatModel builds the multimodal chat client. Any OpenAI-compatible
// endpoint (OpenAI, OpenRouter, Azure proxies) is reachable through BaseURL.
func NewChatModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	log.Debug().Interface("config", map[string]string{
		"provider": llmConfig.Provider,
		"base_url": llmConfig.BaseURL,
		"model":    llmConfig.Model,
	}).Msg("Loaded chat config")

	switch llmConfig.Provider {
	case config.ProviderOpenAI, "":
	default:
		return nil, fmt.Errorf("unsupported chat provider: %s", llmConfig.Provider)
	}

	timeout := time.Duration(llmConfig.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(llmConfig.Key()),
		openai.WithModel(llmConfig.Model),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	return llm, nil
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	res, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("choices", len(res.Choices)).Msg("Chat completion received")
	return res, nil
}
