package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"vision-rag/internal/llmservice"
	"vision-rag/internal/models"
	"vision-rag/internal/pageimage"
)

// ErrNoChoices is returned when the chat service answers without any completion.
var ErrNoChoices = errors.New("chat completion returned no choices")

// Answer is the outcome of GetAnswer. On failure Text holds the fixed
// sentinel and Err the cause.
type Answer struct {
	Text string
	Err  error
}

// OK reports whether the answer came from the model.
func (a Answer) OK() bool { return a.Err == nil }

func failed(err error) Answer {
	return Answer{Text: models.FailureSentinel, Err: err}
}

// Answerer sends a question and its page images to a multimodal chat model.
type Answerer struct {
	llm       llms.Model
	resolver  *pageimage.Resolver
	model     string
	maxTokens int
	timeout   time.Duration
	verbose   bool
}

type AnswererOption func(*Answerer)

func WithMaxTokens(n int) AnswererOption {
	return func(a *Answerer) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

func WithTimeout(d time.Duration) AnswererOption {
	return func(a *Answerer) { a.timeout = d }
}

func WithVerbose(v bool) AnswererOption {
	return func(a *Answerer) { a.verbose = v }
}

func NewAnswerer(llm llms.Model, resolver *pageimage.Resolver, model string, opts ...AnswererOption) *Answerer {
	a := &Answerer{
		llm:       llm,
		resolver:  resolver,
		model:     model,
		maxTokens: models.DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetAnswer never returns an error: every failure is logged and reported
// through the returned Answer.
func (a *Answerer) GetAnswer(ctx context.Context, question string, matchedPaths []string) (ans Answer) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic during answer: %v", r)
			log.Error().Err(err).Msg("Error processing images or getting response")
			ans = failed(err)
		}
	}()

	text, err := a.answer(ctx, question, matchedPaths)
	if err != nil {
		log.Error().Err(err).Strs("matched_paths", matchedPaths).Msg("Error processing images or getting response")
		return failed(err)
	}
	if a.verbose {
		log.Info().Str("answer", text).Msg("LLM response")
	}
	return Answer{Text: text}
}

func (a *Answerer) answer(ctx context.Context, question string, matchedPaths []string) (string, error) {
	messages, err := BuildPrompt(a.resolver, question, matchedPaths)
	if err != nil {
		return "", err
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	opts := []llms.CallOption{llms.WithMaxTokens(a.maxTokens)}
	if a.model != "" {
		opts = append(opts, llms.WithModel(a.model))
	}
	res, err := llmservice.GenerateContent(ctx, a.llm, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if res == nil || len(res.Choices) == 0 || res.Choices[0] == nil {
		return "", ErrNoChoices
	}
	return strings.TrimSpace(res.Choices[0].Content), nil
}
