package rag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"vision-rag/internal/vectorindex"
)

// 1x1 transparent PNG
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[text], nil
}

type fakeSearcher struct {
	result *vectorindex.SearchResult
	err    error
	gotK   int
}

func (f *fakeSearcher) Search(ctx context.Context, query []float32, k int) (*vectorindex.SearchResult, error) {
	f.gotK = k
	return f.result, f.err
}

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	panicMsg string
	messages []llms.MessageContent
	opts     llms.CallOptions
	calls    int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func reply(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

// writeImages creates page images under base/images and returns their names.
func writeImages(t *testing.T, base string, names ...string) {
	t.Helper()
	dir := filepath.Join(base, "images")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), pngPixel, 0o644))
	}
}

func searchResult(indices []int, filenames ...string) *vectorindex.SearchResult {
	return &vectorindex.SearchResult{Indices: indices, Distances: make([]float32, len(indices)), Filenames: filenames}
}
