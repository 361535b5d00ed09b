package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"vision-rag/internal/embedding"
	"vision-rag/internal/pageimage"
	"vision-rag/internal/vectorindex"
)

const defaultTopK = 1

// Matcher finds the indexed page images closest to a question.
type Matcher struct {
	embedder embedding.Embedder
	searcher vectorindex.Searcher
	resolver *pageimage.Resolver
	imageDir string
	timeout  time.Duration
}

func NewMatcher(embedder embedding.Embedder, searcher vectorindex.Searcher, resolver *pageimage.Resolver, imageDir string, timeout time.Duration) *Matcher {
	return &Matcher{
		embedder: embedder,
		searcher: searcher,
		resolver: resolver,
		imageDir: imageDir,
		timeout:  timeout,
	}
}

// MatchImages returns up to k image paths ranked by similarity to question.
// Paths are relative to the base directory unless the image lies outside it.
func (m *Matcher) MatchImages(ctx context.Context, question string, k int) ([]string, error) {
	if k <= 0 {
		k = defaultTopK
	}

	embedCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	queryEmbedding, err := m.embedder.EmbedQuery(embedCtx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	res, err := m.searcher.Search(ctx, queryEmbedding, k)
	if err != nil {
		return nil, err
	}

	indices := inBounds(res.Indices, len(res.Filenames))
	if dropped := len(res.Indices) - len(indices); dropped > 0 {
		log.Warn().Int("dropped", dropped).Int("filenames", len(res.Filenames)).Msg("Search returned indices outside the filename map")
	}

	matched := make([]string, 0, len(indices))
	for _, idx := range indices {
		matched = append(matched, m.resolver.Relative(m.imagePath(res.Filenames[idx])))
	}
	log.Debug().Strs("matched_paths", matched).Msg("Matched page images")
	return matched, nil
}

func (m *Matcher) imagePath(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(m.resolver.Resolve(m.imageDir), filename)
}

// inBounds keeps the indices that address an entry of a sequence of length n,
// preserving order.
func inBounds(indices []int, n int) []int {
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if idx >= 0 && idx < n {
			out = append(out, idx)
		}
	}
	return out
}
