// Package vectorindex is the similarity search adapter over the persisted page
// image index and the filename sequence kept in lockstep with it.
package vectorindex

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrLoad is returned when the index or its filename sequence cannot be loaded.
	ErrLoad = errors.New("failed to load similarity index")
	// ErrZeroVector is returned when a query vector has zero length and cannot be normalized.
	ErrZeroVector = errors.New("cannot normalize zero-length vector")
)

// SearchResult holds the ranked hits of one search together with the filename
// sequence that was loaded with the index. Indices may point past the end of
// Filenames; callers filter them.
type SearchResult struct {
	Indices   []int
	Distances []float32
	Filenames []string
}

// Searcher performs k-nearest-neighbor search over the persisted index.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) (*SearchResult, error)
}

// Normalize returns a unit-length copy of v.
func Normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroVector
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// squaredL2 converts cosine similarity of unit vectors to squared euclidean distance.
func squaredL2(similarity float32) float32 {
	d := 2 - 2*similarity
	if d < 0 {
		return 0
	}
	return d
}
