package vectorindex

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"vision-rag/internal/db"
)

// PGSearcher searches the page_images table through pgvector. The filename
// sequence is read from the same table so both halves load together.
type PGSearcher struct {
	db    *bun.DB
	Space *SpaceCheck
}

func NewPGSearcher(bunDB *bun.DB) *PGSearcher {
	return &PGSearcher{db: bunDB}
}

func (s *PGSearcher) Search(ctx context.Context, query []float32, k int) (*SearchResult, error) {
	filenames, err := db.ListFilenames(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	if err := s.Space.Verify(len(query)); err != nil {
		return nil, err
	}
	norm, err := Normalize(query)
	if err != nil {
		return nil, err
	}

	if k <= 0 {
		return &SearchResult{Filenames: filenames}, nil
	}
	rows, err := db.SearchPageImages(ctx, s.db, norm, k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search failed: %w", err)
	}
	return fromRows(filenames, rows), nil
}

// fromRows maps rows ordered by L2 distance onto a result. pgvector reports
// plain L2 distance; results carry it squared.
func fromRows(filenames []string, rows []db.PageImage) *SearchResult {
	result := &SearchResult{Filenames: filenames}
	for _, r := range rows {
		result.Indices = append(result.Indices, r.Position)
		result.Distances = append(result.Distances, float32(r.Distance*r.Distance))
	}
	return result
}
