package vectorindex

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"vision-rag/internal/chromemdb"
)

// ChromemSearcher searches an exported chromem collection. Document IDs are
// the decimal positions into the filename sequence.
type ChromemSearcher struct {
	IndexPath     string
	FilenamesPath string
	Collection    string
	EncryptionKey string
	Space         *SpaceCheck
}

func NewChromemSearcher(indexPath, filenamesPath, collection, encryptionKey string) *ChromemSearcher {
	return &ChromemSearcher{
		IndexPath:     indexPath,
		FilenamesPath: filenamesPath,
		Collection:    collection,
		EncryptionKey: encryptionKey,
	}
}

// Search reloads the index from disk on every call.
func (s *ChromemSearcher) Search(ctx context.Context, query []float32, k int) (*SearchResult, error) {
	db := chromemdb.NewVectorDBManager(s.Collection, s.EncryptionKey)
	if err := db.Import(s.IndexPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	filenames, err := LoadFilenames(s.FilenamesPath)
	if err != nil {
		return nil, err
	}
	if err := s.Space.Verify(len(query)); err != nil {
		return nil, err
	}

	norm, err := Normalize(query)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Filenames: filenames}
	if k > db.Count() {
		k = db.Count()
	}
	if k <= 0 {
		return result, nil
	}

	hits, err := db.QueryEmbedding(ctx, norm, k)
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		idx, err := strconv.Atoi(h.ID)
		if err != nil {
			log.Warn().Str("id", h.ID).Msg("Skipping index entry with non-numeric id")
			continue
		}
		result.Indices = append(result.Indices, idx)
		result.Distances = append(result.Distances, squaredL2(h.Similarity))
	}
	log.Debug().Ints("indices", result.Indices).Int("k", k).Msg("Similarity search done")
	return result, nil
}
