package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vision-rag/internal/chromemdb"
	"vision-rag/internal/pageimage"
	"vision-rag/internal/vectorindex"
)

func TestInBounds(t *testing.T) {
	assert.Equal(t, []int{0, 2}, inBounds([]int{0, 5, 2, -1}, 3))
	assert.Empty(t, inBounds([]int{1, 2}, 0))
	assert.Empty(t, inBounds(nil, 3))
}

func TestMatchImagesFiltersOutOfBounds(t *testing.T) {
	base := t.TempDir()
	searcher := &fakeSearcher{result: &vectorindex.SearchResult{
		Indices:   []int{1, 7, 0},
		Distances: []float32{0.1, 0.2, 0.3},
		Filenames: []string{"a_page1.png", "b_page2.png"},
	}}
	m := NewMatcher(&fakeEmbedder{vectors: map[string][]float32{"q": {1}}}, searcher,
		pageimage.NewResolver(base), filepath.Join(base, "images"), 0)

	got, err := m.MatchImages(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("images", "b_page2.png"),
		filepath.Join("images", "a_page1.png"),
	}, got)
	assert.Equal(t, 3, searcher.gotK)
}

func TestMatchImagesDefaultsToOneResult(t *testing.T) {
	searcher := &fakeSearcher{result: &vectorindex.SearchResult{}}
	m := NewMatcher(&fakeEmbedder{}, searcher, pageimage.NewResolver(t.TempDir()), "images", 0)

	got, err := m.MatchImages(context.Background(), "q", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, searcher.gotK)
}

func TestMatchImagesOutsideBaseDirIsAbsolute(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	searcher := &fakeSearcher{result: &vectorindex.SearchResult{
		Indices:   []int{0, 1},
		Filenames: []string{"x_page1.png", filepath.Join(outside, "y_page3.png")},
	}}
	m := NewMatcher(&fakeEmbedder{}, searcher, pageimage.NewResolver(base), outside, 0)

	got, err := m.MatchImages(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(outside, "x_page1.png"),
		filepath.Join(outside, "y_page3.png"),
	}, got)
}

func TestMatchImagesPropagatesErrors(t *testing.T) {
	upstream := errors.New("embedding quota exceeded")
	m := NewMatcher(&fakeEmbedder{err: upstream}, &fakeSearcher{}, pageimage.NewResolver("/"), "images", 0)
	_, err := m.MatchImages(context.Background(), "q", 1)
	assert.ErrorIs(t, err, upstream)

	searcher := &fakeSearcher{err: vectorindex.ErrLoad}
	m = NewMatcher(&fakeEmbedder{}, searcher, pageimage.NewResolver("/"), "images", 0)
	_, err = m.MatchImages(context.Background(), "q", 1)
	assert.ErrorIs(t, err, vectorindex.ErrLoad)
}

func TestMatchImagesAgainstChromemFixture(t *testing.T) {
	base := t.TempDir()
	storeDir := filepath.Join(base, "vector_store")
	names := []string{"report_page1.png", "report_page2.png", "summary_page1.png", "annex_page9.png"}
	vectors := [][]float32{{0, 1, 0}, {1, 0, 0}, {0.8, 0.6, 0}, {0.5, 0, 0.5}}

	db := chromemdb.NewVectorDBManager("page_images", "")
	_, err := db.GetOrCreateCollection()
	require.NoError(t, err)
	docs := make([]chromem.Document, len(vectors))
	for i, v := range vectors {
		docs[i] = chromem.Document{ID: strconv.Itoa(i), Content: names[i], Embedding: v}
	}
	require.NoError(t, db.CreateDocs(context.Background(), docs))
	require.NoError(t, db.Export(filepath.Join(storeDir, "image_index.chromem")))
	require.NoError(t, vectorindex.SaveFilenames(filepath.Join(storeDir, "image_filenames.json"), names))

	searcher := vectorindex.NewChromemSearcher(
		filepath.Join(storeDir, "image_index.chromem"),
		filepath.Join(storeDir, "image_filenames.json"),
		"page_images", "")
	embedder := &fakeEmbedder{vectors: map[string][]float32{"test": {2, 0, 0}}}
	m := NewMatcher(embedder, searcher, pageimage.NewResolver(base), filepath.Join(base, "images"), 0)

	got, err := m.MatchImages(context.Background(), "test", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{
		filepath.Join("images", "report_page2.png"),
		filepath.Join("images", "summary_page1.png"),
		filepath.Join("images", "annex_page9.png"),
	}, got)
	assert.Equal(t, 1, embedder.calls)
}

func TestMatchImagesRejectsQueryFromOtherEmbedder(t *testing.T) {
	base := t.TempDir()
	storeDir := filepath.Join(base, "vector_store")
	names := []string{"report_page1.png", "report_page2.png", "report_page3.png"}

	db := chromemdb.NewVectorDBManager("page_images", "")
	_, err := db.GetOrCreateCollection()
	require.NoError(t, err)
	docs := make([]chromem.Document, len(names))
	for i := range names {
		v := make([]float32, 3)
		v[i] = 1
		docs[i] = chromem.Document{ID: strconv.Itoa(i), Content: names[i], Embedding: v}
	}
	require.NoError(t, db.CreateDocs(context.Background(), docs))
	require.NoError(t, db.Export(filepath.Join(storeDir, "image_index.chromem")))
	require.NoError(t, vectorindex.SaveFilenames(filepath.Join(storeDir, "image_filenames.json"), names))
	manifest := filepath.Join(storeDir, "index_manifest.json")
	require.NoError(t, vectorindex.SaveManifest(manifest, vectorindex.Manifest{
		Provider: "cohere", Model: "embed-v4.0", Modality: vectorindex.ModalityImage, Dimension: 3,
	}))

	searcher := vectorindex.NewChromemSearcher(
		filepath.Join(storeDir, "image_index.chromem"),
		filepath.Join(storeDir, "image_filenames.json"),
		"page_images", "")
	searcher.Space = &vectorindex.SpaceCheck{ManifestPath: manifest, Provider: "openai", Model: "text-embedding-3-small"}
	embedder := &fakeEmbedder{vectors: map[string][]float32{"test": {1, 0}}}
	m := NewMatcher(embedder, searcher, pageimage.NewResolver(base), filepath.Join(base, "images"), 0)

	got, err := m.MatchImages(context.Background(), "test", 3)
	assert.ErrorIs(t, err, vectorindex.ErrLoad)
	assert.Empty(t, got)

	searcher.Space.Provider, searcher.Space.Model = "cohere", "embed-v4.0"
	_, err = m.MatchImages(context.Background(), "test", 3)
	assert.ErrorIs(t, err, vectorindex.ErrLoad)
	assert.ErrorContains(t, err, "query has 2")
}
