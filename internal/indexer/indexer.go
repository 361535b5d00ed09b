// Package indexer embeds the rendered page images and writes the similarity
// index together with its filename sequence.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"vision-rag/internal/chromemdb"
	"vision-rag/internal/config"
	"vision-rag/internal/db"
	"vision-rag/internal/embedding"
	"vision-rag/internal/models"
	"vision-rag/internal/pageimage"
	"vision-rag/internal/parser"
	"vision-rag/internal/vectorindex"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

type Builder struct {
	cfg      *config.Config
	embedder embedding.Embedder
	resolver *pageimage.Resolver
	texts    *parser.PageTexts
	pg       *bun.DB
}

// NewBuilder returns a builder that indexes pages with the same embedder that
// answers queries. Image-capable embedders index the page images; text-only
// embedders index the page text. pg is only used, and then required, for the
// pgvector backend.
func NewBuilder(cfg *config.Config, embedder embedding.Embedder, pg *bun.DB) *Builder {
	return &Builder{
		cfg:      cfg,
		embedder: embedder,
		resolver: pageimage.NewResolver(cfg.Paths.BaseDir),
		texts:    parser.NewPageTexts(cfg.Paths.PDFDir),
		pg:       pg,
	}
}

// ListImages returns the page image filenames under dir in lexical order.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Build re-creates the index from every image in the image directory and
// returns the number of indexed pages.
func (b *Builder) Build(ctx context.Context) (int, error) {
	names, err := ListImages(b.cfg.Paths.ImageDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list images: %w", err)
	}
	log.Info().Int("images", len(names)).Str("dir", b.cfg.Paths.ImageDir).Msg("Indexing page images")

	pages := make([]models.Page, len(names))
	for i, name := range names {
		c := pageimage.ParseCaption(name)
		pages[i] = models.Page{
			Filename:  name,
			DocSlug:   c.DocSlug,
			PageLabel: c.PageLabel,
			Text:      b.texts.Lookup(c.DocSlug, c.PageLabel),
		}
	}

	vectors, modality, err := b.embed(ctx, pages)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(pages) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d pages", len(vectors), len(pages))
	}
	for i := range vectors {
		vectors[i], err = vectorindex.Normalize(vectors[i])
		if err != nil {
			return 0, fmt.Errorf("page %s: %w", pages[i].Filename, err)
		}
	}

	switch b.cfg.Index.Backend {
	case config.BackendChromem:
		err = b.writeChromem(ctx, pages, vectors)
	case config.BackendPGVector:
		err = b.writePG(ctx, pages, vectors)
	default:
		err = fmt.Errorf("unknown index backend: %s", b.cfg.Index.Backend)
	}
	if err != nil {
		return 0, err
	}

	manifest := vectorindex.Manifest{
		Provider: b.cfg.EmbedLLM.Provider,
		Model:    b.cfg.EmbedLLM.Model,
		Modality: modality,
	}
	if len(vectors) > 0 {
		manifest.Dimension = len(vectors[0])
	}
	if err := vectorindex.SaveManifest(b.cfg.ManifestPath(), manifest); err != nil {
		return 0, fmt.Errorf("failed to write index manifest: %w", err)
	}
	log.Info().Int("pages", len(pages)).Str("backend", b.cfg.Index.Backend).Str("modality", modality).Msg("Index written")
	return len(pages), nil
}

// embed vectorizes pages in the embedder's query space.
func (b *Builder) embed(ctx context.Context, pages []models.Page) ([][]float32, string, error) {
	switch e := b.embedder.(type) {
	case embedding.ImageEmbedder:
		if len(pages) == 0 {
			return nil, vectorindex.ModalityImage, nil
		}
		uris := make([]string, len(pages))
		for i, p := range pages {
			uri, err := b.resolver.DataURI(filepath.Join(b.cfg.Paths.ImageDir, p.Filename))
			if err != nil {
				return nil, "", err
			}
			uris[i] = uri
		}
		vectors, err := e.EmbedImages(ctx, uris)
		if err != nil {
			return nil, "", fmt.Errorf("failed to embed images: %w", err)
		}
		return vectors, vectorindex.ModalityImage, nil
	case embedding.DocumentEmbedder:
		if len(pages) == 0 {
			return nil, vectorindex.ModalityText, nil
		}
		texts := make([]string, len(pages))
		for i, p := range pages {
			texts[i] = documentContent(p)
		}
		vectors, err := e.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, "", fmt.Errorf("failed to embed page text: %w", err)
		}
		return vectors, vectorindex.ModalityText, nil
	default:
		return nil, "", fmt.Errorf("embedder %T can embed neither page images nor page text", b.embedder)
	}
}

func (b *Builder) writeChromem(ctx context.Context, pages []models.Page, vectors [][]float32) error {
	m := chromemdb.NewVectorDBManager(b.cfg.Index.Collection, b.cfg.Index.EncryptionKey)
	if _, err := m.GetOrCreateCollection(); err != nil {
		return err
	}
	docs := make([]chromem.Document, len(pages))
	for i, p := range pages {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   documentContent(p),
			Metadata:  map[string]string{"filename": p.Filename, "doc": p.DocSlug, "page": p.PageLabel},
			Embedding: vectors[i],
		}
	}
	if len(docs) > 0 {
		if err := m.CreateDocs(ctx, docs); err != nil {
			return err
		}
	}
	if err := m.Export(b.cfg.IndexPath()); err != nil {
		return err
	}
	return vectorindex.SaveFilenames(b.cfg.FilenamesPath(), filenames(pages))
}

func (b *Builder) writePG(ctx context.Context, pages []models.Page, vectors [][]float32) error {
	if b.pg == nil {
		return fmt.Errorf("pgvector backend requires a database connection")
	}
	if err := db.DropPageImages(ctx, b.pg); err != nil {
		return fmt.Errorf("failed to drop page_images: %w", err)
	}
	if err := db.InitDB(ctx, b.pg); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	rows := make([]db.PageImage, len(pages))
	for i, p := range pages {
		rows[i] = db.PageImage{
			Position:  i,
			Filename:  p.Filename,
			Content:   documentContent(p),
			Embedding: pgvector.NewVector(vectors[i]),
		}
	}
	return db.StorePageImages(ctx, b.pg, rows)
}

func documentContent(p models.Page) string {
	if p.Text != "" {
		return p.Text
	}
	return pageimage.ParseCaption(p.Filename).Reference()
}

func filenames(pages []models.Page) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = p.Filename
	}
	return out
}
