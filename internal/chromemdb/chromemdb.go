package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"vision-rag/internal/helper"
)

// ErrNoCollection is returned when an imported file does not contain the collection.
var ErrNoCollection = errors.New("collection not found")

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	encryptionKey  string
}

const (
	compress = false
)

// NewVectorDBManager initializes an in-memory database that is exported to and
// imported from a single file.
func NewVectorDBManager(collectionName string, encryptionKey string) *VectorDBManager {
	return &VectorDBManager{
		db:             chromem.NewDB(),
		collectionName: collectionName,
		encryptionKey:  encryptionKey,
	}
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection() (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Count returns the number of documents in the loaded collection.
func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// QueryEmbedding returns the nResults documents most similar to embedding.
func (m *VectorDBManager) QueryEmbedding(ctx context.Context, embedding []float32, nResults int) ([]chromem.Result, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection is required")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}
	results, err := m.collection.QueryEmbedding(ctx, embedding, nResults, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// Export writes the collection to filePath.
func (m *VectorDBManager) Export(filePath string) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if filePath == "" {
		return fmt.Errorf("file path is required")
	}
	if err := helper.CreateFolder(filepath.Dir(filePath)); err != nil {
		return err
	}

	log.Debug().Str("collection", m.collectionName).Str("file", filePath).Bool("encrypted", m.encryptionKey != "").Msg("Exporting collection")
	err := m.db.ExportToFile(filePath, compress, m.encryptionKey, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads the collection from filePath.
func (m *VectorDBManager) Import(filePath string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, m.collectionName); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	c := m.db.GetCollection(m.collectionName, nil)
	if c == nil {
		return fmt.Errorf("%w: %s in %s", ErrNoCollection, m.collectionName, filePath)
	}
	m.collection = c
	return nil
}
