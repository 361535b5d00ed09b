package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
)

// PageImage is one indexed page; Position mirrors the filename sequence order.
type PageImage struct {
	bun.BaseModel `bun:"table:page_images,alias:pi"`
	Position      int             `bun:"position,pk"`
	Filename      string          `bun:"filename,notnull"`
	Content       string          `bun:"content"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	Distance      float64         `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn))), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*PageImage)(nil)).IfNotExists().Exec(ctx)
	return err
}

func StorePageImages(ctx context.Context, db *bun.DB, pages []PageImage) error {
	if len(pages) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&pages).Exec(ctx)
	return err
}

// SearchPageImages returns the limit rows nearest to queryEmbedding by L2 distance.
func SearchPageImages(ctx context.Context, db *bun.DB, queryEmbedding []float32, limit int) ([]PageImage, error) {
	var pages []PageImage
	vec := pgvector.NewVector(queryEmbedding)
	err := db.NewSelect().
		Model(&pages).
		Column("position", "filename").
		ColumnExpr("embedding <-> ? AS distance", vec).
		OrderExpr("embedding <-> ?", vec).
		Limit(limit).
		Scan(ctx)
	return pages, err
}

// ListFilenames returns every filename ordered by position.
func ListFilenames(ctx context.Context, db *bun.DB) ([]string, error) {
	var names []string
	err := db.NewSelect().
		Model((*PageImage)(nil)).
		Column("filename").
		Order("position ASC").
		Scan(ctx, &names)
	return names, err
}

// drop table page_images
func DropPageImages(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*PageImage)(nil)).IfExists().Exec(ctx)
	return err
}
