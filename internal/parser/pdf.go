package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// PDFPages extracts the plain text of every page of a PDF, 1-based.
func PDFPages(filePath string) (map[int]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf %s: %w", filePath, err)
	}

	pages := make(map[int]string, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d of %s: %w", i, filePath, err)
		}
		pages[i] = strings.TrimSpace(text)
	}
	return pages, nil
}

// PageTexts caches extracted source PDFs by document slug.
type PageTexts struct {
	dir  string
	docs map[string]map[int]string
}

func NewPageTexts(pdfDir string) *PageTexts {
	return &PageTexts{dir: pdfDir, docs: map[string]map[int]string{}}
}

// Lookup returns the text of page label of <slug>.pdf. It returns "" when the
// label is not numeric or the source PDF is absent or unreadable.
func (p *PageTexts) Lookup(slug, label string) string {
	n, err := strconv.Atoi(label)
	if err != nil || n < 1 {
		return ""
	}
	pages, ok := p.docs[slug]
	if !ok {
		path := filepath.Join(p.dir, slug+".pdf")
		pages, err = PDFPages(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("pdf", path).Msg("Skipping unreadable source pdf")
			}
			pages = nil
		}
		p.docs[slug] = pages
	}
	return pages[n]
}
