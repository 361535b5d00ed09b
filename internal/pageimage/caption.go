package pageimage

import (
	"fmt"
	"path/filepath"
	"strings"

	"vision-rag/internal/models"
)

// Caption describes a page image by the `<doc>_page<label>` filename convention.
type Caption struct {
	Filename  string
	DocSlug   string
	PageLabel string
}

// ParseCaption derives the document slug and page label from a file path.
func ParseCaption(path string) Caption {
	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	slug, label, found := strings.Cut(stem, models.PageMarker)
	if !found {
		slug, label = stem, ""
	}
	if label == "" {
		label = models.UnknownPageLabel
	}
	return Caption{Filename: name, DocSlug: slug, PageLabel: label}
}

// Reference renders the caption as a prompt reference line.
func (c Caption) Reference() string {
	return fmt.Sprintf("- %s (Document: %s, page: %s)", c.Filename, c.DocSlug, c.PageLabel)
}
