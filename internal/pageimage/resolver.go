package pageimage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotFound is returned when a referenced page image does not exist.
var ErrNotFound = errors.New("image not found")

const defaultMIME = "image/png"

// Resolver maps page image paths onto a fixed base directory.
type Resolver struct {
	BaseDir string
}

// NewResolver anchors the resolver at the absolute form of baseDir.
func NewResolver(baseDir string) *Resolver {
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}
	return &Resolver{BaseDir: baseDir}
}

// Resolve returns path unchanged when absolute, otherwise joined to BaseDir.
func (r *Resolver) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.BaseDir, path)
}

// Relative returns path relative to BaseDir, or the absolute path when it
// lies outside of it.
func (r *Resolver) Relative(path string) string {
	abs := r.Resolve(path)
	if cleaned, err := filepath.Abs(abs); err == nil {
		abs = cleaned
	}
	rel, err := filepath.Rel(r.BaseDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	return rel
}

// Encode reads the resolved image and returns its base64 encoding.
func (r *Resolver) Encode(path string) (string, error) {
	data, err := r.read(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DataURI returns the image as a data URI with a sniffed MIME type.
func (r *Resolver) DataURI(path string) (string, error) {
	data, err := r.read(path)
	if err != nil {
		return "", err
	}
	mime := defaultMIME
	if m := mimetype.Detect(data); strings.HasPrefix(m.String(), "image/") {
		mime = m.String()
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)), nil
}

func (r *Resolver) read(path string) ([]byte, error) {
	resolved := r.Resolve(path)
	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, resolved)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, resolved)
	}
	return os.ReadFile(resolved)
}
