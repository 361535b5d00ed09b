package vectorindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	ModalityImage = "image"
	ModalityText  = "text"
)

// Manifest records the embedding space an index was built in.
type Manifest struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Modality  string `json:"modality"`
	Dimension int    `json:"dimension"`
}

// LoadManifest reads the manifest at path. A missing file yields nil.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: corrupt manifest %s: %v", ErrLoad, path, err)
	}
	return &m, nil
}

func SaveManifest(path string, m Manifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SpaceCheck rejects queries embedded by a different provider, model or
// dimension than the index. A nil check, or a missing manifest, accepts all.
type SpaceCheck struct {
	ManifestPath string
	Provider     string
	Model        string
}

func (c *SpaceCheck) Verify(dim int) error {
	if c == nil || c.ManifestPath == "" {
		return nil
	}
	m, err := LoadManifest(c.ManifestPath)
	if err != nil {
		return err
	}
	if m == nil {
		log.Debug().Str("manifest", c.ManifestPath).Msg("No index manifest, skipping embedding space check")
		return nil
	}
	if c.Provider != "" && (m.Provider != c.Provider || m.Model != c.Model) {
		return fmt.Errorf("%w: index built with %s/%s, queries use %s/%s; rebuild the index",
			ErrLoad, m.Provider, m.Model, c.Provider, c.Model)
	}
	if m.Dimension > 0 && m.Dimension != dim {
		return fmt.Errorf("%w: index vectors have %d dimensions, query has %d", ErrLoad, m.Dimension, dim)
	}
	return nil
}
