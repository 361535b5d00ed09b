package vectorindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadFilenames reads the ordered filename sequence stored next to the index.
func LoadFilenames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("%w: corrupt filename map %s: %v", ErrLoad, path, err)
	}
	return names, nil
}

// SaveFilenames writes the filename sequence, replacing any previous file.
func SaveFilenames(path string, names []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if names == nil {
		names = []string{}
	}
	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
