// Package chathistory persists chat transcripts as one JSON file per session.
// Files are overwritten wholesale on save; a session is assumed to have a
// single writer, so concurrent saves to the same file leave the last one.
package chathistory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	sessionIDLayout = "20060102_150405"
	fileExt         = ".json"
)

// Message is one transcript entry.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Images  []string  `json:"images,omitempty"`
	Time    time.Time `json:"time,omitzero"`
}

// Save writes history to path as indented JSON, creating parent directories.
func Save(history []Message, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	if history == nil {
		history = []Message{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(history); err != nil {
		return fmt.Errorf("failed to encode chat history: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads a transcript. A missing file is an empty history.
func Load(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Message{}, nil
		}
		return nil, err
	}
	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to decode chat history %s: %w", path, err)
	}
	if history == nil {
		history = []Message{}
	}
	return history, nil
}

// GenerateSessionID returns `YYYYMMDD_HHMMSS_<8 hex chars>` for now.
func GenerateSessionID(now time.Time) string {
	return now.Format(sessionIDLayout) + "_" + uuid.NewString()[:8]
}

// Store resolves session IDs to files under Dir.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) PathFor(id string) string {
	return filepath.Join(s.Dir, id+fileExt)
}

func (s *Store) Load(id string) ([]Message, error) {
	return Load(s.PathFor(id))
}

func (s *Store) Save(id string, history []Message) error {
	return Save(history, s.PathFor(id))
}

// Append loads the session, adds msgs and saves it back.
func (s *Store) Append(id string, msgs ...Message) ([]Message, error) {
	history, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	history = append(history, msgs...)
	if err := s.Save(id, history); err != nil {
		return nil, err
	}
	return history, nil
}

// List returns the stored session IDs, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileExt))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}
