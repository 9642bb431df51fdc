// Package notes persists notes created from recognized text.
package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTitle = "Untitled"

// Note is one stored note.
type Note struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	Images    []string `json:"images"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
	Pinned    bool     `json:"pinned"`
}

// NoteInput is the caller-supplied part of a new note.
type NoteInput struct {
	Title   string
	Content string
	Tags    []string
	Images  []string
}

// Store creates notes.
type Store interface {
	CreateNote(in NoteInput) (Note, error)
}

type fileFormat struct {
	Notes []Note `json:"notes"`
}

// FileStore keeps notes in a single JSON file, newest first.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore returns a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// CreateNote stores a new note at the front of the list.
func (s *FileStore) CreateNote(in NoteInput) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return Note{}, err
	}
	ts := s.now().UTC().Format(time.RFC3339)
	n := Note{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(in.Title),
		Content:   in.Content,
		Tags:      nonNil(in.Tags),
		Images:    nonNil(in.Images),
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if n.Title == "" {
		n.Title = DefaultTitle
	}
	data.Notes = append([]Note{n}, data.Notes...)
	if err := s.save(data); err != nil {
		return Note{}, err
	}
	return n, nil
}

// List returns all notes, newest first.
func (s *FileStore) List() ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	return data.Notes, nil
}

func (s *FileStore) load() (fileFormat, error) {
	var data fileFormat
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("failed to read notes: %w", err)
	}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to parse notes file %s: %w", s.path, err)
	}
	return data, nil
}

// save writes through a temp file so a crash never leaves a torn file.
func (s *FileStore) save(data fileFormat) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write notes: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace notes file: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// TitleFromText returns the first non-blank line of text, truncated.
func TitleFromText(text string, max int) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if max > 0 && len(r) > max {
			return string(r[:max]) + "..."
		}
		return line
	}
	return DefaultTitle
}
