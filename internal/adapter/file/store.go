// Package file implements the snapshot store as a single JSON document on local disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/user/follower-tracker/internal/entity"
	"github.com/user/follower-tracker/internal/repository"
)

// document is the persisted layout: two named bounded sequences.
type document struct {
	History []entity.Snapshot `json:"history"`
	Events  []entity.Event    `json:"events"`
}

// Store persists history and events to one JSON file. The file is read on every call so
// that several processes sharing the path observe each other's writes; concurrent writers
// from different processes may still lose an update.
type Store struct {
	path      string
	retention repository.Retention
	mu        sync.Mutex
}

// NewStore returns a store backed by path. The file is created lazily on the first append.
func NewStore(path string, retention repository.Retention) *Store {
	return &Store{path: path, retention: retention}
}

func (s *Store) Latest(ctx context.Context) (*entity.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(doc.History) == 0 {
		return nil, nil
	}
	last := doc.History[len(doc.History)-1]
	return &last, nil
}

func (s *Store) Append(ctx context.Context, snapshot entity.Snapshot, events []entity.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if n := len(doc.History); n > 0 && snapshot.Timestamp.Before(doc.History[n-1].Timestamp) {
		return repository.ErrOutOfOrder
	}
	doc.History = repository.Bound(append(doc.History, snapshot), s.retention.History)
	doc.Events = repository.Bound(append(doc.Events, events...), s.retention.Events)
	return s.save(doc)
}

func (s *Store) ListHistory(ctx context.Context, limit int, order repository.Order) ([]entity.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return repository.Window(doc.History, limit, order), nil
}

func (s *Store) ListEvents(ctx context.Context, limit int, order repository.Order) ([]entity.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return repository.Window(doc.Events, limit, order), nil
}

// Ping checks that the document, if present, is readable and well formed.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.load()
	return err
}

// load reads the document. A missing file is an empty document.
func (s *Store) load() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{History: []entity.Snapshot{}, Events: []entity.Event{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return &doc, nil
}

// save writes the document through a temp file and rename so readers never see a partial write.
func (s *Store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
