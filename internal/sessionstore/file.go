package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LeadsPlus/rets/internal/constants"
	"github.com/LeadsPlus/rets/pkg/rets"
	"gopkg.in/yaml.v3"
)

// FileStore keeps every session in one YAML document keyed by login URL.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// fileDocument is the on-disk layout.
type fileDocument struct {
	Sessions map[string]rets.Session `yaml:"sessions"`
}

// NewFileStore creates a store backed by path. The file is created on the
// first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the session stored under key.
func (s *FileStore) Load(ctx context.Context, key string) (*rets.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	session, ok := doc.Sessions[key]
	if !ok {
		return nil, rets.ErrSessionNotFound
	}

	return &session, nil
}

// Save writes session under key, keeping other entries.
func (s *FileStore) Save(ctx context.Context, key string, session rets.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	doc.Sessions[key] = session.Clone()

	return s.write(doc)
}

// Delete removes the session stored under key.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}

	if _, ok := doc.Sessions[key]; !ok {
		return nil
	}

	delete(doc.Sessions, key)

	return s.write(doc)
}

// Close does nothing; every operation reads and writes the file directly.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (*fileDocument, error) {
	doc := &fileDocument{Sessions: make(map[string]rets.Session)}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	err = yaml.Unmarshal(data, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	if doc.Sessions == nil {
		doc.Sessions = make(map[string]rets.Session)
	}

	return doc, nil
}

func (s *FileStore) write(doc *fileDocument) error {
	err := os.MkdirAll(filepath.Dir(s.path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"

	err = os.WriteFile(tmp, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	err = os.Rename(tmp, s.path)
	if err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}
