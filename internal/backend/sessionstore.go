package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/doease/doease/internal/domain"
)

// SessionStore persists the session bundle between runs so a restarted
// client can resume a signed-in state without re-prompting for credentials.
type SessionStore interface {
	Load() (*domain.Session, error)
	Save(session *domain.Session) error
	Clear() error
}

// fileSessionStore keeps the session as a JSON file under the user config
// directory.
type fileSessionStore struct {
	path string
}

// NewFileSessionStore returns a store rooted at dir, or at the default user
// config location when dir is empty.
func NewFileSessionStore(dir string) (SessionStore, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "doease")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session dir: %w", err)
	}
	return &fileSessionStore{path: filepath.Join(dir, "session.json")}, nil
}

func (s *fileSessionStore) Load() (*domain.Session, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// A corrupt session file is discarded, not fatal.
		_ = os.Remove(s.path)
		return nil, nil
	}
	if session.AccessToken == "" {
		return nil, nil
	}
	return &session, nil
}

func (s *fileSessionStore) Save(session *domain.Session) error {
	if session == nil {
		return s.Clear()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *fileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// memorySessionStore is a non-persisting store for tests and ephemeral runs.
type memorySessionStore struct {
	session *domain.Session
}

// NewMemorySessionStore returns a store that keeps the session in memory only.
func NewMemorySessionStore() SessionStore {
	return &memorySessionStore{}
}

func (s *memorySessionStore) Load() (*domain.Session, error) {
	return s.session, nil
}

func (s *memorySessionStore) Save(session *domain.Session) error {
	s.session = session
	return nil
}

func (s *memorySessionStore) Clear() error {
	s.session = nil
	return nil
}
