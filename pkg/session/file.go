package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore is a file-based session store.
// Sessions are stored as JSON files in a config directory; the CLI uses it to
// keep its saved credential, and single-node servers can use it to survive
// restarts without Redis.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a new file-based session store.
// If baseDir is empty, defaults to ~/.config/specsync/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "specsync", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// sessionPath maps a session ID to its file. IDs are hashed so that a token
// from a request can never name a path outside baseDir.
func (s *FileStore) sessionPath(sessionID string) string {
	sum := sha256.Sum256([]byte(sessionID))
	return filepath.Join(s.baseDir, hex.EncodeToString(sum[:16])+".json")
}

func (s *FileStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, nil
	}
	return s.read(s.sessionPath(sessionID))
}

func (s *FileStore) read(path string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	if sess.IsExpired() {
		os.Remove(path)
		return nil, nil
	}
	return &sess, nil
}

func (s *FileStore) Set(ctx context.Context, sess *Session) error {
	return s.write(s.sessionPath(sess.ID), sess)
}

func (s *FileStore) write(path string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, sessionID string) error {
	return s.remove(s.sessionPath(sessionID))
}

func (s *FileStore) remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read session dir: %w", err)
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if now.After(sess.ExpiresAt) {
			os.Remove(path)
		}
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)

// =============================================================================
// CLI convenience wrapper
// =============================================================================

const cliCredentialFile = "cli.json"

// CLIStore wraps FileStore for the CLI's saved credential: the session the
// CLI presents to a remote API, together with that API's base URL.
type CLIStore struct {
	store *FileStore
}

// NewCLIStore creates a store for CLI credential storage.
// If baseDir is empty the FileStore default directory is used.
func NewCLIStore(baseDir string) (*CLIStore, error) {
	store, err := NewFileStore(baseDir)
	if err != nil {
		return nil, err
	}
	return &CLIStore{store: store}, nil
}

// GetSession retrieves the saved credential. Returns nil, nil if none is
// saved or it has expired.
func (c *CLIStore) GetSession(ctx context.Context) (*Session, error) {
	return c.store.read(c.Path())
}

// SaveSession stores the credential, replacing any previous one.
func (c *CLIStore) SaveSession(ctx context.Context, sess *Session) error {
	return c.store.write(c.Path(), sess)
}

// DeleteSession removes the saved credential.
func (c *CLIStore) DeleteSession(ctx context.Context) error {
	return c.store.remove(c.Path())
}

// Path returns the credential file path.
func (c *CLIStore) Path() string {
	return filepath.Join(c.store.baseDir, cliCredentialFile)
}
