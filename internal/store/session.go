package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// PendingAuth is the single in-flight OAuth transaction. At most one
// exists at a time; starting a new authorization overwrites it.
type PendingAuth struct {
	// State is the CSRF token sent to the authorization endpoint
	State string `json:"state"`

	// CodeVerifier is the PKCE secret bound to this transaction
	CodeVerifier string `json:"codeVerifier"`

	// RedirectURL is the redirect URI the transaction was started with
	RedirectURL string `json:"redirectUrl"`

	// CreatedAt is when the transaction started, epoch milliseconds
	CreatedAt int64 `json:"createdAt"`
}

// SessionStore holds the single pending OAuth transaction slot.
type SessionStore interface {
	// Get returns the pending transaction, or nil when none exists.
	Get() (*PendingAuth, error)

	// Put stores a transaction, overwriting any previous one.
	Put(*PendingAuth) error

	// Clear removes the pending transaction. Clearing an empty slot is
	// not an error.
	Clear() error
}

// FileSessionStore persists the pending transaction as a JSON file under
// the user cache dir, surviving across CLI invocations the way the
// extension's session storage survives across extension pages.
type FileSessionStore struct {
	path string
}

// NewFileSessionStore creates a session store rooted at the user cache dir.
func NewFileSessionStore() (*FileSessionStore, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate cache directory: %w", err)
	}

	dir = filepath.Join(dir, "notis")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileSessionStore{path: filepath.Join(dir, "oauth-pending.json")}, nil
}

// Get implements SessionStore.
func (s *FileSessionStore) Get() (*PendingAuth, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending oauth state: %w", err)
	}

	var pending PendingAuth
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("failed to parse pending oauth state: %w", err)
	}
	return &pending, nil
}

// Put implements SessionStore.
func (s *FileSessionStore) Put(pending *PendingAuth) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to encode pending oauth state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write pending oauth state: %w", err)
	}
	return nil
}

// Clear implements SessionStore.
func (s *FileSessionStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove pending oauth state: %w", err)
	}
	return nil
}

// MemorySessionStore is an in-memory SessionStore used in tests.
type MemorySessionStore struct {
	Pending *PendingAuth
}

// Get implements SessionStore.
func (m *MemorySessionStore) Get() (*PendingAuth, error) {
	if m.Pending == nil {
		return nil, nil
	}
	copy := *m.Pending
	return &copy, nil
}

// Put implements SessionStore.
func (m *MemorySessionStore) Put(pending *PendingAuth) error {
	copy := *pending
	m.Pending = &copy
	return nil
}

// Clear implements SessionStore.
func (m *MemorySessionStore) Clear() error {
	m.Pending = nil
	return nil
}
