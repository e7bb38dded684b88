package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
)

// Session is the single persisted credential record. If ExpiresAt is set a
// lifetime basis is always derivable: IssuedAt when recorded, otherwise an
// assumed default lifetime ending at ExpiresAt.
type Session struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt,omitempty"`
	IssuedAt     time.Time `json:"issuedAt,omitempty"`
}

const (
	StorageFile     = "file"
	StorageKeychain = "keychain"

	keyringService = "flctl"
	keyringUser    = "session"
)

// SessionStore persists one Session across CLI invocations, either in an
// owner-only file or in the OS keychain.
type SessionStore struct {
	Path    string
	Storage string
}

func (s *SessionStore) Load() (Session, bool, error) {
	if s.Storage == StorageKeychain {
		return s.loadKeychain()
	}
	content, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal(content, &sess); err != nil {
		return Session{}, false, fmt.Errorf("failed to parse session file: %w", err)
	}
	if sess.AccessToken == "" {
		return Session{}, false, nil
	}
	return sess, true, nil
}

// Save replaces the persisted session atomically so concurrent CLI
// invocations never observe a partially written record.
func (s *SessionStore) Save(sess Session) error {
	content, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if s.Storage == StorageKeychain {
		return keyring.Set(keyringService, keyringUser, string(content))
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("failed to create session temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.Path)
}

// Clear removes the persisted session. Clearing an absent session is not an
// error.
func (s *SessionStore) Clear() error {
	if s.Storage == StorageKeychain {
		if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return err
		}
		return nil
	}
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *SessionStore) loadKeychain() (Session, bool, error) {
	content, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(content), &sess); err != nil {
		return Session{}, false, fmt.Errorf("failed to parse keychain session: %w", err)
	}
	if sess.AccessToken == "" {
		return Session{}, false, nil
	}
	return sess, true, nil
}
