package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/poulinpay/poulinpay/internal/models"
	"github.com/sirupsen/logrus"
)

// TokenStore holds the current token pair between runs. A missing pair
// means the session is unauthenticated; nothing here validates tokens —
// a stored pair is trusted until the server rejects it and the session
// layer clears it.
type TokenStore interface {
	Get() (models.TokenPair, bool)
	Set(pair models.TokenPair) error
	Clear() error
}

// storedCredentials is the on-disk shape: the same two fixed keys the
// web client keeps in localStorage.
type storedCredentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// FileTokenStore persists the token pair as a single 0600 JSON file in
// the user's profile directory.
type FileTokenStore struct {
	path   string
	logger *logrus.Logger
}

func NewFileTokenStore(path string, logger *logrus.Logger) *FileTokenStore {
	return &FileTokenStore{
		path:   path,
		logger: logger,
	}
}

func (s *FileTokenStore) Get() (models.TokenPair, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.WithError(err).Debug("Failed to read credentials file")
		}
		return models.TokenPair{}, false
	}

	var creds storedCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt file is indistinguishable from no session.
		s.logger.WithError(err).Warn("Ignoring malformed credentials file")
		return models.TokenPair{}, false
	}

	if creds.AccessToken == "" {
		return models.TokenPair{}, false
	}

	return models.TokenPair{Access: creds.AccessToken, Refresh: creds.RefreshToken}, true
}

func (s *FileTokenStore) Set(pair models.TokenPair) error {
	data, err := json.Marshal(storedCredentials{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.logger.WithError(err).Error("Failed to write credentials file")
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	return nil
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WithError(err).Error("Failed to remove credentials file")
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-memory TokenStore for tests and ephemeral
// sessions.
type MemoryTokenStore struct {
	mu   sync.Mutex
	pair models.TokenPair
	set  bool
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get() (models.TokenPair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, s.set
}

func (s *MemoryTokenStore) Set(pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	s.set = true
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = models.TokenPair{}
	s.set = false
	return nil
}
