package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/oauth2"

	"github.com/teemow/tickmcp/internal/ticktick"
)

// ErrReadOnly is returned when saving to a provider that cannot persist tokens.
var ErrReadOnly = errors.New("token provider is read-only")

// TokenProvider loads and persists the TickTick access token.
type TokenProvider interface {
	ticktick.TokenLoader

	// SaveToken persists a token obtained by the OAuth flow.
	SaveToken(token *oauth2.Token) error
}

// FileTokenStore keeps the token as JSON in a single file.
type FileTokenStore struct {
	path string
	now  func() time.Time
}

// NewFileTokenStore creates a store at path. An empty path selects
// DefaultTokenPath; "~" is expanded.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		path = DefaultTokenPath()
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand token path %q: %w", path, err)
	}
	return &FileTokenStore{path: expanded, now: time.Now}, nil
}

// Path returns the file the token is stored in.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Token returns the stored token, or nil when no token file exists.
func (s *FileTokenStore) Token() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file %q: %w", s.path, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("invalid token file %q: %w", s.path, err)
	}
	return &token, nil
}

// LoadToken returns the stored access token. A missing or expired token
// yields an empty string and no error.
func (s *FileTokenStore) LoadToken() (string, error) {
	token, err := s.Token()
	if err != nil || token == nil {
		return "", err
	}
	if !token.Expiry.IsZero() && !s.now().Before(token.Expiry) {
		return "", nil
	}
	return token.AccessToken, nil
}

// HasToken reports whether a usable token is stored.
func (s *FileTokenStore) HasToken() bool {
	token, err := s.LoadToken()
	return err == nil && token != ""
}

// SaveToken writes the token with owner-only permissions. The file is
// replaced atomically so a concurrent reader never sees a partial write.
func (s *FileTokenStore) SaveToken(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("refusing to save an empty token")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+tokenFileName+"-*")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to store token file: %w", err)
	}
	return nil
}

// StaticToken is a fixed token, typically from the command line or the
// environment.
type StaticToken string

// LoadToken returns the token itself.
func (t StaticToken) LoadToken() (string, error) {
	return string(t), nil
}

// SaveToken always fails with ErrReadOnly.
func (t StaticToken) SaveToken(*oauth2.Token) error {
	return ErrReadOnly
}

// Chain consults its loaders in order and returns the first non-empty token.
type Chain []ticktick.TokenLoader

// LoadToken implements ticktick.TokenLoader.
func (c Chain) LoadToken() (string, error) {
	for _, loader := range c {
		if loader == nil {
			continue
		}
		token, err := loader.LoadToken()
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
	}
	return "", nil
}
