package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/oauth2"
)

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// validateAccountName ensures the account name is safe to use in a file name.
func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}

// DefaultTokenDir returns the directory tokens are stored in when none is
// configured.
func DefaultTokenDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gmailcli")
}

// TokenStore keeps one OAuth token per account as a JSON file.
type TokenStore struct {
	dir string
}

// NewTokenStore creates a store in dir, or in DefaultTokenDir when dir is empty.
func NewTokenStore(dir string) *TokenStore {
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return &TokenStore{dir: dir}
}

// Dir returns the directory of the store.
func (s *TokenStore) Dir() string {
	return s.dir
}

// Path returns the token file of account.
func (s *TokenStore) Path(account string) (string, error) {
	if err := validateAccountName(account); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, "google-"+account+".token"), nil
}

// Has reports whether a token is stored for account.
func (s *TokenStore) Has(account string) bool {
	path, err := s.Path(account)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the token of account. It returns ErrNoToken when there is none.
func (s *TokenStore) Load(account string) (*oauth2.Token, error) {
	path, err := s.Path(account)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for account %s, run 'gmailcli auth login --account %s'", ErrNoToken, account, account)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w for account %s: token file is empty", ErrNoToken, account)
	}
	return &tok, nil
}

// Save writes the token of account, readable by the current user only.
func (s *TokenStore) Save(account string, tok *oauth2.Token) error {
	path, err := s.Path(account)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Delete removes the token of account. Deleting a missing token is not an error.
func (s *TokenStore) Delete(account string) error {
	path, err := s.Path(account)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
