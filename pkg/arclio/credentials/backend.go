package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

const (
	StorageFile     = "file"
	StorageKeychain = "keychain"

	keyringService = "arclio"
	keyringUser    = "credentials"
)

// ErrNotFound is returned by a Backend when nothing has been stored yet.
var ErrNotFound = errors.New("credentials not found")

// Backend stores the raw serialized credentials record.
type Backend interface {
	Read() ([]byte, error)
	Write(data []byte) error
	// Remove deletes the record; removing a missing record is not an error.
	Remove() error
	Location() string
}

// NewBackend returns the backend for the given storage mode. An empty mode selects the file backend.
func NewBackend(mode, path string) (Backend, error) {
	switch mode {
	case "", StorageFile:
		return &FileBackend{Path: path}, nil
	case StorageKeychain:
		return &KeyringBackend{Service: keyringService, User: keyringUser}, nil
	default:
		return nil, fmt.Errorf("unsupported token storage: %s", mode)
	}
}

// FileBackend keeps the record in a single file readable only by its owner.
type FileBackend struct {
	Path string
}

func (b *FileBackend) Read() ([]byte, error) {
	content, err := os.ReadFile(b.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return content, nil
}

func (b *FileBackend) Write(data []byte) error {
	dir := filepath.Dir(b.Path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create credentials dir: %w", err)
		}
		// MkdirAll is subject to the umask.
		if err := os.Chmod(dir, 0o700); err != nil {
			return fmt.Errorf("failed to restrict credentials dir: %w", err)
		}
	}
	if err := os.WriteFile(b.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(b.Path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict credentials file: %w", err)
	}
	return nil
}

func (b *FileBackend) Remove() error {
	if err := os.Remove(b.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

func (b *FileBackend) Location() string {
	return b.Path
}

// KeyringBackend keeps the record in the OS keychain (macOS Keychain, Secret Service, Windows Credential Manager).
type KeyringBackend struct {
	Service string
	User    string
}

func (b *KeyringBackend) Read() ([]byte, error) {
	secret, err := keyring.Get(b.Service, b.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read keychain: %w", err)
	}
	return []byte(secret), nil
}

func (b *KeyringBackend) Write(data []byte) error {
	if err := keyring.Set(b.Service, b.User, string(data)); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func (b *KeyringBackend) Remove() error {
	if err := keyring.Delete(b.Service, b.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to remove keychain entry: %w", err)
	}
	return nil
}

func (b *KeyringBackend) Location() string {
	return "keychain:" + b.Service + "/" + b.User
}
