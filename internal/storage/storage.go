// Package storage persists the account store to a single file, encrypting
// it at rest when the platform cipher is available.
//
// Saves are atomic with respect to file content: the payload is written to
// a uniquely-named temp file in the same directory and renamed over the
// target, so a reader never observes a partial write and a crash mid-save
// leaves the previous good state intact. Saves are not serialized across
// concurrent callers; the last writer wins.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lanterne-launcher/lanterne/internal/account"
	"github.com/lanterne-launcher/lanterne/internal/crypt"
)

var (
	// ErrReadFailed is returned when the store file exists but cannot be
	// read.
	ErrReadFailed = errors.New("reading account store failed")

	// ErrDeleteFailed is returned when removing the store file fails for a
	// reason other than the file being absent.
	ErrDeleteFailed = errors.New("deleting account store failed")
)

// File is the on-disk account store.
type File struct {
	path   string
	cipher crypt.Cipher
	logger *slog.Logger
}

// Option configures a File.
type Option func(*File)

// WithLogger overrides the default component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) { f.logger = logger }
}

// NewFile creates a store backed by the given path. The cipher may be nil
// or unavailable, in which case the store is persisted in plaintext.
func NewFile(path string, cipher crypt.Cipher, opts ...Option) *File {
	f := &File{
		path:   path,
		cipher: cipher,
		logger: slog.With("component", "storage"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// Load reads and normalizes the store. An absent file is an empty store.
// Corrupt content (unparseable bytes, a bad encryption state) is
// irrecoverable: the file is deleted and an empty store returned, so a
// broken cache can never block the next login.
func (f *File) Load() (*account.Store, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return account.NewStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailed, err)
	}

	store, err := f.decode(data)
	if err != nil {
		f.logger.Warn("corrupt account store, starting fresh", "path", f.path, "error", err)
		if err := f.Clear(); err != nil {
			return nil, err
		}
		return account.NewStore(), nil
	}
	return store, nil
}

// decode unwraps the envelope and normalizes the store. An error at either
// stage means the file as a whole is corrupt.
func (f *File) decode(data []byte) (*account.Store, error) {
	inner, err := Unwrap(data, f.cipher)
	if err != nil {
		return nil, err
	}
	return account.NormalizeStore(inner)
}

// Save normalizes the store, stamps updated_at, and atomically replaces
// the backing file. The normalized, saved form is returned.
func (f *File) Save(store *account.Store) (*account.Store, error) {
	raw, err := json.Marshal(store)
	if err != nil {
		return nil, fmt.Errorf("encoding account store: %w", err)
	}
	// A marshaled v2 store has no legacy branch, so this cannot fail.
	normalized, err := account.NormalizeStore(raw)
	if err != nil {
		return nil, err
	}
	normalized.UpdatedAt = time.Now().UnixMilli()

	payload, err := Wrap(normalized, f.cipher)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%s.tmp", f.path, uuid.NewString())
	if err := os.WriteFile(tmpPath, payload, 0600); err != nil {
		return nil, fmt.Errorf("writing account store: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return nil, fmt.Errorf("replacing account store: %w", err)
	}
	return normalized, nil
}

// Clear deletes the backing file. An already-absent file is success.
func (f *File) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	return nil
}
