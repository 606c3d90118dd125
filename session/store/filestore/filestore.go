package filestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	apperrors "github.com/jrsteele09/narrate-web/internal/errors"
	"github.com/jrsteele09/narrate-web/session/store"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	filePerm = 0o600
	dirPerm  = 0o700
	keyInfo  = "narrate session file v1"

	lockRetry = 25 * time.Millisecond
)

var _ store.Store = (*Store)(nil)

// Store persists the session entries as a single JSON document. Writes go to
// a temp file that is renamed over the target, under an advisory file lock,
// so a CLI and a server sharing the file never see a half-written group.
//
// With a passphrase the document is sealed with XChaCha20-Poly1305.
type Store struct {
	mu   sync.Mutex // flock state is per file handle, so serialise in-process callers
	path string
	lock *flock.Flock
	aead cipher.AEAD
}

type Option func(*Store) error

// WithPassphrase enables sealing. The key is derived from the passphrase with HKDF-SHA256.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) error {
		if passphrase == "" {
			return nil
		}
		key := make([]byte, chacha20poly1305.KeySize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, []byte(keyInfo)), key); err != nil {
			return fmt.Errorf("derive key: %w", err)
		}
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return fmt.Errorf("init cipher: %w", err)
		}
		s.aead = aead
		return nil
	}
}

// New returns a store for the file at path, creating its directory.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("[filestore New] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("[filestore New] create directory: %w", err)
	}
	s := &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("[filestore New] %w", err)
		}
	}
	return s, nil
}

func (s *Store) Load(ctx context.Context) (store.Entries, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryRLockContext(ctx, lockRetry); err != nil {
		return nil, fmt.Errorf("[filestore Load] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer s.lock.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return store.Entries{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore Load] read: %w", err)
	}
	if len(data) == 0 {
		return store.Entries{}, nil
	}

	if s.aead != nil {
		if data, err = s.open(data); err != nil {
			return nil, fmt.Errorf("[filestore Load] %w: %v", apperrors.ErrCorruptSession, err)
		}
	}

	entries := store.Entries{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("[filestore Load] %w: %v", apperrors.ErrCorruptSession, err)
	}
	return entries, nil
}

func (s *Store) Save(ctx context.Context, entries store.Entries) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("[filestore Save] encode: %w", err)
	}
	if s.aead != nil {
		if data, err = s.seal(data); err != nil {
			return fmt.Errorf("[filestore Save] seal: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("[filestore Save] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer s.lock.Unlock()

	return writeAtomic(s.path, data)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("[filestore Clear] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	defer s.lock.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("[filestore Clear] remove: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.lock.Close()
}

func (s *Store) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+chacha20poly1305.Overhead)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *Store) open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n {
		return nil, errors.New("sealed file too short")
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], nil)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
