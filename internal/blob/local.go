package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
)

// localStore keeps blobs as plain files under a base directory. Used in
// development and in tests; keys map to file paths relative to the base.
type localStore struct {
	log     *logger.Logger
	baseDir string
}

func NewLocalStore(log *logger.Logger, baseDir string) (Store, error) {
	storeLog := log.With("store", "LocalStore")
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("missing local storage directory")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %q: %w", baseDir, err)
	}
	return &localStore{log: storeLog, baseDir: baseDir}, nil
}

func (s *localStore) path(key string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}

func (s *localStore) Upload(ctx context.Context, key string, r io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create blob %q: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write blob %q: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close blob %q: %w", key, err)
	}
	return nil
}

func (s *localStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open blob %q: %w", key, err)
	}
	return f, nil
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

func (s *localStore) PublicURL(key string) string {
	return key
}
