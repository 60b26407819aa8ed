package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chemstatilizer/chemstat-backend/internal/config"
	"github.com/chemstatilizer/chemstat-backend/internal/logger"
)

// Store is the object store the dataset blobs live in. Delete is
// idempotent: deleting a key that is already gone is not an error.
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

const (
	ModeLocal       = "local"
	ModeGCS         = "gcs"
	ModeGCSEmulator = "gcs-emulator"
)

// NewStore selects the backing implementation from config.
func NewStore(log *logger.Logger, cfg config.StorageConfig) (Store, error) {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	log.Info("Selecting object storage provider", "mode", mode)
	switch mode {
	case ModeLocal, "":
		return NewLocalStore(log, cfg.LocalDir)
	case ModeGCS:
		return NewGCSStore(log, cfg.Bucket, "")
	case ModeGCSEmulator:
		if strings.TrimSpace(cfg.EmulatorHost) == "" {
			return nil, fmt.Errorf("storage mode %q requires an emulator host", mode)
		}
		return NewGCSStore(log, cfg.Bucket, cfg.EmulatorHost)
	default:
		return nil, fmt.Errorf("unsupported object storage mode %q", cfg.Mode)
	}
}
