package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/chemstatilizer/chemstat-backend/internal/logger"
)

const gcsOpTimeout = 2 * time.Minute

type gcsStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

// NewGCSStore connects to Google Cloud Storage, or to a fake-gcs-server
// style emulator when emulatorHost is set.
func NewGCSStore(log *logger.Logger, bucket, emulatorHost string) (Store, error) {
	storeLog := log.With("store", "GCSStore")
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("missing dataset bucket name")
	}

	var opts []option.ClientOption
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	if emulatorHost != "" {
		opts = append(opts,
			option.WithEndpoint("http://"+emulatorHost+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	}

	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	storeLog.Info("Connected to GCS", "bucket", bucket, "emulator", emulatorHost != "")
	return &gcsStore{log: storeLog, client: client, bucket: bucket}, nil
}

func (s *gcsStore) Upload(ctx context.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, gcsOpTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "text/csv"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %q: %w", key, err)
	}
	return nil
}

func (s *gcsStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	// No deadline wrapper here: the caller reads from the returned
	// stream after we return, and cancelling would sever it.
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return r, nil
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, gcsOpTimeout)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (s *gcsStore) PublicURL(key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}
