// Package evidence uploads the frame that confirmed a detection to object
// storage.
package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/soocke/weapon-watch/domain/detection"
	"github.com/soocke/weapon-watch/ui/images"
)

const jpegQuality = 90

type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts miniogo.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts miniogo.PutObjectOptions) (miniogo.UploadInfo, error)
}

type StoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Store implements detection.Archiver on a MinIO bucket.
type Store struct {
	client objectStore
	bucket string
	logger *slog.Logger
}

var _ detection.Archiver = (*Store)(nil)

func NewStore(cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, bucket: cfg.Bucket, logger: logger}, nil
}

func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, miniogo.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// ObjectKey is "<session>/<sequence>.jpg".
func ObjectKey(sessionID string, sequence uint64) string {
	return sessionID + "/" + strconv.FormatUint(sequence, 10) + ".jpg"
}

func (s *Store) Archive(ctx context.Context, sessionID string, f detection.Frame) error {
	if f.Image == nil {
		return fmt.Errorf("archive frame %d: no image", f.Sequence)
	}
	data, err := images.EncodeJPEG(f.Image, jpegQuality)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Sequence, err)
	}
	key := ObjectKey(sessionID, f.Sequence)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), miniogo.PutObjectOptions{
		ContentType: "image/jpeg",
		UserMetadata: map[string]string{
			"captured-at": f.CapturedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	})
	if err != nil {
		return fmt.Errorf("upload evidence: %w", err)
	}
	s.logger.Info("evidence archived", "bucket", s.bucket, "key", key, "size", info.Size)
	return nil
}
