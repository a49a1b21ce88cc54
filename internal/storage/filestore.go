package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/intake-service/internal/config"
)

// FileStore uploads applicant documents to an S3-compatible object store and
// hands back a durable public URL. Uploads are not transactional with the
// database write that follows.
type FileStore struct {
	client   *minio.Client
	endpoint string
	secure   bool
	bucket   string
	folder   string
	allowed  map[string]struct{}
	maxBytes int64
}

// NewFileStore connects to the object store and verifies the bucket exists.
func NewFileStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*FileStore, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("object store credentials incomplete")
	}

	endpoint, secure, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket does not exist: %s", cfg.Bucket)
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	logger.Info("connected to object store",
		zap.String("endpoint", endpoint),
		zap.String("bucket", cfg.Bucket))

	return &FileStore{
		client:   client,
		endpoint: endpoint,
		secure:   secure,
		bucket:   cfg.Bucket,
		folder:   strings.Trim(cfg.Folder, "/"),
		allowed:  allowed,
		maxBytes: cfg.MaxUploadBytes,
	}, nil
}

// AllowedExtension reports whether the filename carries a permitted extension.
func (s *FileStore) AllowedExtension(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return false
	}
	_, ok := s.allowed[ext]
	return ok
}

// MaxBytes is the configured per-file upload ceiling.
func (s *FileStore) MaxBytes() int64 {
	return s.maxBytes
}

// Upload streams one file into the configured folder and returns its public
// URL. The object name is randomized; the original extension is preserved.
func (s *FileStore) Upload(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	objectKey := s.folder + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, opts); err != nil {
		return "", err
	}

	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, objectKey), nil
}

// normalizeEndpoint accepts either "minio:9000" or a full http(s) URL.
func normalizeEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme provided, treat as host:port (insecure by default for local stores).
	return raw, false, nil
}
