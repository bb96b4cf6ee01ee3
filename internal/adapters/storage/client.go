package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOService implements BlobStore using MinIO or any S3-compatible endpoint.
type MinIOService struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
	maxFileSize   int64
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:        client,
		bucket:        cfg.GetMinioBucketMedia(),
		publicBaseURL: strings.TrimRight(cfg.GetMinIOPublicBaseURL(), "/"),
		maxFileSize:   cfg.GetMinIOMaxFileSize(),
	}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}

	return nil
}

// Put uploads reader under folder with a collision-free name.
func (s *MinIOService) Put(ctx context.Context, folder, fileName, contentType string, reader io.Reader, size int64) (StoredObject, error) {
	if err := s.ValidateContentType(contentType); err != nil {
		return StoredObject{}, err
	}
	if size >= 0 {
		if err := s.ValidateFileSize(size); err != nil {
			return StoredObject{}, err
		}
	}

	fileKey := objectKey(folder, fileName)
	_, err := s.client.PutObject(ctx, s.bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return StoredObject{}, fmt.Errorf("failed to upload file %s: %w", fileKey, err)
	}

	objectURL, err := s.URL(ctx, fileKey)
	if err != nil {
		return StoredObject{}, err
	}
	return StoredObject{Key: fileKey, URL: objectURL}, nil
}

// PutFile uploads a local file.
func (s *MinIOService) PutFile(ctx context.Context, folder, filePath, contentType string) (StoredObject, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return StoredObject{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return StoredObject{}, fmt.Errorf("stat %s: %w", filePath, err)
	}
	return s.Put(ctx, folder, filepath.Base(filePath), contentType, f, info.Size())
}

// URL returns the public URL when a public base is configured, otherwise a
// presigned GET valid for SignedURLTTL.
func (s *MinIOService) URL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return publicURL(s.publicBaseURL, s.bucket, key), nil
	}
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, SignedURLTTL, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return presigned.String(), nil
}

// Open streams an object from storage.
func (s *MinIOService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	return obj, nil
}

// GetMaxFileSize returns the configured maximum file size in bytes.
func (s *MinIOService) GetMaxFileSize() int64 {
	return s.maxFileSize
}

func objectKey(folder, fileName string) string {
	ext := path.Ext(fileName)
	baseName := strings.TrimSuffix(path.Base(filepath.ToSlash(fileName)), ext)
	if baseName == "" || baseName == "." || baseName == "/" {
		baseName = "file"
	}
	uniqueFileName := fmt.Sprintf("%s_%s%s", baseName, uuid.New().String()[:8], ext)
	return path.Join(folder, uniqueFileName)
}

func publicURL(base, bucket, key string) string {
	escaped := make([]string, 0)
	for _, segment := range strings.Split(key, "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return base + "/" + bucket + "/" + strings.Join(escaped, "/")
}
