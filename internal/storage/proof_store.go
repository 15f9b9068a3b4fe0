// Package storage keeps resolution proof images in an object store.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
)

// ErrNotFound is returned when a proof key does not exist.
var ErrNotFound = errors.New("proof not found")

// ErrUnsupportedType is returned for files that are not images.
var ErrUnsupportedType = errors.New("images only")

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Proof describes a stored object.
type Proof struct {
	Key         string
	ContentType string
	Size        int64
}

// ProofStore persists and serves resolution proofs.
type ProofStore interface {
	Put(ctx context.Context, uploaderID, filename string, r io.Reader, size int64) (*Proof, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *Proof, error)
}

// ObjectKey builds a collision-free key for an upload and validates its extension.
func ObjectKey(uploaderID, filename string, now time.Time) (string, string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return "", "", ErrUnsupportedType
	}
	return fmt.Sprintf("%s/%s/%s%s", now.UTC().Format("2006/01/02"), uploaderID, uuid.NewString(), ext), contentType, nil
}

// MinioProofStore stores proofs in an S3-compatible bucket.
type MinioProofStore struct {
	client *minio.Client
	bucket string
}

// NewMinioProofStore connects to the configured endpoint and makes sure the bucket exists.
func NewMinioProofStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*MinioProofStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created proof bucket", zap.String("bucket", cfg.Bucket))
	}
	return &MinioProofStore{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinioProofStore) Put(ctx context.Context, uploaderID, filename string, r io.Reader, size int64) (*Proof, error) {
	key, contentType, err := ObjectKey(uploaderID, filename, time.Now())
	if err != nil {
		return nil, err
	}
	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload proof: %w", err)
	}
	return &Proof{Key: key, ContentType: contentType, Size: info.Size}, nil
}

func (s *MinioProofStore) Open(ctx context.Context, key string) (io.ReadCloser, *Proof, error) {
	stat, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to stat proof: %w", err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get proof: %w", err)
	}
	return obj, &Proof{Key: key, ContentType: stat.ContentType, Size: stat.Size}, nil
}

// MemoryProofStore keeps proofs in process memory for development and tests.
type MemoryProofStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

// NewMemoryProofStore builds an empty store.
func NewMemoryProofStore() *MemoryProofStore {
	return &MemoryProofStore{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *MemoryProofStore) Put(_ context.Context, uploaderID, filename string, r io.Reader, _ int64) (*Proof, error) {
	key, contentType, err := ObjectKey(uploaderID, filename, time.Now())
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return &Proof{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *MemoryProofStore) Open(_ context.Context, key string) (io.ReadCloser, *Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), &Proof{Key: key, ContentType: s.types[key], Size: int64(len(data))}, nil
}
