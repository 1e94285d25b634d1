// Package storage writes and removes photo blobs by name.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/campusdirectory/facility-api/internal/config"
	"github.com/spf13/afero"
)

// ErrNotExist is returned by Delete when no blob has the given name
var ErrNotExist = errors.New("blob does not exist")

// BlobStore is a flat namespace of named blobs
type BlobStore interface {
	// Put stores r under name, replacing any existing blob
	Put(ctx context.Context, name string, r io.Reader, contentType string) error
	// Delete removes the named blob, returning ErrNotExist if it is missing
	Delete(ctx context.Context, name string) error
	// Name identifies the backend in logs
	Name() string
}

// New builds the blob store selected by cfg.StorageDriver
func New(ctx context.Context, cfg config.UploadConfig) (BlobStore, error) {
	switch cfg.StorageDriver {
	case "", "local":
		fs := afero.NewOsFs()
		if err := fs.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create upload directory: %w", err)
		}
		return NewLocalStore(afero.NewBasePathFs(fs, cfg.Path)), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
			Prefix:       cfg.Path,
		})
	case "cloudinary":
		return NewCloudinaryStore(cfg.CloudinaryURL, cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}
