// Package storage uploads user media to object storage and returns the
// public URL of the stored object.
package storage

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/princinho/sahoauth/config"
)

const (
	FolderAvatars = "avatars"
	FolderCovers  = "covers"
)

// Uploader stores a file under folder and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error)
}

// New returns the uploader selected by cfg.StorageDriver.
func New(ctx context.Context, cfg config.Config) (Uploader, error) {
	switch cfg.StorageDriver {
	case config.StorageR2:
		return NewR2Uploader(ctx, R2Config{
			Bucket:          cfg.R2Bucket,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
			PublicDomain:    cfg.R2PublicDomain,
		})
	case config.StorageGCS:
		return NewGCSUploader(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// objectName builds a unique key like "avatars/1700000000-<uuid>.png".
func objectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%d-%s%s", folder, time.Now().UTC().Unix(), uuid.New().String(), ext)
}

func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename)))
	}
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
