package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader stores objects in a Google Cloud Storage bucket.
type GCSUploader struct {
	client *gcs.Client
	bucket string
}

// NewGCSUploader builds a client from the service-account file at
// credentialsPath (relative to the working directory), or from application
// default credentials when the path is empty.
func NewGCSUploader(ctx context.Context, bucket, credentialsPath string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		if !filepath.IsAbs(credentialsPath) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			credentialsPath = filepath.Join(wd, credentialsPath)
		}
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsPath))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

func (u *GCSUploader) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	name := objectName(folder, fh.Filename)
	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType(fh)
	w.CacheControl = "no-cache"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload close: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, name), nil
}

func (u *GCSUploader) Close() error {
	return u.client.Close()
}
