package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioDownloader resolves minio://bucket/object URLs against object
// storage and delegates everything else to a fallback downloader
type MinioDownloader struct {
	client   *minio.Client
	maxBytes int64
	fallback Downloader
}

// NewMinioDownloader connects to the object storage endpoint
func NewMinioDownloader(endpoint, accessKey, secretKey string, useSSL bool, maxBytes int64, fallback Downloader) (*MinioDownloader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client for %s: %w", endpoint, err)
	}

	return &MinioDownloader{
		client:   client,
		maxBytes: maxBytes,
		fallback: fallback,
	}, nil
}

func (d *MinioDownloader) Fetch(ctx context.Context, mediaURL, dest string) (int64, error) {
	if schemeOf(mediaURL) != "minio" {
		return d.fallback.Fetch(ctx, mediaURL, dest)
	}

	bucket, object, err := splitObjectURL(mediaURL)
	if err != nil {
		return 0, err
	}

	// Stat first so an oversized object is rejected without transfer
	info, err := d.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to stat object %s/%s: %w", bucket, object, err)
	}
	if info.Size > d.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, info.Size, d.maxBytes)
	}

	if err := d.client.FGetObject(ctx, bucket, object, dest, minio.GetObjectOptions{}); err != nil {
		return 0, fmt.Errorf("failed to download object %s/%s: %w", bucket, object, err)
	}
	return info.Size, nil
}

// splitObjectURL parses minio://bucket/path/to/object
func splitObjectURL(mediaURL string) (bucket, object string, err error) {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid object url %q: %w", mediaURL, err)
	}

	bucket = u.Host
	object = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid object url %q: want minio://bucket/object", mediaURL)
	}
	return bucket, object, nil
}
