package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"
)

// ErrTooLarge means the media file exceeds the configured size limit.
// Permanent: resubmitting the same URL cannot succeed.
var ErrTooLarge = errors.New("media file exceeds size limit")

// Downloader fetches a media URL into a local file and returns the
// number of bytes written
type Downloader interface {
	Fetch(ctx context.Context, mediaURL, dest string) (int64, error)
}

// HTTPDownloader fetches http(s) URLs
type HTTPDownloader struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPDownloader creates a downloader with a per-request timeout and
// a hard size cap
func NewHTTPDownloader(timeout time.Duration, maxBytes int64, logger *slog.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Fetch streams the URL body into dest. The size cap is enforced both
// from the Content-Length header and while streaming, since servers may
// omit or understate the header.
func (d *HTTPDownloader) Fetch(ctx context.Context, mediaURL, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid media url %q: %w", mediaURL, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %q: %w", mediaURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("failed to download %q: unexpected status %d", mediaURL, resp.StatusCode)
	}

	if resp.ContentLength > d.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, resp.ContentLength, d.maxBytes)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", dest, err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, d.maxBytes+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return 0, fmt.Errorf("failed to save media file: %w", err)
	}
	if written > d.maxBytes {
		os.Remove(dest)
		return 0, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, d.maxBytes)
	}

	d.logger.Debug("Downloaded media file",
		slog.String("url", mediaURL),
		slog.Int64("bytes", written),
	)
	return written, nil
}

// schemeOf extracts the URL scheme, empty on parse failure
func schemeOf(mediaURL string) string {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return ""
	}
	return u.Scheme
}
