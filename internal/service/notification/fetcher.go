package notification

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oshokin/alarmee/internal/version"
)

const (
	// DefaultFetchTimeout bounds a single image download.
	DefaultFetchTimeout = 5 * time.Second
	// DefaultMaxImageBytes caps the size of a downloaded image.
	DefaultMaxImageBytes = 2 << 20
)

var (
	// ErrImageTooLarge is returned when the body exceeds the configured cap.
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrNotAnImage is returned when the server answers with a non-image content type.
	ErrNotAnImage = errors.New("response is not an image")
)

// HTTPFetcher downloads images over HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher with the given timeout and size cap.
// Non-positive values select the defaults.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	return &HTTPFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// Fetch downloads url. Only 2xx responses with an image/* content type are accepted.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("download image: unexpected status %s", resp.Status)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotAnImage, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	if int64(len(data)) > f.maxBytes {
		return nil, ErrImageTooLarge
	}

	return data, nil
}
