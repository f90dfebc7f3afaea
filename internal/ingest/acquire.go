package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/your-org/absensi/internal/observability"
	"github.com/your-org/absensi/internal/staging"
)

// FetchError reports that a remote image could not be retrieved.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Acquirer normalizes both input modes — direct upload and remote URL —
// into a staged image file.
type Acquirer struct {
	stage    *staging.Store
	http     *http.Client
	maxBytes int64
}

// NewAcquirer builds an acquirer whose URL fetches are bounded by
// fetchTimeout and whose reads are capped at maxBytes.
func NewAcquirer(stage *staging.Store, fetchTimeout time.Duration, maxBytes int64) *Acquirer {
	return &Acquirer{
		stage:    stage,
		http:     &http.Client{Timeout: fetchTimeout},
		maxBytes: maxBytes,
	}
}

// FromUpload reads the full upload body and stages it.
func (a *Acquirer) FromUpload(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, a.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read upload body: %w", err)
	}
	return a.stage.Stage(data, "image")
}

// FromURL downloads the resource and stages it. Unreachable hosts,
// non-success statuses and timeouts all come back as a *FetchError.
func (a *Acquirer) FromURL(ctx context.Context, imgURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		observability.ImageFetches.WithLabelValues("invalid").Inc()
		return "", &FetchError{URL: imgURL, Err: err}
	}

	resp, err := a.http.Do(req)
	if err != nil {
		observability.ImageFetches.WithLabelValues("unreachable").Inc()
		return "", &FetchError{URL: imgURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ImageFetches.WithLabelValues("bad_status").Inc()
		return "", &FetchError{URL: imgURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		observability.ImageFetches.WithLabelValues("read_error").Inc()
		return "", &FetchError{URL: imgURL, Err: err}
	}

	observability.ImageFetches.WithLabelValues("ok").Inc()
	return a.stage.Stage(data, "image")
}
