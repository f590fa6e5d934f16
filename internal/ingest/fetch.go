package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"
)

// FetchConfig configures the archive downloader.
//
// Zero values are given sensible defaults:
//   - Timeout:        10m (archives are large)
//   - MaxRetries:     3
//   - InitialBackoff: 500ms
//   - MaxBackoff:     10s
type FetchConfig struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int

	// InitialBackoff is the base backoff for the first retry; each further
	// retry doubles it up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Transport is an optional custom RoundTripper, injectable for tests.
	Transport http.RoundTripper
}

// Fetcher downloads source archives over HTTP with retry and backoff.
type Fetcher struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewFetcher constructs a Fetcher, applying defaults for zero values.
func NewFetcher(cfg FetchConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
	}
}

// Download fetches url into destDir, named after the URL's last path segment,
// replacing any previous download. It returns the path of the written file.
// Transient failures (transport errors, 5xx, 429) are retried with
// exponential backoff; the download restarts from scratch on retry.
func (f *Fetcher) Download(ctx context.Context, url, destDir string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("download: url must not be empty")
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}

	name := path.Base(url)
	dest := filepath.Join(destDir, name)

	attempts := f.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := f.fetchOnce(ctx, url, dest)
		if err == nil {
			return dest, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt+1 >= attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(f.initialBackoff, attempt, f.maxBackoff)); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("download %s: %w", url, lastErr)
}

// retryableError marks transport errors and retryable HTTP statuses.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	_, ok := err.(*retryableError)
	return ok
}

// fetchOnce performs a single streamed download attempt into dest.
func (f *Fetcher) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return &retryableError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("status %d from GET %s", resp.StatusCode, url)
		if isRetryableStatus(resp.StatusCode) {
			return &retryableError{statusErr}
		}
		return statusErr
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return &retryableError{fmt.Errorf("stream body: %w", err)}
	}
	return out.Close()
}

// isRetryableStatus is intentionally conservative: 5xx and 429 are treated
// as transient; everything else is final.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// backoffDuration returns the exponential backoff for the given 0-based
// retry index, clamped to max.
func backoffDuration(initial time.Duration, attempt int, max time.Duration) time.Duration {
	d := initial << attempt
	if d > max || d <= 0 {
		return max
	}
	return d
}

// sleepWithContext waits for d but aborts early if ctx is canceled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
