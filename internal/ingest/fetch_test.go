package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func testFetcher() *Fetcher {
	return NewFetcher(FetchConfig{
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	})
}

func TestDownload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("archive-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest, err := testFetcher().Download(context.Background(), srv.URL+"/odis_json.zip", dir)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if want := filepath.Join(dir, "odis_json.zip"); dest != want {
		t.Errorf("dest = %q, want %q", dest, want)
	}
	body, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "archive-bytes" {
		t.Errorf("body = %q", body)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	_, err := testFetcher().Download(context.Background(), srv.URL+"/a.zip", t.TempDir())
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d requests, want 3", got)
	}
}

func TestDownloadDoesNotRetryNotFound(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testFetcher().Download(context.Background(), srv.URL+"/missing.zip", t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d requests, want 1", got)
	}
}

func TestDownloadGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testFetcher().Download(context.Background(), srv.URL+"/a.zip", t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	// initial attempt + 3 retries
	if got := calls.Load(); got != 4 {
		t.Errorf("server saw %d requests, want 4", got)
	}
}

func TestDownloadHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher().Download(ctx, "http://example.invalid/a.zip", t.TempDir())
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDownloadRejectsEmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := testFetcher().Download(context.Background(), "", t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	initial, max := 500*time.Millisecond, 10*time.Second
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, time.Second},
		{2, 2 * time.Second},
		{5, 10 * time.Second},
		{40, 10 * time.Second}, // shift overflow clamps to max
	}
	for _, tc := range cases {
		if got := backoffDuration(initial, tc.attempt, max); got != tc.want {
			t.Errorf("backoffDuration(attempt=%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}
