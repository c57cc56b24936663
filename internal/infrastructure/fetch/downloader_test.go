package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
)

func TestDownloadWritesFileOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("User-Agent") != userAgent {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("%PDF-1.4 body"))
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "nested", "doc.pdf")
	d := NewDownloader(Options{})
	for range 2 {
		if err := d.Download(context.Background(), server.URL+"/doc.pdf", dest); err != nil {
			t.Fatalf("Download() error = %v", err)
		}
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "%PDF-1.4 body" {
		t.Fatalf("unexpected file %q, %v", data, err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached second download, got %d requests", calls.Load())
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := NewDownloader(Options{Executor: resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})})
	if err := d.Download(context.Background(), server.URL, filepath.Join(t.TempDir(), "a.pdf")); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestDownloadFailuresAreNetworkErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "missing.pdf")
	err := NewDownloader(Options{}).Download(context.Background(), server.URL, dest)
	if !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatalf("expected no file after failed download")
	}
}

func TestDownloadEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 100))
	}))
	defer server.Close()

	err := NewDownloader(Options{MaxBytes: 10}).Download(context.Background(), server.URL, filepath.Join(t.TempDir(), "big.pdf"))
	if !domain.IsKind(err, domain.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}
