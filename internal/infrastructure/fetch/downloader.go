package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
)

const userAgent = "f1-penalty-rag/1.0"

// Downloader saves remote documents to local paths.
type Downloader struct {
	httpClient *http.Client
	executor   *resilience.Executor
	maxBytes   int64
}

type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Executor *resilience.Executor
}

func NewDownloader(opts Options) *Downloader {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
		maxBytes:   maxBytes,
	}
}

// Download is a no-op when destPath already exists.
func (d *Downloader) Download(ctx context.Context, url, destPath string) error {
	if _, err := os.Stat(destPath); err == nil {
		slog.Info("download_cached", "url", url, "path", destPath)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	err := d.executor.Execute(ctx, "download", func(ctx context.Context) error {
		return d.fetch(ctx, url, destPath)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return domain.WrapError(domain.ErrNetwork, "download "+url, resilience.WrapTemporaryIfNeeded("download", err))
	}
	slog.Info("download_done", "url", url, "path", destPath)
	return nil
}

func (d *Downloader) fetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return resilience.NewHTTPStatusError("download", "get", resp)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, d.maxBytes+1))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write download: %w", err)
	}
	if n > d.maxBytes {
		return fmt.Errorf("download exceeds %d bytes", d.maxBytes)
	}
	if n == 0 {
		return errors.New("download is empty")
	}
	return os.Rename(tmp.Name(), destPath)
}
