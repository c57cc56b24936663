package usecase

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

type singleDocumentIngestor interface {
	IngestOne(ctx context.Context, filename string, document []byte) (domain.DocumentMetadata, domain.IngestOutcome, error)
}

// DocumentFetchUseCase downloads a document by URL into the download
// directory and ingests it.
type DocumentFetchUseCase struct {
	downloader  ports.Downloader
	ingestor    singleDocumentIngestor
	downloadDir string
}

func NewDocumentFetchUseCase(downloader ports.Downloader, ingestor singleDocumentIngestor, downloadDir string) *DocumentFetchUseCase {
	if downloadDir == "" {
		downloadDir = os.TempDir()
	}
	return &DocumentFetchUseCase{
		downloader:  downloader,
		ingestor:    ingestor,
		downloadDir: downloadDir,
	}
}

// FetchAndIngest returns the document description even when ingestion
// fails, so callers can report the outcome.
func (uc *DocumentFetchUseCase) FetchAndIngest(ctx context.Context, rawURL string) (*domain.IngestedDocument, error) {
	filename, err := FilenameFromURL(rawURL)
	if err != nil {
		return nil, err
	}
	doc := &domain.IngestedDocument{
		URL:       rawURL,
		Filename:  filename,
		LocalPath: filepath.Join(uc.downloadDir, filename+".pdf"),
	}

	if err := uc.downloader.Download(ctx, rawURL, doc.LocalPath); err != nil {
		return doc, ensureKind(domain.ErrNetwork, "download "+rawURL, err)
	}
	data, err := os.ReadFile(doc.LocalPath)
	if err != nil {
		doc.Outcome = domain.OutcomeCorrupted
		return doc, domain.WrapError(domain.ErrExtraction, "read download", err)
	}

	doc.Metadata, doc.Outcome, err = uc.ingestor.IngestOne(ctx, filename, data)
	return doc, err
}

// FilenameFromURL derives a local file name from the URL's last path
// segment, lowercased and without extension.
func FilenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse url", fmt.Errorf("unsupported scheme %q", u.Scheme))
	}
	base := path.Base(u.Path)
	name := strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
	if name == "" || name == "." || name == "/" {
		return "", domain.WrapError(domain.ErrInvalidInput, "parse url", fmt.Errorf("no file name in %q", rawURL))
	}
	return name, nil
}
