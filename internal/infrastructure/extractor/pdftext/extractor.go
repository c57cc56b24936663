// Package pdftext extracts the text layer of PDF documents.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

type Extractor struct {
	// MaxBytes rejects larger documents; zero means no limit.
	MaxBytes int64
}

func NewExtractor() *Extractor {
	return &Extractor{MaxBytes: 64 << 20}
}

// ExtractText returns the plain text of every page in order. Malformed
// documents fail with domain.ErrExtraction.
func (e *Extractor) ExtractText(ctx context.Context, document []byte) (text string, err error) {
	if len(document) == 0 {
		return "", domain.WrapError(domain.ErrExtraction, "extract pdf", errors.New("empty document"))
	}
	if e.MaxBytes > 0 && int64(len(document)) > e.MaxBytes {
		return "", domain.WrapError(domain.ErrExtraction, "extract pdf",
			fmt.Errorf("document is %d bytes, limit is %d", len(document), e.MaxBytes))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("pdf_parser_panic", "panic", fmt.Sprint(r))
			text = ""
			err = domain.WrapError(domain.ErrExtraction, "extract pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "open pdf", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read pdf text", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "read pdf text", err)
	}
	return string(raw), nil
}
