package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

// buildPDF writes a single-page PDF with a correct cross-reference table.
func buildPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractTextReadsTextLayer(t *testing.T) {
	text, err := NewExtractor().ExtractText(context.Background(), buildPDF("Car 30 time penalty"))
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if !strings.Contains(text, "Car 30 time penalty") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractTextRejectsBrokenInput(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"not a pdf": []byte("plain text pretending to be a pdf"),
		"truncated": buildPDF("Car 1")[:40],
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewExtractor().ExtractText(context.Background(), doc)
			if !domain.IsKind(err, domain.ErrExtraction) {
				t.Fatalf("expected extraction error, got %v", err)
			}
		})
	}
}

func TestExtractTextEnforcesSizeLimit(t *testing.T) {
	e := &Extractor{MaxBytes: 10}
	_, err := e.ExtractText(context.Background(), buildPDF("Car 1"))
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}
