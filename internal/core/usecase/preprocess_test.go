package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

type fetcherFake struct {
	doc  *domain.IngestedDocument
	err  error
	urls []string
}

func (f *fetcherFake) FetchAndIngest(_ context.Context, rawURL string) (*domain.IngestedDocument, error) {
	f.urls = append(f.urls, rawURL)
	return f.doc, f.err
}

func TestPreprocessPlainQueryParsesMetadata(t *testing.T) {
	fetcher := &fetcherFake{}
	p := NewQueryPreprocessor(fetcher)

	prepared, err := p.Preprocess(context.Background(), "Why did Car 44 get a penalty at the 2024 Monaco Grand Prix?")
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if len(fetcher.urls) != 0 {
		t.Fatalf("expected no fetch for a plain query")
	}
	if prepared.Metadata.Year != "2024" || prepared.Metadata.CarNum != "44" || prepared.Metadata.Location != "monaco" {
		t.Fatalf("unexpected metadata: %+v", prepared.Metadata)
	}
	if prepared.Document != nil {
		t.Fatalf("expected no document")
	}
}

func TestPreprocessRejectsEmptyQuery(t *testing.T) {
	_, err := NewQueryPreprocessor(&fetcherFake{}).Preprocess(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected invalid query, got %v", err)
	}
}

func TestPreprocessURLUsesDocumentMetadata(t *testing.T) {
	meta := domain.DocumentMetadata{Year: "2023", DocType: domain.DocTypeDecision, CarNum: "1"}
	fetcher := &fetcherFake{doc: &domain.IngestedDocument{Filename: "decision_car_1", Metadata: meta}}
	p := NewQueryPreprocessor(fetcher)

	prepared, err := p.Preprocess(context.Background(), "Was this fair? https://www.fia.com/decision_car_1.pdf.")
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://www.fia.com/decision_car_1.pdf" {
		t.Fatalf("unexpected fetched urls: %v", fetcher.urls)
	}
	if prepared.Text != "Was this fair? ." {
		t.Fatalf("unexpected query text %q", prepared.Text)
	}
	if prepared.Metadata != meta {
		t.Fatalf("expected document metadata, got %+v", prepared.Metadata)
	}
}

func TestPreprocessURLOnlyFallsBackToFilename(t *testing.T) {
	fetcher := &fetcherFake{doc: &domain.IngestedDocument{Filename: "decision_car_1"}}

	prepared, err := NewQueryPreprocessor(fetcher).Preprocess(context.Background(), "https://www.fia.com/decision_car_1.pdf")
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if prepared.Text != "decision car 1" {
		t.Fatalf("expected filename as query text, got %q", prepared.Text)
	}
}

func TestPreprocessMapsFetchErrors(t *testing.T) {
	cases := []struct {
		name        string
		err         error
		wantInvalid bool
	}{
		{name: "skipped", err: domain.WrapError(domain.ErrSkippedDocument, "check", errors.New("no car")), wantInvalid: true},
		{name: "extraction", err: domain.WrapError(domain.ErrExtraction, "extract", errors.New("bad pdf")), wantInvalid: true},
		{name: "network", err: domain.WrapError(domain.ErrNetwork, "download", errors.New("timeout")), wantInvalid: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fetcherFake{doc: &domain.IngestedDocument{Filename: "x"}, err: tc.err}
			_, err := NewQueryPreprocessor(fetcher).Preprocess(context.Background(), "https://example.com/x.pdf")
			if got := domain.IsKind(err, domain.ErrInvalidQuery); got != tc.wantInvalid {
				t.Fatalf("expected invalid query=%v, got err=%v", tc.wantInvalid, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected cause to be preserved, got %v", err)
			}
		})
	}
}

func TestSplitURL(t *testing.T) {
	rawURL, rest := SplitURL("see (https://example.com/a.pdf) now")
	if rawURL != "https://example.com/a.pdf" {
		t.Fatalf("unexpected url %q", rawURL)
	}
	if rest != "see () now" {
		t.Fatalf("unexpected rest %q", rest)
	}

	rawURL, rest = SplitURL("no link here")
	if rawURL != "" || rest != "no link here" {
		t.Fatalf("unexpected split %q %q", rawURL, rest)
	}
}
