package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/metadata"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// QueryPreprocessor turns a user query into query text and metadata. A URL
// in the query is fetched and ingested and its document supplies the
// metadata.
type QueryPreprocessor struct {
	fetcher ports.DocumentFetcher
}

func NewQueryPreprocessor(fetcher ports.DocumentFetcher) *QueryPreprocessor {
	return &QueryPreprocessor{fetcher: fetcher}
}

func (p *QueryPreprocessor) Preprocess(ctx context.Context, queryText string) (*domain.PreparedQuery, error) {
	text := metadata.NormalizeText(queryText)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidQuery, "preprocess query", errors.New("query is empty"))
	}

	rawURL, rest := SplitURL(text)
	if rawURL == "" {
		return &domain.PreparedQuery{Text: text, Metadata: metadata.Parse(text)}, nil
	}

	doc, err := p.fetcher.FetchAndIngest(ctx, rawURL)
	if err != nil {
		if domain.IsKind(err, domain.ErrSkippedDocument) ||
			domain.IsKind(err, domain.ErrExtraction) ||
			domain.IsKind(err, domain.ErrInvalidInput) {
			return nil, domain.WrapError(domain.ErrInvalidQuery, "preprocess query", err)
		}
		return nil, err
	}

	if rest == "" {
		rest = strings.ReplaceAll(doc.Filename, "_", " ")
	}
	return &domain.PreparedQuery{Text: rest, Metadata: doc.Metadata, Document: doc}, nil
}

// SplitURL returns the first URL in text and the text without it.
func SplitURL(text string) (string, string) {
	loc := urlPattern.FindStringIndex(text)
	if loc == nil {
		return "", text
	}
	rawURL := strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?)]")
	rest := text[:loc[0]] + text[loc[0]+len(rawURL):]
	return rawURL, metadata.NormalizeText(rest)
}
