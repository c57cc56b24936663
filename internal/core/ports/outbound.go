package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

// SourceStorage holds raw source documents.
type SourceStorage interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, key string, data io.Reader) error
}

type ArtifactKind string

const (
	ArtifactChunks     ArtifactKind = "chunks"
	ArtifactEmbeddings ArtifactKind = "embeddings"
)

// ArtifactStore persists chunk records between pipeline stages, one file
// per source document and artifact kind.
type ArtifactStore interface {
	Has(ctx context.Context, kind ArtifactKind, sourceTag, filename string) (bool, error)
	Write(ctx context.Context, kind ArtifactKind, sourceTag, filename string, records []domain.ChunkRecord) error
	Read(ctx context.Context, kind ArtifactKind, sourceTag, filename string) ([]domain.ChunkRecord, error)
	List(ctx context.Context, kind ArtifactKind, sourceTag string) ([]string, error)
}

// TextExtractor turns document bytes into plain text. Unreadable documents
// fail with domain.ErrExtraction.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte) (string, error)
}

// Chunker splits text into bounded-length chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore manages named collections of embedded chunks. A missing
// collection fails with domain.ErrCollectionUnavailable.
type VectorStore interface {
	Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error
	Query(ctx context.Context, collection string, embedding []float32, topN int, filter domain.MetadataFilter) ([]domain.CollectionHit, error)
	Count(ctx context.Context, collection string) (int, error)
	DeleteCollection(ctx context.Context, collection string) error
}

// TextGenerator produces the final answer with the selected model.
type TextGenerator interface {
	GenerateText(ctx context.Context, model domain.ModelChoice, prompt string) (string, error)
}

// Downloader fetches url into destPath unless destPath already exists.
type Downloader interface {
	Download(ctx context.Context, url, destPath string) error
}

// MessageQueue publishes and consumes document URLs for async ingestion.
type MessageQueue interface {
	PublishIngestRequest(ctx context.Context, url string) error
	SubscribeIngestRequests(ctx context.Context, handler func(context.Context, string) error) error
}

// PipelineObserver receives per-document and per-stage outcomes.
type PipelineObserver interface {
	ObserveDocument(stage string, outcome domain.IngestOutcome)
	ObserveStage(stage string, report domain.BatchReport, duration time.Duration, err error)
}
