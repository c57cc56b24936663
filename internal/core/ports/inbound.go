package ports

import (
	"context"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
)

// CorpusPipeline is the inbound contract for the bulk chunk, embed and
// store stages. Each method returns one report per source tag or collection.
type CorpusPipeline interface {
	ChunkCorpus(ctx context.Context, limit int) ([]domain.BatchReport, error)
	EmbedCorpus(ctx context.Context, limit int) ([]domain.BatchReport, error)
	StoreCorpus(ctx context.Context) ([]domain.BatchReport, error)
}

// PenaltyAnalyzer is the inbound contract for answering penalty questions.
type PenaltyAnalyzer interface {
	Answer(ctx context.Context, prompt string, choice domain.ModelChoice) (*domain.Analysis, error)
}

// IngestRequester queues a document URL for the worker.
type IngestRequester interface {
	RequestIngest(ctx context.Context, url string) error
}

// DocumentFetcher downloads a document and runs it through the pipeline.
type DocumentFetcher interface {
	FetchAndIngest(ctx context.Context, url string) (*domain.IngestedDocument, error)
}
