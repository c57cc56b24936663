package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

type queryPreprocessor interface {
	Preprocess(ctx context.Context, queryText string) (*domain.PreparedQuery, error)
}

type contextComposer interface {
	Compose(ctx context.Context, meta domain.DocumentMetadata, embedding []float32) (domain.RetrievalContext, error)
}

// QueryObserver receives per-query retrieval sizes.
type QueryObserver interface {
	ObserveQuery(rc domain.RetrievalContext, duration time.Duration, err error)
}

type PenaltyQueryUseCase struct {
	preprocessor queryPreprocessor
	embedder     ports.Embedder
	composer     contextComposer
	generator    ports.TextGenerator
	observer     QueryObserver
}

func NewPenaltyQueryUseCase(
	preprocessor queryPreprocessor,
	embedder ports.Embedder,
	composer contextComposer,
	generator ports.TextGenerator,
) *PenaltyQueryUseCase {
	return &PenaltyQueryUseCase{
		preprocessor: preprocessor,
		embedder:     embedder,
		composer:     composer,
		generator:    generator,
	}
}

func (uc *PenaltyQueryUseCase) WithObserver(observer QueryObserver) *PenaltyQueryUseCase {
	uc.observer = observer
	return uc
}

func (uc *PenaltyQueryUseCase) Answer(ctx context.Context, prompt string, choice domain.ModelChoice) (analysis *domain.Analysis, err error) {
	started := time.Now()
	var rc domain.RetrievalContext
	defer func() {
		if uc.observer != nil {
			uc.observer.ObserveQuery(rc, time.Since(started), err)
		}
	}()

	prepared, err := uc.preprocessor.Preprocess(ctx, prompt)
	if err != nil {
		return nil, err
	}

	embedding, err := uc.embedder.EmbedQuery(ctx, prepared.Text)
	if err != nil {
		return nil, ensureKind(domain.ErrEmbeddingService, "embed query", err)
	}

	rc, err = uc.composer.Compose(ctx, prepared.Metadata, embedding)
	if err != nil {
		return nil, err
	}

	answer, err := uc.generator.GenerateText(ctx, choice, BuildAnalysisPrompt(prepared.Text, rc))
	if err != nil {
		return nil, ensureKind(domain.ErrGenerationService, "generate answer", err)
	}

	slog.Info("penalty_query_answered",
		"model", choice,
		"location", prepared.Metadata.Location,
		"year", prepared.Metadata.Year,
		"car_num", prepared.Metadata.CarNum,
		"specific", len(rc.Specific),
		"historical", len(rc.Historical),
		"regulatory", len(rc.Regulatory),
	)
	return &domain.Analysis{
		Answer:   answer,
		Model:    choice,
		Metadata: prepared.Metadata,
		Context:  rc,
	}, nil
}
