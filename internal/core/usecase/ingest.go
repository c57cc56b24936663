package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

// IngestRequestUseCase validates a document URL and queues it for the
// worker.
type IngestRequestUseCase struct {
	queue ports.MessageQueue
}

func NewIngestRequestUseCase(queue ports.MessageQueue) *IngestRequestUseCase {
	return &IngestRequestUseCase{queue: queue}
}

func (uc *IngestRequestUseCase) RequestIngest(ctx context.Context, rawURL string) error {
	if _, err := FilenameFromURL(rawURL); err != nil {
		return err
	}
	if err := uc.queue.PublishIngestRequest(ctx, rawURL); err != nil {
		return fmt.Errorf("publish ingest request: %w", err)
	}
	return nil
}
