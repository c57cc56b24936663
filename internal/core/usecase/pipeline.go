package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/metadata"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
	"github.com/kirillkom/f1-penalty-rag/internal/core/tracker"
)

// RawSourcePrefix is the storage prefix holding raw PDFs, one folder per
// source tag.
const RawSourcePrefix = "raw_pdfs"

const stageEmbed = "embed"

type Collections struct {
	Decisions   string
	Regulations string
}

type PipelineOptions struct {
	Collections    Collections
	EmbedBatchSize int
	StoreBatchSize int
}

func (o PipelineOptions) normalize() PipelineOptions {
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = 100
	}
	if o.StoreBatchSize <= 0 {
		o.StoreBatchSize = 500
	}
	return o
}

// PipelineUseCase runs the chunk, embed and store stages in bulk and for a
// single downloaded document. Stage state is guarded by one lock per stage.
type PipelineUseCase struct {
	sources   ports.SourceStorage
	artifacts ports.ArtifactStore
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectors   ports.VectorStore
	trackers  tracker.Store
	observer  ports.PipelineObserver
	opts      PipelineOptions

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewPipelineUseCase(
	sources ports.SourceStorage,
	artifacts ports.ArtifactStore,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectors ports.VectorStore,
	trackers tracker.Store,
	opts PipelineOptions,
) *PipelineUseCase {
	return &PipelineUseCase{
		sources:   sources,
		artifacts: artifacts,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		trackers:  trackers,
		opts:      opts.normalize(),
		locks:     make(map[string]*sync.Mutex),
	}
}

// WithObserver attaches a metrics observer.
func (uc *PipelineUseCase) WithObserver(observer ports.PipelineObserver) *PipelineUseCase {
	uc.observer = observer
	return uc
}

func (uc *PipelineUseCase) ChunkCorpus(ctx context.Context, limit int) ([]domain.BatchReport, error) {
	var reports []domain.BatchReport
	for _, tag := range []string{domain.SourceDecisions, domain.SourceRegulations} {
		report, err := uc.ChunkAll(ctx, tag, limit)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (uc *PipelineUseCase) EmbedCorpus(ctx context.Context, limit int) ([]domain.BatchReport, error) {
	var reports []domain.BatchReport
	for _, tag := range []string{domain.SourceDecisions, domain.SourceRegulations} {
		report, err := uc.EmbedAll(ctx, tag, limit)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (uc *PipelineUseCase) StoreCorpus(ctx context.Context) ([]domain.BatchReport, error) {
	var reports []domain.BatchReport
	for _, target := range []domain.DocType{domain.DocTypeDecision, domain.DocTypeRegulation} {
		report, err := uc.StoreAll(ctx, target)
		reports = append(reports, report)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// ChunkAll chunks every new interesting PDF under the source tag. A limit
// above zero caps the number of documents attempted in this run. Document
// failures are counted in the report; only a stage that cannot run at all
// returns an error.
func (uc *PipelineUseCase) ChunkAll(ctx context.Context, sourceTag string, limit int) (report domain.BatchReport, err error) {
	report = domain.BatchReport{Stage: string(tracker.StageChunk), Target: sourceTag}
	started := time.Now()
	defer func() { uc.observeStage(report, time.Since(started), err) }()

	unlock := uc.lock(string(tracker.StageChunk))
	defer unlock()

	keys, names, err := uc.listSources(ctx, sourceTag)
	if err != nil {
		return report, err
	}
	report.Total = len(names)

	tr, err := tracker.Open(ctx, uc.trackers, tracker.StageChunk, uc.seedChunked)
	if err != nil {
		return report, err
	}
	delta := tr.Reconcile(names)
	report.AlreadyDone = report.Total - len(delta)

	for i, name := range delta {
		if limit > 0 && i >= limit {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}

		outcome, _, docErr := uc.chunkSource(ctx, sourceTag, name, keys[name])
		uc.recordChunkOutcome(tr, &report, name, outcome, docErr)
	}

	if flushErr := tr.Flush(ctx); flushErr != nil && err == nil {
		err = flushErr
	}
	slog.Info("chunk_stage_done",
		"source", sourceTag,
		"total", report.Total,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"corrupted", report.Corrupted,
		"failed", report.Failed,
	)
	return report, err
}

// EmbedAll embeds every chunk artifact under the source tag that has no
// embedding artifact yet.
func (uc *PipelineUseCase) EmbedAll(ctx context.Context, sourceTag string, limit int) (report domain.BatchReport, err error) {
	report = domain.BatchReport{Stage: stageEmbed, Target: sourceTag}
	started := time.Now()
	defer func() { uc.observeStage(report, time.Since(started), err) }()

	unlock := uc.lock(stageEmbed)
	defer unlock()

	chunked, err := uc.artifacts.List(ctx, ports.ArtifactChunks, sourceTag)
	if err != nil {
		return report, fmt.Errorf("list %s chunk artifacts: %w", sourceTag, err)
	}
	embedded, err := uc.artifacts.List(ctx, ports.ArtifactEmbeddings, sourceTag)
	if err != nil {
		return report, fmt.Errorf("list %s embedding artifacts: %w", sourceTag, err)
	}
	done := make(map[string]struct{}, len(embedded))
	for _, name := range embedded {
		done[name] = struct{}{}
	}

	report.Total = len(chunked)
	attempted := 0
	for _, name := range chunked {
		if _, ok := done[name]; ok {
			report.AlreadyDone++
			continue
		}
		if limit > 0 && attempted >= limit {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
		attempted++

		if docErr := uc.embedDocument(ctx, sourceTag, name); docErr != nil {
			report.Failed++
			uc.observeDocument(stageEmbed, domain.OutcomeFailed)
			slog.Warn("embed_document_failed", "source", sourceTag, "file", name, "error", docErr)
			continue
		}
		report.Processed++
		uc.observeDocument(stageEmbed, domain.OutcomeEmbedded)
	}

	slog.Info("embed_stage_done",
		"source", sourceTag,
		"total", report.Total,
		"processed", report.Processed,
		"failed", report.Failed,
	)
	return report, err
}

// StoreAll upserts every embedded document of the target type that the
// store tracker has not recorded yet.
func (uc *PipelineUseCase) StoreAll(ctx context.Context, target domain.DocType) (report domain.BatchReport, err error) {
	stage, collection := uc.storeTarget(target)
	sourceTag := target.SourceTag()
	report = domain.BatchReport{Stage: string(stage), Target: collection}
	started := time.Now()
	defer func() { uc.observeStage(report, time.Since(started), err) }()

	unlock := uc.lock(string(stage))
	defer unlock()

	names, err := uc.artifacts.List(ctx, ports.ArtifactEmbeddings, sourceTag)
	if err != nil {
		return report, fmt.Errorf("list %s embedding artifacts: %w", sourceTag, err)
	}
	report.Total = len(names)

	tr, err := tracker.Open(ctx, uc.trackers, stage, nil)
	if err != nil {
		return report, err
	}
	delta := tr.Reconcile(names)
	report.AlreadyDone = report.Total - len(delta)

	for _, name := range delta {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
		if docErr := uc.storeDocument(ctx, collection, sourceTag, name); docErr != nil {
			report.Failed++
			uc.observeDocument(string(stage), domain.OutcomeFailed)
			slog.Warn("store_document_failed", "collection", collection, "file", name, "error", docErr)
			continue
		}
		tr.MarkProcessed(name)
		report.Processed++
		uc.observeDocument(string(stage), domain.OutcomeStored)
	}

	if flushErr := tr.Flush(ctx); flushErr != nil && err == nil {
		err = flushErr
	}
	slog.Info("store_stage_done",
		"collection", collection,
		"total", report.Total,
		"processed", report.Processed,
		"failed", report.Failed,
	)
	return report, err
}

// ResetCollection drops the target collection and forgets what the store
// stage recorded for it, so the next StoreAll reloads everything.
func (uc *PipelineUseCase) ResetCollection(ctx context.Context, target domain.DocType) error {
	stage, collection := uc.storeTarget(target)
	unlock := uc.lock(string(stage))
	defer unlock()

	if err := uc.vectors.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	tr, err := tracker.Open(ctx, uc.trackers, stage, nil)
	if err != nil {
		return err
	}
	tr.Reset()
	return tr.Flush(ctx)
}

// IngestOne pushes a single document through chunk, embed and store. The
// returned metadata is parsed from the full document text.
func (uc *PipelineUseCase) IngestOne(ctx context.Context, filename string, document []byte) (domain.DocumentMetadata, domain.IngestOutcome, error) {
	text, meta, err := uc.extractAndParse(ctx, filename, document)
	if err != nil {
		if markErr := uc.markChunkStage(ctx, filename, domain.OutcomeCorrupted); markErr != nil {
			slog.Warn("tracker_update_failed", "file", filename, "error", markErr)
		}
		uc.observeDocument("ingest", domain.OutcomeCorrupted)
		return meta, domain.OutcomeCorrupted, err
	}
	if skipErr := checkRequiredFields(filename, meta); skipErr != nil {
		if markErr := uc.markChunkStage(ctx, filename, domain.OutcomeSkipped); markErr != nil {
			slog.Warn("tracker_update_failed", "file", filename, "error", markErr)
		}
		uc.observeDocument("ingest", domain.OutcomeSkipped)
		return meta, domain.OutcomeSkipped, skipErr
	}

	sourceTag := meta.DocType.SourceTag()
	stage, collection := uc.storeTarget(meta.DocType)

	unlock := uc.lock(string(stage))
	defer unlock()

	storeTracker, err := tracker.Open(ctx, uc.trackers, stage, nil)
	if err != nil {
		return meta, "", err
	}
	if storeTracker.IsProcessed(filename) {
		uc.observeDocument("ingest", domain.OutcomeAlreadyProcessed)
		return meta, domain.OutcomeAlreadyProcessed, nil
	}

	chunked, err := uc.artifacts.Has(ctx, ports.ArtifactChunks, sourceTag, filename)
	if err != nil {
		return meta, "", fmt.Errorf("check chunk artifact: %w", err)
	}
	if !chunked {
		if err := uc.writeChunks(ctx, sourceTag, filename, text, meta); err != nil {
			return meta, "", err
		}
		if err := uc.markChunkStage(ctx, filename, domain.OutcomeChunked); err != nil {
			return meta, "", err
		}
	}

	embedded, err := uc.artifacts.Has(ctx, ports.ArtifactEmbeddings, sourceTag, filename)
	if err != nil {
		return meta, "", fmt.Errorf("check embedding artifact: %w", err)
	}
	if !embedded {
		if err := uc.embedDocument(ctx, sourceTag, filename); err != nil {
			return meta, "", err
		}
	}

	if err := uc.storeDocument(ctx, collection, sourceTag, filename); err != nil {
		return meta, "", err
	}
	storeTracker.MarkProcessed(filename)
	if err := storeTracker.Flush(ctx); err != nil {
		return meta, "", err
	}

	uc.observeDocument("ingest", domain.OutcomeStored)
	slog.Info("document_ingested", "file", filename, "collection", collection, "doc_type", meta.DocType)
	return meta, domain.OutcomeChunked, nil
}

func (uc *PipelineUseCase) chunkSource(ctx context.Context, sourceTag, filename, key string) (domain.IngestOutcome, domain.DocumentMetadata, error) {
	exists, err := uc.artifacts.Has(ctx, ports.ArtifactChunks, sourceTag, filename)
	if err != nil {
		return "", domain.DocumentMetadata{}, fmt.Errorf("check chunk artifact: %w", err)
	}
	if exists {
		return domain.OutcomeAlreadyProcessed, domain.DocumentMetadata{}, nil
	}

	document, err := uc.readSource(ctx, key)
	if err != nil {
		return domain.OutcomeCorrupted, domain.DocumentMetadata{}, err
	}
	text, meta, err := uc.extractAndParse(ctx, filename, document)
	if err != nil {
		return domain.OutcomeCorrupted, meta, err
	}
	if err := checkRequiredFields(filename, meta); err != nil {
		return domain.OutcomeSkipped, meta, err
	}
	if err := uc.writeChunks(ctx, sourceTag, filename, text, meta); err != nil {
		return "", meta, err
	}
	return domain.OutcomeChunked, meta, nil
}

func (uc *PipelineUseCase) recordChunkOutcome(tr *tracker.Tracker, report *domain.BatchReport, name string, outcome domain.IngestOutcome, err error) {
	switch outcome {
	case domain.OutcomeChunked:
		tr.MarkProcessed(name)
		report.Processed++
	case domain.OutcomeAlreadyProcessed:
		tr.MarkProcessed(name)
		report.AlreadyDone++
	case domain.OutcomeSkipped:
		tr.MarkSkipped(name)
		report.Skipped++
		slog.Info("chunk_document_skipped", "file", name, "reason", err)
	case domain.OutcomeCorrupted:
		tr.MarkCorrupted(name)
		report.Corrupted++
		slog.Warn("chunk_document_corrupted", "file", name, "error", err)
	default:
		outcome = domain.OutcomeFailed
		report.Failed++
		slog.Error("chunk_document_failed", "file", name, "error", err)
	}
	uc.observeDocument(string(tracker.StageChunk), outcome)
}

func (uc *PipelineUseCase) readSource(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.sources.Open(ctx, key)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "open source", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExtraction, "read source", err)
	}
	return data, nil
}

func (uc *PipelineUseCase) extractAndParse(ctx context.Context, filename string, document []byte) (string, domain.DocumentMetadata, error) {
	raw, err := uc.extractor.ExtractText(ctx, document)
	if err != nil {
		return "", domain.DocumentMetadata{}, ensureKind(domain.ErrExtraction, "extract "+filename, err)
	}
	text := metadata.NormalizeText(raw)
	if text == "" {
		return "", domain.DocumentMetadata{}, domain.WrapError(domain.ErrExtraction, "extract "+filename, errors.New("empty extracted text"))
	}
	return text, metadata.Parse(text), nil
}

func (uc *PipelineUseCase) writeChunks(ctx context.Context, sourceTag, filename, text string, meta domain.DocumentMetadata) error {
	chunks := uc.chunker.Split(text)
	records := make([]domain.ChunkRecord, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, domain.ChunkRecord{
			ID:               fmt.Sprintf("%s_%d", filename, i),
			File:             filename,
			Text:             chunk,
			DocumentMetadata: meta,
		})
	}
	if err := uc.artifacts.Write(ctx, ports.ArtifactChunks, sourceTag, filename, records); err != nil {
		return fmt.Errorf("write chunk artifact %s: %w", filename, err)
	}
	return nil
}

func (uc *PipelineUseCase) embedDocument(ctx context.Context, sourceTag, filename string) error {
	records, err := uc.artifacts.Read(ctx, ports.ArtifactChunks, sourceTag, filename)
	if err != nil {
		return fmt.Errorf("read chunk artifact %s: %w", filename, err)
	}

	for start := 0; start < len(records); start += uc.opts.EmbedBatchSize {
		end := min(start+uc.opts.EmbedBatchSize, len(records))
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Text)
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return ensureKind(domain.ErrEmbeddingService, "embed "+filename, err)
		}
		if len(vectors) != len(texts) {
			return domain.WrapError(domain.ErrEmbeddingService, "embed "+filename,
				fmt.Errorf("expected %d vectors, got %d", len(texts), len(vectors)))
		}
		for i := range vectors {
			records[start+i].Embedding = vectors[i]
		}
	}

	if err := uc.artifacts.Write(ctx, ports.ArtifactEmbeddings, sourceTag, filename, records); err != nil {
		return fmt.Errorf("write embedding artifact %s: %w", filename, err)
	}
	return nil
}

func (uc *PipelineUseCase) storeDocument(ctx context.Context, collection, sourceTag, filename string) error {
	records, err := uc.artifacts.Read(ctx, ports.ArtifactEmbeddings, sourceTag, filename)
	if err != nil {
		return fmt.Errorf("read embedding artifact %s: %w", filename, err)
	}
	for start := 0; start < len(records); start += uc.opts.StoreBatchSize {
		end := min(start+uc.opts.StoreBatchSize, len(records))
		if err := uc.vectors.Upsert(ctx, collection, records[start:end]); err != nil {
			return ensureKind(domain.ErrCollectionUnavailable, "upsert "+filename, err)
		}
	}
	return nil
}

// markChunkStage records a single-document outcome in the chunk tracker.
func (uc *PipelineUseCase) markChunkStage(ctx context.Context, filename string, outcome domain.IngestOutcome) error {
	unlock := uc.lock(string(tracker.StageChunk))
	defer unlock()

	tr, err := tracker.Open(ctx, uc.trackers, tracker.StageChunk, uc.seedChunked)
	if err != nil {
		return err
	}
	switch outcome {
	case domain.OutcomeCorrupted:
		tr.MarkCorrupted(filename)
	case domain.OutcomeSkipped:
		tr.MarkSkipped(filename)
	default:
		tr.MarkProcessed(filename)
	}
	return tr.Flush(ctx)
}

// seedChunked lists documents that already have chunk artifacts.
func (uc *PipelineUseCase) seedChunked(ctx context.Context) ([]string, error) {
	var names []string
	for _, tag := range []string{domain.SourceDecisions, domain.SourceRegulations} {
		listed, err := uc.artifacts.List(ctx, ports.ArtifactChunks, tag)
		if err != nil {
			return nil, err
		}
		names = append(names, listed...)
	}
	return names, nil
}

// listSources returns interesting PDF names under the source tag, in
// listing order, and their storage keys.
func (uc *PipelineUseCase) listSources(ctx context.Context, sourceTag string) (map[string]string, []string, error) {
	keys, err := uc.sources.List(ctx, path.Join(RawSourcePrefix, sourceTag))
	if err != nil {
		return nil, nil, fmt.Errorf("list %s sources: %w", sourceTag, err)
	}

	byName := make(map[string]string, len(keys))
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		base := path.Base(key)
		ext := path.Ext(base)
		if !strings.EqualFold(ext, ".pdf") || !metadata.IsInterestingFile(base) {
			continue
		}
		name := strings.TrimSuffix(base, ext)
		if _, dup := byName[name]; dup {
			continue
		}
		byName[name] = key
		names = append(names, name)
	}
	return byName, names, nil
}

func (uc *PipelineUseCase) storeTarget(target domain.DocType) (tracker.Stage, string) {
	if target == domain.DocTypeRegulation {
		return tracker.StageRegulationStore, uc.opts.Collections.Regulations
	}
	return tracker.StageDecisionStore, uc.opts.Collections.Decisions
}

func (uc *PipelineUseCase) lock(stage string) func() {
	uc.locksMu.Lock()
	mu, ok := uc.locks[stage]
	if !ok {
		mu = &sync.Mutex{}
		uc.locks[stage] = mu
	}
	uc.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func (uc *PipelineUseCase) observeDocument(stage string, outcome domain.IngestOutcome) {
	if uc.observer != nil {
		uc.observer.ObserveDocument(stage, outcome)
	}
}

func (uc *PipelineUseCase) observeStage(report domain.BatchReport, duration time.Duration, err error) {
	if uc.observer != nil {
		uc.observer.ObserveStage(report.Stage, report, duration, err)
	}
}

// checkRequiredFields skips decisions without a car number.
func checkRequiredFields(filename string, meta domain.DocumentMetadata) error {
	if meta.DocType == domain.DocTypeDecision && meta.CarNum == "" {
		return domain.WrapError(domain.ErrSkippedDocument, "check "+filename, errors.New("no car number found"))
	}
	return nil
}

// ensureKind wraps err with kind unless it already carries it.
func ensureKind(kind error, operation string, err error) error {
	if err == nil || domain.IsKind(err, kind) {
		return err
	}
	return domain.WrapError(kind, operation, err)
}
