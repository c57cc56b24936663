package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/f1-penalty-rag/internal/config"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
	"github.com/kirillkom/f1-penalty-rag/internal/core/tracker"
	"github.com/kirillkom/f1-penalty-rag/internal/core/usecase"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/fetch"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/llm/openaicompat"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/f1-penalty-rag/internal/observability/metrics"
)

type Options struct {
	// Service labels pipeline metrics.
	Service string
	// Queue connects to NATS for async ingestion.
	Queue bool
	// Metrics receives the pipeline collectors; nil keeps them private.
	Metrics       prometheus.Registerer
	QueryObserver usecase.QueryObserver
}

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Pipeline *usecase.PipelineUseCase
	FetchUC  *usecase.DocumentFetchUseCase
	QueryUC  *usecase.PenaltyQueryUseCase
	IngestUC *usecase.IngestRequestUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(cfg.Resilience())

	trackers, err := app.trackerStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sources, err := localfs.New(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init source storage: %w", err)
	}
	artifacts, err := localfs.NewArtifactStore(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("init artifact store: %w", err)
	}

	embedder, generator, err := newLLM(cfg, executor)
	if err != nil {
		return nil, err
	}

	vectors := qdrant.NewWithExecutor(cfg.QdrantURL, executor)
	collections := usecase.Collections{
		Decisions:   cfg.QdrantDecisionsCollection,
		Regulations: cfg.QdrantRegulationsCollection,
	}

	pipeline := usecase.NewPipelineUseCase(
		sources,
		artifacts,
		pdftext.NewExtractor(),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		vectors,
		trackers,
		usecase.PipelineOptions{
			Collections:    collections,
			EmbedBatchSize: cfg.EmbedBatchSize,
			StoreBatchSize: cfg.StoreBatchSize,
		},
	)
	registerer := opts.Metrics
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	service := opts.Service
	if service == "" {
		service = "f1rag"
	}
	pipeline.WithObserver(metrics.NewPipelineMetrics(service, registerer))

	downloader := fetch.NewDownloader(fetch.Options{
		Timeout:  time.Duration(cfg.DownloadTimeoutSeconds) * time.Second,
		MaxBytes: cfg.DownloadMaxBytes,
		Executor: executor,
	})
	fetchUC := usecase.NewDocumentFetchUseCase(downloader, pipeline, cfg.DownloadDir)

	queryUC := usecase.NewPenaltyQueryUseCase(
		usecase.NewQueryPreprocessor(fetchUC),
		embedder,
		usecase.NewRetrievalComposer(vectors, collections),
		generator,
	)
	if opts.QueryObserver != nil {
		queryUC.WithObserver(opts.QueryObserver)
	}

	app.Pipeline = pipeline
	app.FetchUC = fetchUC
	app.QueryUC = queryUC

	if opts.Queue {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			HandlerTimeout:     5 * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closers = append(app.closers, queue.Close)
		app.Queue = queue
		app.IngestUC = usecase.NewIngestRequestUseCase(queue)
	}

	ok = true
	return app, nil
}

func (a *App) trackerStore(ctx context.Context, cfg config.Config) (tracker.Store, error) {
	switch cfg.TrackerBackend {
	case config.TrackerBackendFile, "":
		store, err := localfs.NewTrackerStore(cfg.TrackerDir)
		if err != nil {
			return nil, fmt.Errorf("init tracker store: %w", err)
		}
		return store, nil
	case config.TrackerBackendPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		return ensureTrackerSchema(ctx, db)
	default:
		return nil, fmt.Errorf("unknown tracker backend %q", cfg.TrackerBackend)
	}
}

func ensureTrackerSchema(ctx context.Context, db *sql.DB) (tracker.Store, error) {
	store := postgres.NewTrackerStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, nil
}

func newLLM(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.TextGenerator, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOllama, "":
		client := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			FinetunedModel: cfg.OllamaFinetunedModel,
			Dimension:      cfg.EmbeddingDimension,
			Executor:       executor,
		})
		return ollama.NewEmbedder(client), ollama.NewGenerator(client, usecase.SystemInstruction), nil
	case config.LLMProviderOpenAI:
		client := openaicompat.New(openaicompat.Options{
			BaseURL:        cfg.OpenAIBaseURL,
			APIKey:         cfg.OpenAIAPIKey,
			GenModel:       cfg.OpenAIGenModel,
			FinetunedModel: cfg.OpenAIFinetunedModel,
			EmbedModel:     cfg.OpenAIEmbedModel,
			Dimension:      cfg.EmbeddingDimension,
			Executor:       executor,
		})
		return openaicompat.NewEmbedder(client), openaicompat.NewGenerator(client, usecase.SystemInstruction), nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
