package config

import (
	"testing"
	"time"
)

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	for _, key := range []string{"DATA_DIR", "OUTPUT_DIR", "CHUNK_SIZE", "CHUNK_OVERLAP", "EMBEDDING_DIMENSION", "EMBED_BATCH_SIZE", "STORE_BATCH_SIZE", "TRACKER_BACKEND", "LLM_PROVIDER"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ChunkSize != 350 {
		t.Fatalf("expected default chunk size 350, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 20 {
		t.Fatalf("expected default chunk overlap 20, got %d", cfg.ChunkOverlap)
	}
	if cfg.EmbeddingDimension != 256 {
		t.Fatalf("expected default embedding dimension 256, got %d", cfg.EmbeddingDimension)
	}
	if cfg.EmbedBatchSize != 100 || cfg.StoreBatchSize != 500 {
		t.Fatalf("expected batch sizes 100/500, got %d/%d", cfg.EmbedBatchSize, cfg.StoreBatchSize)
	}
	if cfg.OutputDir != "./data/output" {
		t.Fatalf("expected output dir under data dir, got %q", cfg.OutputDir)
	}
	if cfg.TrackerBackend != TrackerBackendFile {
		t.Fatalf("expected file tracker backend, got %q", cfg.TrackerBackend)
	}
	if cfg.LLMProvider != LLMProviderOllama {
		t.Fatalf("expected ollama provider, got %q", cfg.LLMProvider)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/f1")
	t.Setenv("OUTPUT_DIR", "")
	t.Setenv("TRACKER_BACKEND", "Postgres")
	t.Setenv("API_RATE_LIMIT_RPS", "0.5")
	t.Setenv("CHUNK_SIZE", "not-a-number")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.OutputDir != "/srv/f1/output" {
		t.Fatalf("expected output dir derived from data dir, got %q", cfg.OutputDir)
	}
	if cfg.TrackerBackend != TrackerBackendPostgres {
		t.Fatalf("expected lower-cased postgres backend, got %q", cfg.TrackerBackend)
	}
	if cfg.APIRateLimitRPS != 0.5 {
		t.Fatalf("expected rate limit 0.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.ChunkSize != 350 {
		t.Fatalf("expected invalid chunk size to fall back, got %d", cfg.ChunkSize)
	}
	if cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestResilienceConfigConversion(t *testing.T) {
	cfg := Config{
		ResilienceRetryMaxAttempts:  5,
		ResilienceRetryInitialMS:    50,
		ResilienceRetryMaxMS:        800,
		ResilienceBreakerMinReqs:    4,
		ResilienceBreakerFailRatio:  0.25,
		ResilienceBreakerOpenTimeMS: 1500,
	}

	out := cfg.Resilience()
	if out.RetryMaxAttempts != 5 || out.RetryInitialBackoff != 50*time.Millisecond || out.RetryMaxBackoff != 800*time.Millisecond {
		t.Fatalf("unexpected retry settings: %+v", out)
	}
	if out.BreakerMinRequests != 4 || out.BreakerFailureRatio != 0.25 || out.BreakerOpenTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected breaker settings: %+v", out)
	}
	if out.RetryAfterCap != 5*time.Second {
		t.Fatalf("expected default retry-after cap, got %v", out.RetryAfterCap)
	}
}
