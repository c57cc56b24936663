package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

type sourceStorageFake struct {
	files   map[string][]byte
	listErr error
}

func (f *sourceStorageFake) List(_ context.Context, prefix string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.files {
		if strings.HasPrefix(k, prefix+"/") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *sourceStorageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.files[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *sourceStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.files[key] = b
	return nil
}

type artifactStoreFake struct {
	mu      sync.Mutex
	records map[string][]domain.ChunkRecord
}

func newArtifactStoreFake() *artifactStoreFake {
	return &artifactStoreFake{records: make(map[string][]domain.ChunkRecord)}
}

func artifactKey(kind ports.ArtifactKind, tag, name string) string {
	return string(kind) + "/" + tag + "/" + name
}

func (f *artifactStoreFake) Has(_ context.Context, kind ports.ArtifactKind, tag, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[artifactKey(kind, tag, name)]
	return ok, nil
}

func (f *artifactStoreFake) Write(_ context.Context, kind ports.ArtifactKind, tag, name string, records []domain.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[artifactKey(kind, tag, name)] = append([]domain.ChunkRecord(nil), records...)
	return nil
}

func (f *artifactStoreFake) Read(_ context.Context, kind ports.ArtifactKind, tag, name string) ([]domain.ChunkRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, ok := f.records[artifactKey(kind, tag, name)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return append([]domain.ChunkRecord(nil), records...), nil
}

func (f *artifactStoreFake) List(_ context.Context, kind ports.ArtifactKind, tag string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := string(kind) + "/" + tag + "/"
	var names []string
	for k := range f.records {
		if strings.HasPrefix(k, prefix) {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(names)
	return names, nil
}

// extractorFake returns the document bytes as text; "!corrupt" fails.
type extractorFake struct {
	calls int
}

func (f *extractorFake) ExtractText(_ context.Context, document []byte) (string, error) {
	f.calls++
	if string(document) == "!corrupt" {
		return "", domain.WrapError(domain.ErrExtraction, "extract", errors.New("malformed pdf"))
	}
	return string(document), nil
}

// chunkerFake splits on sentence boundaries.
type chunkerFake struct{}

func (chunkerFake) Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ". ") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type embedderFake struct {
	calls     int
	batchLens []int
	err       error
	short     bool
	queries   []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batchLens = append(f.batchLens, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	n := len(texts)
	if f.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.5, 0.5}, nil
}

type queryCall struct {
	collection string
	topN       int
	filter     domain.MetadataFilter
}

type vectorStoreFake struct {
	mu        sync.Mutex
	upserts   map[string][]domain.ChunkRecord
	upsertErr error
	hits      map[string][]domain.CollectionHit
	queryErr  error
	count     int
	countErr  error
	queries   []queryCall
	deleted   []string
}

func newVectorStoreFake() *vectorStoreFake {
	return &vectorStoreFake{
		upserts: make(map[string][]domain.ChunkRecord),
		hits:    make(map[string][]domain.CollectionHit),
		count:   1,
	}
}

func (f *vectorStoreFake) Upsert(_ context.Context, collection string, records []domain.ChunkRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts[collection] = append(f.upserts[collection], records...)
	return nil
}

func (f *vectorStoreFake) Query(_ context.Context, collection string, _ []float32, topN int, filter domain.MetadataFilter) ([]domain.CollectionHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queryCall{collection: collection, topN: topN, filter: filter})
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	hits := f.hits[collection]
	if len(hits) > topN {
		hits = hits[:topN]
	}
	return hits, nil
}

func (f *vectorStoreFake) Count(context.Context, string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

func (f *vectorStoreFake) DeleteCollection(_ context.Context, collection string) error {
	f.deleted = append(f.deleted, collection)
	return nil
}

type downloaderFake struct {
	content []byte
	err     error
	calls   int
}

func (f *downloaderFake) Download(_ context.Context, _ string, destPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(destPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, f.content, 0o644)
}

type generatorFake struct {
	prompt string
	model  domain.ModelChoice
	answer string
	err    error
}

func (f *generatorFake) GenerateText(_ context.Context, model domain.ModelChoice, prompt string) (string, error) {
	f.model = model
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishIngestRequest(_ context.Context, url string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, url)
	return nil
}

func (f *queueFake) SubscribeIngestRequests(context.Context, func(context.Context, string) error) error {
	return nil
}
