package localfs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/core/ports"
)

const artifactExt = ".jsonl"

// ArtifactStore writes chunk records as JSON lines, one file per document:
// <root>/<tag>_jsons/<kind>-<filename>.jsonl.
type ArtifactStore struct {
	root string
}

func NewArtifactStore(root string) (*ArtifactStore, error) {
	if root == "" {
		root = "./output"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactStore{root: root}, nil
}

func (s *ArtifactStore) dir(sourceTag string) string {
	return filepath.Join(s.root, sourceTag+"_jsons")
}

func (s *ArtifactStore) path(kind ports.ArtifactKind, sourceTag, filename string) string {
	return filepath.Join(s.dir(sourceTag), string(kind)+"-"+filename+artifactExt)
}

func (s *ArtifactStore) Has(_ context.Context, kind ports.ArtifactKind, sourceTag, filename string) (bool, error) {
	_, err := os.Stat(s.path(kind, sourceTag, filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact: %w", err)
}

func (s *ArtifactStore) Write(_ context.Context, kind ports.ArtifactKind, sourceTag, filename string, records []domain.ChunkRecord) error {
	return writeFileAtomic(s.path(kind, sourceTag, filename), func(w io.Writer) error {
		buf := bufio.NewWriter(w)
		enc := json.NewEncoder(buf)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return buf.Flush()
	})
}

func (s *ArtifactStore) Read(_ context.Context, kind ports.ArtifactKind, sourceTag, filename string) ([]domain.ChunkRecord, error) {
	f, err := os.Open(s.path(kind, sourceTag, filename))
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	var records []domain.ChunkRecord
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var r domain.ChunkRecord
		err := dec.Decode(&r)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode artifact %s line %d: %w", filename, len(records)+1, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// List returns the document names that have an artifact of kind, sorted.
func (s *ArtifactStore) List(_ context.Context, kind ports.ArtifactKind, sourceTag string) ([]string, error) {
	entries, err := os.ReadDir(s.dir(sourceTag))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	prefix := string(kind) + "-"
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, artifactExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(name, prefix), artifactExt))
	}
	sort.Strings(names)
	return names, nil
}
