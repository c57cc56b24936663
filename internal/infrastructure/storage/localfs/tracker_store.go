package localfs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/f1-penalty-rag/internal/core/tracker"
)

// TrackerStore keeps each tracker set as a flat listing, one name per line:
// <dir>/<stage>.<kind>.txt.
type TrackerStore struct {
	dir string
}

func NewTrackerStore(dir string) (*TrackerStore, error) {
	if dir == "" {
		dir = "./output/tracking"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tracker dir: %w", err)
	}
	return &TrackerStore{dir: dir}, nil
}

func (s *TrackerStore) path(stage tracker.Stage, kind tracker.Kind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.txt", stage, kind))
}

// Load reports the stage as existing when any of its listings exists.
func (s *TrackerStore) Load(_ context.Context, stage tracker.Stage) (tracker.Snapshot, error) {
	snap := tracker.Snapshot{Entries: make(map[tracker.Kind][]string, len(tracker.Kinds))}
	for _, kind := range tracker.Kinds {
		names, err := readListing(s.path(stage, kind))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return tracker.Snapshot{}, fmt.Errorf("load tracker %s/%s: %w", stage, kind, err)
		}
		snap.Exists = true
		snap.Entries[kind] = names
	}
	return snap, nil
}

func (s *TrackerStore) Save(_ context.Context, stage tracker.Stage, kind tracker.Kind, names []string) error {
	return writeFileAtomic(s.path(stage, kind), func(w io.Writer) error {
		buf := bufio.NewWriter(w)
		for _, name := range names {
			if _, err := buf.WriteString(name + "\n"); err != nil {
				return err
			}
		}
		return buf.Flush()
	})
}

func readListing(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, scanner.Err()
}
