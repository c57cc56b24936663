// Package tracker records which source files a pipeline stage has already
// processed, skipped or found corrupted, so repeated runs only do delta work.
package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type Stage string

const (
	StageChunk           Stage = "chunk"
	StageDecisionStore   Stage = "decision-store"
	StageRegulationStore Stage = "regulation-store"
)

type Kind string

const (
	KindProcessed Kind = "processed"
	KindSkipped   Kind = "skipped"
	KindCorrupted Kind = "corrupted"
)

// Kinds lists every persisted set in flush order.
var Kinds = []Kind{KindProcessed, KindSkipped, KindCorrupted}

// Snapshot is what a Store holds for one stage. Exists is false when the
// stage has never been persisted.
type Snapshot struct {
	Exists  bool
	Entries map[Kind][]string
}

// Store persists tracker sets. Save replaces the whole set for one kind.
type Store interface {
	Load(ctx context.Context, stage Stage) (Snapshot, error)
	Save(ctx context.Context, stage Stage, kind Kind, names []string) error
}

// SeedFunc lists names to record as processed on a stage's first run.
type SeedFunc func(ctx context.Context) ([]string, error)

type set map[string]struct{}

// Tracker is the in-memory state of one stage between Open and Flush.
type Tracker struct {
	mu       sync.Mutex
	stage    Stage
	store    Store
	sets     map[Kind]set
	baseline map[Kind]set
}

// Open loads the stage from store. When nothing was persisted yet, the
// processed set is seeded from seed (if any) and saved immediately.
func Open(ctx context.Context, store Store, stage Stage, seed SeedFunc) (*Tracker, error) {
	snap, err := store.Load(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("load tracker %s: %w", stage, err)
	}

	t := &Tracker{
		stage:    stage,
		store:    store,
		sets:     make(map[Kind]set, len(Kinds)),
		baseline: make(map[Kind]set, len(Kinds)),
	}
	for _, k := range Kinds {
		t.sets[k] = newSet(snap.Entries[k])
		t.baseline[k] = newSet(snap.Entries[k])
	}

	if !snap.Exists {
		if seed != nil {
			names, err := seed(ctx)
			if err != nil {
				return nil, fmt.Errorf("seed tracker %s: %w", stage, err)
			}
			for _, n := range names {
				t.sets[KindProcessed][n] = struct{}{}
			}
		}
		for _, k := range Kinds {
			if err := store.Save(ctx, stage, k, sortedNames(t.sets[k])); err != nil {
				return nil, fmt.Errorf("persist seeded tracker %s: %w", stage, err)
			}
			t.baseline[k] = copySet(t.sets[k])
		}
		return t, nil
	}

	t.normalize()
	return t, nil
}

func (t *Tracker) Stage() Stage {
	return t.stage
}

// Reconcile returns candidates that are neither processed nor skipped, in
// candidate order and without duplicates. It does not mutate state.
func (t *Tracker) Reconcile(candidates []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	delta := make([]string, 0, len(candidates))
	seen := make(set, len(candidates))
	for _, name := range candidates {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if t.has(KindProcessed, name) || t.has(KindSkipped, name) {
			continue
		}
		delta = append(delta, name)
	}
	return delta
}

func (t *Tracker) MarkProcessed(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets[KindProcessed][name] = struct{}{}
	delete(t.sets[KindSkipped], name)
	delete(t.sets[KindCorrupted], name)
}

func (t *Tracker) MarkSkipped(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets[KindSkipped][name] = struct{}{}
	delete(t.sets[KindProcessed], name)
}

// MarkCorrupted records name as corrupted and therefore skipped.
func (t *Tracker) MarkCorrupted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets[KindCorrupted][name] = struct{}{}
	t.sets[KindSkipped][name] = struct{}{}
	delete(t.sets[KindProcessed], name)
}

func (t *Tracker) IsProcessed(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.has(KindProcessed, name)
}

// Reset empties every set. The change is persisted by the next Flush.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range Kinds {
		t.sets[k] = make(set)
	}
}

// Dirty reports whether any set differs from what was last loaded or saved.
func (t *Tracker) Dirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range Kinds {
		if !equalSets(t.sets[k], t.baseline[k]) {
			return true
		}
	}
	return false
}

// Flush saves only the kinds that changed since the last load or flush.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range Kinds {
		if equalSets(t.sets[k], t.baseline[k]) {
			continue
		}
		if err := t.store.Save(ctx, t.stage, k, sortedNames(t.sets[k])); err != nil {
			return fmt.Errorf("flush tracker %s/%s: %w", t.stage, k, err)
		}
		t.baseline[k] = copySet(t.sets[k])
	}
	return nil
}

func (t *Tracker) Processed() []string { return t.list(KindProcessed) }
func (t *Tracker) Skipped() []string   { return t.list(KindSkipped) }
func (t *Tracker) Corrupted() []string { return t.list(KindCorrupted) }

func (t *Tracker) list(k Kind) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedNames(t.sets[k])
}

func (t *Tracker) has(k Kind, name string) bool {
	_, ok := t.sets[k][name]
	return ok
}

// normalize repairs hand-edited or legacy state: corrupted names are also
// skipped, and processed wins over skipped.
func (t *Tracker) normalize() {
	for name := range t.sets[KindCorrupted] {
		t.sets[KindSkipped][name] = struct{}{}
	}
	for name := range t.sets[KindProcessed] {
		delete(t.sets[KindSkipped], name)
		delete(t.sets[KindCorrupted], name)
	}
}

func newSet(names []string) set {
	s := make(set, len(names))
	for _, n := range names {
		if n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func copySet(s set) set {
	out := make(set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func equalSets(a, b set) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func sortedNames(s set) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
