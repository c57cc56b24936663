package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/f1-penalty-rag/internal/core/tracker"
)

func newStoreWithMock(t *testing.T) (*TrackerStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewTrackerStore(db), mock, func() { _ = db.Close() }
}

func TestLoadMissingStage(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("chunk").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	snap, err := store.Load(context.Background(), tracker.StageChunk)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.Exists {
		t.Fatalf("expected missing stage")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadGroupsEntriesByKind(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("decision-store").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT kind, name").
		WithArgs("decision-store").
		WillReturnRows(sqlmock.NewRows([]string{"kind", "name"}).
			AddRow("processed", "a").
			AddRow("processed", "b").
			AddRow("skipped", "c"))

	snap, err := store.Load(context.Background(), tracker.StageDecisionStore)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !snap.Exists || len(snap.Entries[tracker.KindProcessed]) != 2 || snap.Entries[tracker.KindSkipped][0] != "c" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveReplacesSetUnderLock(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(stageLockKey(tracker.StageChunk)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO tracker_stages").
		WithArgs("chunk").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM tracker_entries").
		WithArgs("chunk", "processed").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO tracker_entries").
		WithArgs("chunk", "processed", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tracker_entries").
		WithArgs("chunk", "processed", "b").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Save(context.Background(), tracker.StageChunk, tracker.KindProcessed, []string{"a", "b"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveRollsBackOnInsertError(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO tracker_stages").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM tracker_entries").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO tracker_entries").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := store.Save(context.Background(), tracker.StageChunk, tracker.KindSkipped, []string{"a"}); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaTakesLock(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(schemaLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tracker_stages").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
