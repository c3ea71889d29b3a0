package documents

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoTransitionStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec(`UPDATE "Document" SET status`).
		WithArgs(StatusProcessing, "doc-1", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), "doc-1", StatusProcessing, StatusPending)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if !ok {
		t.Fatalf("expected transition to apply")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoTransitionStatusLostRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	mock.ExpectExec(`UPDATE "Document" SET status`).
		WithArgs(StatusProcessing, "doc-1", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TransitionStatus(context.Background(), "doc-1", StatusProcessing, StatusPending)
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if ok {
		t.Fatalf("no row updated means the transition was lost")
	}
}

func TestPGRepoTransitionStatusRequiresSource(t *testing.T) {
	repo := &PGRepo{}
	if _, err := repo.TransitionStatus(context.Background(), "doc-1", StatusDone); err == nil {
		t.Fatalf("expected error without source statuses")
	}
}

func TestPGRepoGetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	createdAt := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "userId", "file_name", "status", "storageKey", "vectorStoreId", "created_at"}).
		AddRow("doc-1", "user-1", "edital.pdf", StatusPending, "key", nil, createdAt)
	mock.ExpectQuery(`SELECT id, "userId", file_name, status`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Status != StatusPending || doc.FileName != "edital.pdf" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery(`SELECT id, "userId", file_name, status`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
