package postgres

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansSections(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{
		"id", "filename", "mime_type", "storage_path", "sections", "chunk_count", "status", "error_message", "created_at", "updated_at",
	}).AddRow("d1", "handbook.pdf", "application/pdf", "d1_handbook.pdf",
		[]byte(`["Leave Policy","Probation"]`), 12, "ready", "", time.Now(), time.Now())

	mock.ExpectQuery("SELECT id, filename, mime_type, storage_path").
		WithArgs("d1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !reflect.DeepEqual(doc.Sections, []string{"Leave Policy", "Probation"}) {
		t.Fatalf("Sections = %v", doc.Sections)
	}
	if doc.Status != domain.StatusReady {
		t.Fatalf("Status = %v", doc.Status)
	}
}

func TestSaveSectionsMarshalsLabels(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("d1", []byte(`["Benefits"]`), 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveSections(context.Background(), "d1", []string{"Benefits"}, 4); err != nil {
		t.Fatalf("SaveSections() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListSectionsOnlyReadyDocuments(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT DISTINCT").
		WithArgs(string(domain.StatusReady)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("Leave Policy").AddRow("Probation"))

	sections, err := repo.ListSections(context.Background())
	if err != nil {
		t.Fatalf("ListSections() error = %v", err)
	}
	if !reflect.DeepEqual(sections, []string{"Leave Policy", "Probation"}) {
		t.Fatalf("sections = %v", sections)
	}
}
