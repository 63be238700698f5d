package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/policyscope/policyscope/internal/core/domain"
)

func newComparisonRepoWithMock(t *testing.T) (*ComparisonRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewComparisonRepository(db), mock, func() { db.Close() }
}

func TestComparisonSaveAndGetRoundtrip(t *testing.T) {
	repo, mock, cleanup := newComparisonRepoWithMock(t)
	defer cleanup()

	result := &domain.ComparisonResult{
		ID:          "cmp-1",
		PolicyAID:   "pol-a",
		PolicyBID:   "pol-b",
		PolicyAName: "הראל",
		PolicyBName: "כלל",
		Summary:     "פוליסה א מציעה כיסוי רחב יותר",
		ComparedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO comparisons").
		WithArgs(result.ID, result.PolicyAID, result.PolicyBID, sqlmock.AnyArg(), result.ComparedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Save(context.Background(), result); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mock.ExpectQuery("SELECT result FROM comparisons").WithArgs("cmp-1").
		WillReturnRows(sqlmock.NewRows([]string{"result"}).
			AddRow([]byte(`{"id":"cmp-1","policy_a_id":"pol-a","policy_b_id":"pol-b","summary":"פוליסה א מציעה כיסוי רחב יותר"}`)))

	got, err := repo.GetByID(context.Background(), "cmp-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.PolicyAID != "pol-a" || got.Summary != result.Summary {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestComparisonGetByIDNotFound(t *testing.T) {
	repo, mock, cleanup := newComparisonRepoWithMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT result FROM comparisons").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrComparisonNotFound) {
		t.Fatalf("expected comparison not found, got %v", err)
	}
}
