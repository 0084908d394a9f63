package migration

import (
	"context"
	"fmt"
	"testing"

	apperrors "clinstat/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestRunCreatesTableAndIndexes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS analysis_runs").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_analysis_runs_dataset").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewRunner().Run(context.Background(), sqlx.NewDb(db, "sqlmock")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunReportsDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(fmt.Errorf("permission denied"))

	err = NewRunner().Run(context.Background(), sqlx.NewDb(db, "sqlmock"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperrors.GetCode(err) != apperrors.CodeDatabaseError {
		t.Errorf("code = %s, want %s", apperrors.GetCode(err), apperrors.CodeDatabaseError)
	}
}
