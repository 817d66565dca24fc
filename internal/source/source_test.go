package source

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func TestQueryTable(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	since := time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC)
	ts := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM unit_changes WHERE event_ts >= \\$1").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"STOCK_NUMBER", "MAKE", "EVENT_TS", "NOTE"}).
			AddRow([]byte("100"), "JD", ts, nil).
			AddRow("101", []byte("KUB"), ts, "x"))

	tbl, err := QueryTable(context.Background(), db, "SELECT * FROM unit_changes WHERE event_ts >= $1", since)
	require.NoError(t, err)

	assert.Equal(t, []string{"STOCK_NUMBER", "MAKE", "EVENT_TS", "NOTE"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []any{"100", "JD", ts, nil}, tbl.Rows[0])
	assert.Equal(t, "KUB", tbl.Rows[1][1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryTable_Errors(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("connection reset"))
	_, err := QueryTable(context.Background(), db, "SELECT 1")
	assert.ErrorContains(t, err, "connection reset")

	mock.ExpectQuery("SELECT 2").WillReturnRows(
		sqlmock.NewRows([]string{"a"}).AddRow("x").RowError(0, errors.New("bad row")))
	_, err = QueryTable(context.Background(), db, "SELECT 2")
	assert.ErrorContains(t, err, "bad row")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTable(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT \\* FROM dbo\\.AlertMatrix").
		WillReturnRows(sqlmock.NewRows([]string{"Role", "MAK", "Make"}).AddRow("Tech", "IN", "JD"))

	tbl, err := LoadTable(context.Background(), db, "dbo.AlertMatrix")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())

	_, err = LoadTable(context.Background(), db, "AlertUsers; DROP TABLE x")
	assert.ErrorContains(t, err, "invalid table name")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunScript(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	script := "UPDATE settlement_errors SET status = 'Released' WHERE status = 'Pending'"
	mock.ExpectExec("UPDATE settlement_errors").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := RunScript(context.Background(), db, "fix_pending", script)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	mock.ExpectExec("DELETE").WillReturnError(errors.New("permission denied"))
	_, err = RunScript(context.Background(), db, "cleanup", "DELETE FROM x")
	assert.ErrorContains(t, err, "script cleanup failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unit_changes.sql"), []byte("\n SELECT 1;\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.sql"), []byte("  \n"), 0644))

	text, err := ReadScript(dir, "unit_changes")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", text)

	text, err = ReadScript(dir, "unit_changes.sql")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", text)

	_, err = ReadScript(dir, "blank")
	assert.ErrorContains(t, err, "empty")

	_, err = ReadScript(dir, "missing")
	assert.Error(t, err)
}
