package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxManagerBindsRepositoriesToTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM alerts")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectCommit()

	tx, err := NewTxManager(db).BeginImport(context.Background())
	require.NoError(t, err)
	open, err := tx.HasOpenAlert(context.Background(), "p-1")
	require.NoError(t, err)
	assert.False(t, open)
	require.NoError(t, tx.Commit())
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTxManagerRollback(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := NewTxManager(db).BeginImport(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportTxRowSavepoints(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT ewc_row$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("ROLLBACK TO SAVEPOINT ewc_row")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^SAVEPOINT ewc_row$").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("RELEASE SAVEPOINT ewc_row")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	ctx := context.Background()
	tx, err := NewTxManager(db).BeginImport(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SavepointRow(ctx))
	require.NoError(t, tx.RollbackRow(ctx))
	require.NoError(t, tx.SavepointRow(ctx))
	require.NoError(t, tx.ReleaseRow(ctx))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportTxSavepointError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("^SAVEPOINT ewc_row$").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	ctx := context.Background()
	tx, err := NewTxManager(db).BeginImport(ctx)
	require.NoError(t, err)
	err = tx.SavepointRow(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create row savepoint")
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
