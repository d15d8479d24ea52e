package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var personRowColumns = []string{
	"person_id", "trn", "first_name", "middle_name", "last_name", "date_of_birth", "status", "qts_date",
	"induction_status", "induction_start_date", "induction_completed_date", "induction_exemption_reason", "created_on", "updated_on",
}

func TestPersonRepositoryFindActiveByTRN(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(personRowColumns).
		AddRow("p-1", "1234567", "Ada", "", "Lovelace", dob, "ACTIVE", nil, "None", nil, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM persons WHERE trn = $1 AND status = $2")).
		WithArgs("1234567", string(models.PersonStatusActive)).
		WillReturnRows(rows)

	persons, err := repo.FindActiveByTRN(context.Background(), "1234567")
	require.NoError(t, err)
	require.Len(t, persons, 1)
	assert.Equal(t, "p-1", persons[0].PersonID)
	assert.Equal(t, models.InductionStatusNone, persons[0].InductionStatus)
	assert.Nil(t, persons[0].InductionExemptionReason)
	assert.True(t, models.SameDate(&dob, persons[0].DateOfBirth))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryHasOpenAlert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM alerts WHERE person_id = $1")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	open, err := repo.HasOpenAlert(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, open)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositoryUpdateInduction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	start := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	person := &models.Person{PersonID: "p-1"}
	_, changed := person.TrySetWelshInductionStatus(true, &start, &start, "", time.Now())
	require.True(t, changed)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE persons SET induction_status = ?")).
		WithArgs(string(models.InductionStatusPassed), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateInduction(context.Background(), person))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonRepositorySetQtsDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewPersonRepository(db)

	qts := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE persons SET qts_date = LEAST(COALESCE(qts_date, $2), $2)")).
		WithArgs("p-1", qts, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetQtsDate(context.Background(), "p-1", qts, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
