package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

func TestEventRepositoryAppendAndList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	_, created := models.NewWelshRoute("p-1", models.RouteTypeWelshR, time.Now(), "", time.Now().UTC())
	event, err := models.NewEvent(created)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events")).
		WithArgs(event.EventID, "RouteToProfessionalStatusCreatedEvent", "p-1", sqlmock.AnyArg(), sqlmock.AnyArg(), false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.AppendEvent(context.Background(), event))

	rows := sqlmock.NewRows([]string{"event_id", "event_name", "person_id", "payload", "created_on", "published"}).
		AddRow(event.EventID, event.EventName, "p-1", event.Payload, time.Now(), false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE person_id = $1")).
		WithArgs("p-1").
		WillReturnRows(rows)

	events, err := repo.ListEventsByPerson(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, string(event.Payload), string(events[0].Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}
