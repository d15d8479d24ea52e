package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

// EventRepository appends domain events to the event store.
type EventRepository struct {
	db sqlx.ExtContext
}

// NewEventRepository constructs the repository on a pool or a transaction.
func NewEventRepository(db sqlx.ExtContext) *EventRepository {
	return &EventRepository{db: db}
}

// AppendEvent stores one event.
func (r *EventRepository) AppendEvent(ctx context.Context, event *models.Event) error {
	const query = `INSERT INTO events (event_id, event_name, person_id, payload, created_on, published)
	VALUES (:event_id, :event_name, :person_id, :payload, :created_on, :published)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, event); err != nil {
		return fmt.Errorf("append event %s: %w", event.EventName, err)
	}
	return nil
}

// ListEventsByPerson returns the events of a person in creation order.
func (r *EventRepository) ListEventsByPerson(ctx context.Context, personID string) ([]models.Event, error) {
	const query = `SELECT event_id, event_name, person_id, payload, created_on, published
	FROM events WHERE person_id = $1 ORDER BY created_on`
	var events []models.Event
	if err := sqlx.SelectContext(ctx, r.db, &events, query, personID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
