package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DomainEvent is a change to a person record that downstream consumers replay.
type DomainEvent interface {
	EventName() string
	EventKey() string
	SubjectPersonID() string
	OccurredAt() time.Time
}

// PersonInductionUpdatedEvent records an induction status change.
type PersonInductionUpdatedEvent struct {
	EventID      string            `json:"eventId"`
	PersonID     string            `json:"personId"`
	Induction    InductionSnapshot `json:"induction"`
	OldInduction InductionSnapshot `json:"oldInduction"`
	ChangeReason string            `json:"changeReason,omitempty"`
	CreatedUtc   time.Time         `json:"createdUtc"`
}

func (e *PersonInductionUpdatedEvent) EventName() string       { return "PersonInductionUpdatedEvent" }
func (e *PersonInductionUpdatedEvent) EventKey() string        { return e.EventID }
func (e *PersonInductionUpdatedEvent) SubjectPersonID() string { return e.PersonID }
func (e *PersonInductionUpdatedEvent) OccurredAt() time.Time   { return e.CreatedUtc }

// RouteToProfessionalStatusCreatedEvent records a new route on a person.
type RouteToProfessionalStatusCreatedEvent struct {
	EventID    string                    `json:"eventId"`
	PersonID   string                    `json:"personId"`
	Route      RouteToProfessionalStatus `json:"routeToProfessionalStatus"`
	CreatedUtc time.Time                 `json:"createdUtc"`
}

func (e *RouteToProfessionalStatusCreatedEvent) EventName() string {
	return "RouteToProfessionalStatusCreatedEvent"
}
func (e *RouteToProfessionalStatusCreatedEvent) EventKey() string        { return e.EventID }
func (e *RouteToProfessionalStatusCreatedEvent) SubjectPersonID() string { return e.PersonID }
func (e *RouteToProfessionalStatusCreatedEvent) OccurredAt() time.Time   { return e.CreatedUtc }

// Event is the persisted event store row.
type Event struct {
	EventID   string    `db:"event_id" json:"eventId"`
	EventName string    `db:"event_name" json:"eventName"`
	PersonID  *string   `db:"person_id" json:"personId,omitempty"`
	Payload   []byte    `db:"payload" json:"payload"`
	CreatedOn time.Time `db:"created_on" json:"createdOn"`
	Published bool      `db:"published" json:"published"`
}

// NewEvent serialises a domain event into its store envelope.
func NewEvent(e DomainEvent) (*Event, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventName(), err)
	}
	ev := &Event{
		EventID:   e.EventKey(),
		EventName: e.EventName(),
		Payload:   payload,
		CreatedOn: e.OccurredAt(),
	}
	if id := e.SubjectPersonID(); id != "" {
		ev.PersonID = &id
	}
	return ev, nil
}
