package models

import (
	"time"

	"github.com/google/uuid"
)

// RouteType classifies how a teacher gained professional status.
type RouteType string

const (
	RouteTypeWelshR      RouteType = "WelshR"
	RouteTypeECDirective RouteType = "ECDirective"
)

// RouteTypeInfo is the reference data row for a route type.
type RouteTypeInfo struct {
	ID   string
	Name string
}

var routeTypeRegistry = map[RouteType]RouteTypeInfo{
	RouteTypeWelshR:      {ID: "877ba701-fe26-4951-9f15-171f3755d50d", Name: "Welsh R"},
	RouteTypeECDirective: {ID: "f4da123b-5c37-4060-ab00-52de4bd3599e", Name: "EC directive"},
}

// Info returns the registry entry for the route type.
func (t RouteType) Info() RouteTypeInfo {
	return routeTypeRegistry[t]
}

// RouteStatus is the lifecycle state of a route.
type RouteStatus string

const (
	RouteStatusHolds RouteStatus = "Holds"
)

// RouteToProfessionalStatus is one qualification route on a person's record.
type RouteToProfessionalStatus struct {
	QualificationID string      `db:"qualification_id" json:"qualificationId"`
	PersonID        string      `db:"person_id" json:"personId"`
	RouteTypeID     string      `db:"route_type_id" json:"routeTypeId"`
	RouteType       RouteType   `db:"route_type_name" json:"routeType"`
	Status          RouteStatus `db:"status" json:"status"`
	HoldsFrom       *time.Time  `db:"holds_from" json:"holdsFrom,omitempty"`
	SourceFileName  *string     `db:"source_file_name" json:"sourceFileName,omitempty"`
	CreatedOn       time.Time   `db:"created_on" json:"createdOn"`
	DeletedOn       *time.Time  `db:"deleted_on" json:"deletedOn,omitempty"`
}

// NewWelshRoute builds a Holds route for an EWC Wales QTS award together with
// its creation event.
func NewWelshRoute(personID string, routeType RouteType, holdsFrom time.Time, sourceFileName string, now time.Time) (*RouteToProfessionalStatus, *RouteToProfessionalStatusCreatedEvent) {
	from := holdsFrom
	route := &RouteToProfessionalStatus{
		QualificationID: uuid.NewString(),
		PersonID:        personID,
		RouteTypeID:     routeType.Info().ID,
		RouteType:       routeType,
		Status:          RouteStatusHolds,
		HoldsFrom:       &from,
		CreatedOn:       now,
	}
	if sourceFileName != "" {
		route.SourceFileName = &sourceFileName
	}
	return route, &RouteToProfessionalStatusCreatedEvent{
		EventID:    uuid.NewString(),
		PersonID:   personID,
		Route:      *route,
		CreatedUtc: now,
	}
}
