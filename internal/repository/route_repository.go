package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

// RouteRepository persists routes to professional status.
type RouteRepository struct {
	db sqlx.ExtContext
}

// NewRouteRepository constructs the repository on a pool or a transaction.
func NewRouteRepository(db sqlx.ExtContext) *RouteRepository {
	return &RouteRepository{db: db}
}

// ListRoutesByPerson returns the live routes of a person.
func (r *RouteRepository) ListRoutesByPerson(ctx context.Context, personID string) ([]models.RouteToProfessionalStatus, error) {
	const query = `SELECT qualification_id, person_id, route_type_id, route_type_name, status, holds_from, source_file_name, created_on, deleted_on
	FROM routes_to_professional_status WHERE person_id = $1 AND deleted_on IS NULL ORDER BY created_on`
	var routes []models.RouteToProfessionalStatus
	if err := sqlx.SelectContext(ctx, r.db, &routes, query, personID); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return routes, nil
}

// CreateRoute inserts a route.
func (r *RouteRepository) CreateRoute(ctx context.Context, route *models.RouteToProfessionalStatus) error {
	if route.QualificationID == "" {
		route.QualificationID = uuid.NewString()
	}
	if route.CreatedOn.IsZero() {
		route.CreatedOn = time.Now().UTC()
	}
	const query = `INSERT INTO routes_to_professional_status
	(qualification_id, person_id, route_type_id, route_type_name, status, holds_from, source_file_name, created_on)
	VALUES (:qualification_id, :person_id, :route_type_id, :route_type_name, :status, :holds_from, :source_file_name, :created_on)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, route); err != nil {
		return fmt.Errorf("create route: %w", err)
	}
	return nil
}
