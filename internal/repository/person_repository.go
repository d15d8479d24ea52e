package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

const personColumns = `person_id, trn, first_name, middle_name, last_name, date_of_birth, status, qts_date,
       induction_status, induction_start_date, induction_completed_date, induction_exemption_reason, created_on, updated_on`

// PersonRepository reads and updates teacher records.
type PersonRepository struct {
	db sqlx.ExtContext
}

// NewPersonRepository constructs the repository on a pool or a transaction.
func NewPersonRepository(db sqlx.ExtContext) *PersonRepository {
	return &PersonRepository{db: db}
}

// FindActiveByTRN returns every active person holding trn.
func (r *PersonRepository) FindActiveByTRN(ctx context.Context, trn string) ([]models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons WHERE trn = $1 AND status = $2 ORDER BY created_on`
	var persons []models.Person
	if err := sqlx.SelectContext(ctx, r.db, &persons, query, trn, models.PersonStatusActive); err != nil {
		return nil, fmt.Errorf("find persons by trn: %w", err)
	}
	return persons, nil
}

// HasOpenAlert reports whether the person has an alert without an end date.
func (r *PersonRepository) HasOpenAlert(ctx context.Context, personID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM alerts WHERE person_id = $1 AND end_date IS NULL AND deleted_on IS NULL)`
	var open bool
	if err := sqlx.GetContext(ctx, r.db, &open, query, personID); err != nil {
		return false, fmt.Errorf("check open alerts: %w", err)
	}
	return open, nil
}

// UpdateInduction persists the induction fields of person.
func (r *PersonRepository) UpdateInduction(ctx context.Context, person *models.Person) error {
	if person.UpdatedOn.IsZero() {
		person.UpdatedOn = time.Now().UTC()
	}
	const query = `UPDATE persons SET induction_status = :induction_status, induction_start_date = :induction_start_date,
       induction_completed_date = :induction_completed_date, induction_exemption_reason = :induction_exemption_reason,
       updated_on = :updated_on
	WHERE person_id = :person_id`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, person); err != nil {
		return fmt.Errorf("update person induction: %w", err)
	}
	return nil
}

// SetQtsDate records a QTS award, keeping the earliest date already held.
func (r *PersonRepository) SetQtsDate(ctx context.Context, personID string, qtsDate time.Time, updatedOn time.Time) error {
	const query = `UPDATE persons SET qts_date = LEAST(COALESCE(qts_date, $2), $2), updated_on = $3 WHERE person_id = $1`
	if _, err := r.db.ExecContext(ctx, query, personID, qtsDate, updatedOn); err != nil {
		return fmt.Errorf("set person qts date: %w", err)
	}
	return nil
}
