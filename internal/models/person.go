package models

import (
	"time"

	"github.com/google/uuid"
)

// PersonStatus flags whether a teacher record is live.
type PersonStatus string

const (
	PersonStatusActive      PersonStatus = "ACTIVE"
	PersonStatusDeactivated PersonStatus = "DEACTIVATED"
)

// Person is a teacher record owned by the Teaching Record System.
type Person struct {
	PersonID                 string                    `db:"person_id" json:"personId"`
	Trn                      string                    `db:"trn" json:"trn"`
	FirstName                string                    `db:"first_name" json:"firstName"`
	MiddleName               string                    `db:"middle_name" json:"middleName"`
	LastName                 string                    `db:"last_name" json:"lastName"`
	DateOfBirth              *time.Time                `db:"date_of_birth" json:"dateOfBirth,omitempty"`
	Status                   PersonStatus              `db:"status" json:"status"`
	QtsDate                  *time.Time                `db:"qts_date" json:"qtsDate,omitempty"`
	InductionStatus          InductionStatus           `db:"induction_status" json:"inductionStatus"`
	InductionStartDate       *time.Time                `db:"induction_start_date" json:"inductionStartDate,omitempty"`
	InductionCompletedDate   *time.Time                `db:"induction_completed_date" json:"inductionCompletedDate,omitempty"`
	InductionExemptionReason *InductionExemptionReason `db:"induction_exemption_reason" json:"inductionExemptionReason,omitempty"`
	CreatedOn                time.Time                 `db:"created_on" json:"createdOn"`
	UpdatedOn                time.Time                 `db:"updated_on" json:"updatedOn"`
}

// FullName joins the name parts that are present.
func (p *Person) FullName() string {
	name := p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	if p.LastName != "" {
		name += " " + p.LastName
	}
	return name
}

// InductionSnapshot captures the induction fields of a person.
type InductionSnapshot struct {
	Status          InductionStatus           `json:"status"`
	StartDate       *time.Time                `json:"startDate,omitempty"`
	CompletedDate   *time.Time                `json:"completedDate,omitempty"`
	ExemptionReason *InductionExemptionReason `json:"exemptionReason,omitempty"`
}

func (p *Person) inductionSnapshot() InductionSnapshot {
	return InductionSnapshot{
		Status:          p.InductionStatus,
		StartDate:       p.InductionStartDate,
		CompletedDate:   p.InductionCompletedDate,
		ExemptionReason: p.InductionExemptionReason,
	}
}

// TrySetWelshInductionStatus applies an induction outcome reported by EWC
// Wales. A pass sets Passed with a PassedInWales exemption, anything else
// sets FailedInWales. It returns false and no event when nothing changes.
func (p *Person) TrySetWelshInductionStatus(passed bool, startDate, completedDate *time.Time, changeReason string, now time.Time) (*PersonInductionUpdatedEvent, bool) {
	status := InductionStatusFailedInWales
	var exemption *InductionExemptionReason
	if passed {
		status = InductionStatusPassed
		reason := InductionExemptionReasonPassedInWales
		exemption = &reason
	}

	if p.InductionStatus == status &&
		SameDate(p.InductionStartDate, startDate) &&
		SameDate(p.InductionCompletedDate, completedDate) {
		return nil, false
	}

	old := p.inductionSnapshot()
	p.InductionStatus = status
	p.InductionStartDate = startDate
	p.InductionCompletedDate = completedDate
	p.InductionExemptionReason = exemption
	p.UpdatedOn = now

	return &PersonInductionUpdatedEvent{
		EventID:      uuid.NewString(),
		PersonID:     p.PersonID,
		Induction:    p.inductionSnapshot(),
		OldInduction: old,
		ChangeReason: changeReason,
		CreatedUtc:   now,
	}, true
}

// SameDate reports whether two optional dates fall on the same calendar day.
func SameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
