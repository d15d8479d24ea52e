package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/pkg/csvrow"
)

type teacherFinder interface {
	FindActiveByTRN(ctx context.Context, trn string) ([]models.Person, error)
}

// matchTeacher resolves a TRN and optional date of birth to one active person.
// Precedence: no TRN match, ambiguous TRN, date of birth mismatch, then found.
func matchTeacher(ctx context.Context, finder teacherFinder, trn string, dob *time.Time) (models.EwcWalesMatchStatus, *models.Person, error) {
	persons, err := finder.FindActiveByTRN(ctx, trn)
	if err != nil {
		return models.EwcWalesMatchStatusNoMatch, nil, err
	}
	switch len(persons) {
	case 0:
		return models.EwcWalesMatchStatusNoMatch, nil, nil
	case 1:
	default:
		return models.EwcWalesMatchStatusMultipleTrnMatched, nil, nil
	}

	person := &persons[0]
	if person.Status != models.PersonStatusActive {
		return models.EwcWalesMatchStatusTeacherInactive, person, nil
	}
	if dob != nil && !models.SameDate(person.DateOfBirth, dob) {
		return models.EwcWalesMatchStatusTrnAndDateOfBirthMatchFailed, person, nil
	}
	if person.QtsDate != nil {
		return models.EwcWalesMatchStatusTeacherHasQts, person, nil
	}
	return models.EwcWalesMatchStatusTeacherHasNoQts, person, nil
}

// lookupErrors renders the hard error for an unusable match.
func lookupErrors(trn string, status models.EwcWalesMatchStatus) []string {
	switch status {
	case models.EwcWalesMatchStatusNoMatch:
		return []string{fmt.Sprintf("Teacher with TRN %s was not found.", trn)}
	case models.EwcWalesMatchStatusTrnAndDateOfBirthMatchFailed:
		return []string{fmt.Sprintf("For TRN %s Date of Birth does not match with the existing record.", trn)}
	case models.EwcWalesMatchStatusMultipleTrnMatched:
		return []string{fmt.Sprintf("TRN %s was matched to more than one record in the system.", trn)}
	case models.EwcWalesMatchStatusTeacherInactive:
		return []string{fmt.Sprintf("Teacher with TRN %s is inactive.", trn)}
	default:
		return nil
	}
}

func validTrn(trn string) bool {
	if len(trn) != 7 {
		return false
	}
	for _, c := range trn {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// requiredDate parses a mandatory dd/MM/yyyy field, appending the matching error when it is blank or malformed.
func requiredDate(raw, missing, invalid string, errs *[]string) *time.Time {
	if raw == "" {
		*errs = append(*errs, missing)
		return nil
	}
	parsed := csvrow.ParseDate(raw)
	if parsed == nil {
		*errs = append(*errs, invalid)
	}
	return parsed
}
