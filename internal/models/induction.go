package models

// InductionStatus is the post-qualification induction state held on a person.
type InductionStatus string

const (
	InductionStatusNone               InductionStatus = "None"
	InductionStatusRequiredToComplete InductionStatus = "RequiredToComplete"
	InductionStatusExempt             InductionStatus = "Exempt"
	InductionStatusInProgress         InductionStatus = "InProgress"
	InductionStatusPassed             InductionStatus = "Passed"
	InductionStatusFailed             InductionStatus = "Failed"
	InductionStatusFailedInWales      InductionStatus = "FailedInWales"
)

// InductionExemptionReason explains why an induction outcome was set outside England.
type InductionExemptionReason string

const (
	InductionExemptionReasonPassedInWales InductionExemptionReason = "PassedInWales"
)

// InductionStatusInfo is the static metadata attached to each status.
type InductionStatusInfo struct {
	Title                 string
	RequiresStartDate     bool
	RequiresCompletedDate bool
	// BlocksEwcImport marks statuses an EWC Wales induction row may not overwrite.
	BlocksEwcImport bool
}

var inductionStatusRegistry = map[InductionStatus]InductionStatusInfo{
	InductionStatusNone:               {Title: "none"},
	InductionStatusRequiredToComplete: {Title: "required to complete"},
	InductionStatusExempt:             {Title: "exempt"},
	InductionStatusInProgress:         {Title: "in progress", RequiresStartDate: true, BlocksEwcImport: true},
	InductionStatusPassed:             {Title: "passed", RequiresStartDate: true, RequiresCompletedDate: true, BlocksEwcImport: true},
	InductionStatusFailed:             {Title: "failed", RequiresStartDate: true, RequiresCompletedDate: true, BlocksEwcImport: true},
	InductionStatusFailedInWales:      {Title: "failed in Wales", RequiresStartDate: true, RequiresCompletedDate: true, BlocksEwcImport: true},
}

// Info returns the registry entry; unknown statuses yield a zero value titled with the raw name.
func (s InductionStatus) Info() InductionStatusInfo {
	if info, ok := inductionStatusRegistry[s]; ok {
		return info
	}
	return InductionStatusInfo{Title: string(s)}
}

// Title is the lower-case display name.
func (s InductionStatus) Title() string {
	return s.Info().Title
}

// Valid reports whether s is a known status.
func (s InductionStatus) Valid() bool {
	_, ok := inductionStatusRegistry[s]
	return ok
}

// InductionStatuses lists every known status in declaration order.
func InductionStatuses() []InductionStatus {
	return []InductionStatus{
		InductionStatusNone,
		InductionStatusRequiredToComplete,
		InductionStatusExempt,
		InductionStatusInProgress,
		InductionStatusPassed,
		InductionStatusFailed,
		InductionStatusFailedInWales,
	}
}
