package models

import "time"

// IntegrationTransactionInterfaceType names the partner feed.
type IntegrationTransactionInterfaceType string

const (
	IntegrationTransactionInterfaceTypeEwcWales IntegrationTransactionInterfaceType = "EwcWales"
)

// IntegrationTransactionImportStatus is the run-level status.
type IntegrationTransactionImportStatus string

const (
	IntegrationTransactionImportStatusInProgress IntegrationTransactionImportStatus = "InProgress"
	IntegrationTransactionImportStatusSuccess    IntegrationTransactionImportStatus = "Success"
	IntegrationTransactionImportStatusFailed     IntegrationTransactionImportStatus = "Failed"
)

// IntegrationTransactionRecordStatus is the row-level outcome.
type IntegrationTransactionRecordStatus string

const (
	IntegrationTransactionRecordStatusSuccess IntegrationTransactionRecordStatus = "Success"
	IntegrationTransactionRecordStatusFailure IntegrationTransactionRecordStatus = "Failure"
)

// IntegrationTransaction is the ledger header of one import run.
type IntegrationTransaction struct {
	ID             int64                               `db:"integration_transaction_id" json:"integrationTransactionId"`
	InterfaceType  IntegrationTransactionInterfaceType `db:"interface_type" json:"interfaceType"`
	ImportStatus   IntegrationTransactionImportStatus  `db:"import_status" json:"importStatus"`
	FileName       string                              `db:"file_name" json:"fileName"`
	TotalCount     int                                 `db:"total_count" json:"totalCount"`
	SuccessCount   int                                 `db:"success_count" json:"successCount"`
	FailureCount   int                                 `db:"failure_count" json:"failureCount"`
	DuplicateCount int                                 `db:"duplicate_count" json:"duplicateCount"`
	WarningCount   int                                 `db:"warning_count" json:"warningCount"`
	CreatedDate    time.Time                           `db:"created_date" json:"createdDate"`

	Records []IntegrationTransactionRecord `db:"-" json:"records,omitempty"`
}

// NewIntegrationTransaction starts a run header for fileName.
func NewIntegrationTransaction(fileName string, now time.Time) *IntegrationTransaction {
	return &IntegrationTransaction{
		InterfaceType: IntegrationTransactionInterfaceTypeEwcWales,
		ImportStatus:  IntegrationTransactionImportStatusInProgress,
		FileName:      fileName,
		CreatedDate:   now,
	}
}

// Tally folds one row outcome into the running counters.
func (t *IntegrationTransaction) Tally(record *IntegrationTransactionRecord) {
	t.TotalCount++
	switch record.Status {
	case IntegrationTransactionRecordStatusSuccess:
		t.SuccessCount++
	default:
		t.FailureCount++
	}
	if record.Duplicate {
		t.DuplicateCount++
	}
}

// IntegrationTransactionRecord is the ledger line written for every input row.
type IntegrationTransactionRecord struct {
	ID                       int64                              `db:"integration_transaction_record_id" json:"integrationTransactionRecordId"`
	IntegrationTransactionID int64                              `db:"integration_transaction_id" json:"integrationTransactionId"`
	RowData                  string                             `db:"row_data" json:"rowData"`
	Status                   IntegrationTransactionRecordStatus `db:"status" json:"status"`
	PersonID                 *string                            `db:"person_id" json:"personId,omitempty"`
	FailureMessage           *string                            `db:"failure_message" json:"failureMessage,omitempty"`
	Duplicate                bool                               `db:"duplicate" json:"duplicate"`
	HasActiveAlert           bool                               `db:"has_active_alert" json:"hasActiveAlert"`
	CreatedDate              time.Time                          `db:"created_date" json:"createdDate"`
}

// MaxListPage bounds ledger pagination so the row offset stays in range.
const MaxListPage = 100000

// IntegrationTransactionFilter narrows ledger listings.
type IntegrationTransactionFilter struct {
	ImportStatus IntegrationTransactionImportStatus
	FileName     string
	Page         int
	PageSize     int
}

// IntegrationTransactionRecordFilter narrows record listings.
type IntegrationTransactionRecordFilter struct {
	Status IntegrationTransactionRecordStatus
}

// ImportResult summarises one imported file.
type ImportResult struct {
	TotalCount               int    `json:"totalCount"`
	SuccessCount             int    `json:"successCount"`
	DuplicateCount           int    `json:"duplicateCount"`
	FailureCount             int    `json:"failureCount"`
	FailureMessage           string `json:"failureMessage,omitempty"`
	IntegrationTransactionID int64  `json:"integrationTransactionId"`
}

// ImportStats is the in-process counter snapshot served to operators.
type ImportStats struct {
	RequestsTotal     uint64     `json:"requestsTotal"`
	RowsSucceeded     uint64     `json:"rowsSucceeded"`
	RowsFailed        uint64     `json:"rowsFailed"`
	FilesProcessed    uint64     `json:"filesProcessed"`
	FilesFailed       uint64     `json:"filesFailed"`
	FilesUnrecognised uint64     `json:"filesUnrecognised"`
	Goroutines        int        `json:"goroutines"`
	LastFileAt        *time.Time `json:"lastFileAt,omitempty"`
	GeneratedAt       time.Time  `json:"generatedAt"`
}

// ImportFileOutcome reports what happened to one pickup file during a run.
type ImportFileOutcome struct {
	Key        string        `json:"key"`
	FileType   string        `json:"fileType,omitempty"`
	Result     *ImportResult `json:"result,omitempty"`
	ArchiveKey string        `json:"archiveKey,omitempty"`
	Skipped    bool          `json:"skipped"`
	Error      string        `json:"error,omitempty"`
}

// ImportRunSummary aggregates one pass over the pickup location.
type ImportRunSummary struct {
	RunID      string              `json:"runId"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Files      []ImportFileOutcome `json:"files"`
}
