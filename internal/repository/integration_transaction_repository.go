package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

const integrationTransactionColumns = `integration_transaction_id, interface_type, import_status, file_name,
       total_count, success_count, failure_count, duplicate_count, warning_count, created_date`

const integrationTransactionRecordColumns = `integration_transaction_record_id, integration_transaction_id, row_data, status,
       person_id, failure_message, duplicate, has_active_alert, created_date`

// IntegrationTransactionRepository persists the import ledger.
type IntegrationTransactionRepository struct {
	db sqlx.ExtContext
}

// NewIntegrationTransactionRepository constructs the repository on a pool or a transaction.
func NewIntegrationTransactionRepository(db sqlx.ExtContext) *IntegrationTransactionRepository {
	return &IntegrationTransactionRepository{db: db}
}

// CreateTransaction inserts a ledger header and sets its generated id.
func (r *IntegrationTransactionRepository) CreateTransaction(ctx context.Context, it *models.IntegrationTransaction) error {
	if it.CreatedDate.IsZero() {
		it.CreatedDate = time.Now().UTC()
	}
	const query = `INSERT INTO integration_transactions
	(interface_type, import_status, file_name, total_count, success_count, failure_count, duplicate_count, warning_count, created_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING integration_transaction_id`
	err := r.db.QueryRowxContext(ctx, query,
		it.InterfaceType, it.ImportStatus, it.FileName,
		it.TotalCount, it.SuccessCount, it.FailureCount, it.DuplicateCount, it.WarningCount,
		it.CreatedDate,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("create integration transaction: %w", err)
	}
	return nil
}

// UpdateTransactionCounts writes the running counters and status of a header.
func (r *IntegrationTransactionRepository) UpdateTransactionCounts(ctx context.Context, it *models.IntegrationTransaction) error {
	const query = `UPDATE integration_transactions SET import_status = $2, total_count = $3, success_count = $4,
       failure_count = $5, duplicate_count = $6, warning_count = $7
	WHERE integration_transaction_id = $1`
	if _, err := r.db.ExecContext(ctx, query,
		it.ID, it.ImportStatus, it.TotalCount, it.SuccessCount, it.FailureCount, it.DuplicateCount, it.WarningCount,
	); err != nil {
		return fmt.Errorf("update integration transaction counts: %w", err)
	}
	return nil
}

// CreateTransactionRecord appends one ledger line and sets its generated id.
func (r *IntegrationTransactionRepository) CreateTransactionRecord(ctx context.Context, record *models.IntegrationTransactionRecord) error {
	if record.CreatedDate.IsZero() {
		record.CreatedDate = time.Now().UTC()
	}
	const query = `INSERT INTO integration_transaction_records
	(integration_transaction_id, row_data, status, person_id, failure_message, duplicate, has_active_alert, created_date)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING integration_transaction_record_id`
	err := r.db.QueryRowxContext(ctx, query,
		record.IntegrationTransactionID, record.RowData, record.Status, record.PersonID,
		record.FailureMessage, record.Duplicate, record.HasActiveAlert, record.CreatedDate,
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("create integration transaction record: %w", err)
	}
	return nil
}

// GetTransaction fetches one header. sql.ErrNoRows is returned unwrapped.
func (r *IntegrationTransactionRepository) GetTransaction(ctx context.Context, id int64) (*models.IntegrationTransaction, error) {
	query := `SELECT ` + integrationTransactionColumns + ` FROM integration_transactions WHERE integration_transaction_id = $1`
	var it models.IntegrationTransaction
	if err := sqlx.GetContext(ctx, r.db, &it, query, id); err != nil {
		return nil, err
	}
	return &it, nil
}

// ListTransactions returns one page of headers, newest first, plus the total match count.
func (r *IntegrationTransactionRepository) ListTransactions(ctx context.Context, filter models.IntegrationTransactionFilter) ([]models.IntegrationTransaction, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.ImportStatus != "" {
		args = append(args, filter.ImportStatus)
		conditions = append(conditions, fmt.Sprintf("import_status = $%d", len(args)))
	}
	if filter.FileName != "" {
		args = append(args, "%"+filter.FileName+"%")
		conditions = append(conditions, fmt.Sprintf("file_name ILIKE $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM integration_transactions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count integration transactions: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	if page > models.MaxListPage {
		page = models.MaxListPage
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM integration_transactions%s ORDER BY created_date DESC LIMIT %d OFFSET %d`,
		integrationTransactionColumns, where, size, (page-1)*size)

	var items []models.IntegrationTransaction
	if err := sqlx.SelectContext(ctx, r.db, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list integration transactions: %w", err)
	}
	return items, total, nil
}

// ListTransactionRecords returns the ledger lines of a header in insertion order.
func (r *IntegrationTransactionRepository) ListTransactionRecords(ctx context.Context, id int64, filter models.IntegrationTransactionRecordFilter) ([]models.IntegrationTransactionRecord, error) {
	args := []interface{}{id}
	query := `SELECT ` + integrationTransactionRecordColumns + ` FROM integration_transaction_records WHERE integration_transaction_id = $1`
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $2"
	}
	query += " ORDER BY integration_transaction_record_id"

	var records []models.IntegrationTransactionRecord
	if err := sqlx.SelectContext(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list integration transaction records: %w", err)
	}
	return records, nil
}
