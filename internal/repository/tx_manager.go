package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxManager opens the database transaction that spans one import file.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs the manager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// ImportTx exposes every repository bound to a single ReadCommitted transaction.
type ImportTx struct {
	*PersonRepository
	*RouteRepository
	*IntegrationTransactionRepository
	*EventRepository

	tx *sqlx.Tx
}

// BeginImport starts the transaction.
func (m *TxManager) BeginImport(ctx context.Context) (*ImportTx, error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	return &ImportTx{
		PersonRepository:                 NewPersonRepository(tx),
		RouteRepository:                  NewRouteRepository(tx),
		IntegrationTransactionRepository: NewIntegrationTransactionRepository(tx),
		EventRepository:                  NewEventRepository(tx),
		tx:                               tx,
	}, nil
}

// Commit commits the transaction.
func (t *ImportTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. Calling it after Commit is a no-op.
func (t *ImportTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return fmt.Errorf("rollback import transaction: %w", err)
	}
	return nil
}

const rowSavepoint = "ewc_row"

// SavepointRow marks the start of one row's writes.
func (t *ImportTx) SavepointRow(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+rowSavepoint); err != nil {
		return fmt.Errorf("create row savepoint: %w", err)
	}
	return nil
}

// ReleaseRow keeps the row's writes.
func (t *ImportTx) ReleaseRow(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+rowSavepoint); err != nil {
		return fmt.Errorf("release row savepoint: %w", err)
	}
	return nil
}

// RollbackRow discards the row's writes and clears an aborted transaction state.
func (t *ImportTx) RollbackRow(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+rowSavepoint); err != nil {
		return fmt.Errorf("rollback row savepoint: %w", err)
	}
	return nil
}
