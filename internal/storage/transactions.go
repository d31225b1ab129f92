package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/service"
)

const transactionColumns = `id, import_id, date, amount, type, description,
	COALESCE(vendor, ''), COALESCE(notes, ''), COALESCE(reference, ''),
	category_id, account_id`

// SaveTransaction inserts a new transaction, or updates it in place when
// it already has a persisted id.
func (s *SQLiteStorage) SaveTransaction(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransaction(txn); err != nil {
		return err
	}

	if txn.ID != 0 {
		return s.updateTransaction(ctx, txn)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (import_id, date, amount, type, description, vendor, notes, reference, category_id, account_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ImportID, txn.Date, txn.Amount, txn.Type, txn.Description,
		txn.Vendor, txn.Notes, txn.Reference, nullableID(txn.CategoryID), txn.AccountID)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction ID: %w", err)
	}
	txn.ID = id

	return nil
}

func (s *SQLiteStorage) updateTransaction(ctx context.Context, txn *model.Transaction) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			date = ?, amount = ?, type = ?, description = ?, vendor = ?,
			notes = ?, reference = ?, category_id = ?, account_id = ?
		WHERE id = ?
	`, txn.Date, txn.Amount, txn.Type, txn.Description, txn.Vendor,
		txn.Notes, txn.Reference, nullableID(txn.CategoryID), txn.AccountID, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("transaction %d: %w", txn.ID, ErrNotFound)
	}
	return nil
}

// GetTransactionByImportID looks up a transaction by its deduplication
// key. Returns ErrNotFound when no import with that key exists.
func (s *SQLiteStorage) GetTransactionByImportID(ctx context.Context, importID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(importID, "importID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE import_id = ?`, importID)
	return scanTransaction(row)
}

// GetTransactionByID retrieves a transaction by its persisted id.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// GetTransactions retrieves transactions matching the filter, newest
// first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE 1=1`
	var args []any

	if filter.StartDate != nil {
		query += ` AND date >= ?`
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.EndDate)
	}
	if filter.AccountID != 0 {
		query += ` AND account_id = ?`
		args = append(args, filter.AccountID)
	}

	query += ` ORDER BY date DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransactionRow(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, *txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row *sql.Row) (*model.Transaction, error) {
	txn, err := scanTransactionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction: %w", ErrNotFound)
		}
		return nil, err
	}
	return txn, nil
}

func scanTransactionRow(scanner rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var categoryID sql.NullInt64

	err := scanner.Scan(
		&txn.ID, &txn.ImportID, &txn.Date, &txn.Amount, &txn.Type,
		&txn.Description, &txn.Vendor, &txn.Notes, &txn.Reference,
		&categoryID, &txn.AccountID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if categoryID.Valid {
		txn.CategoryID = &categoryID.Int64
	}
	return &txn, nil
}

// nullableID converts an optional entity id to a sql value.
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
