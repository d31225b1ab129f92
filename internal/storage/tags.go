package storage

import (
	"context"
	"fmt"

	"github.com/centsible/centsible/internal/model"
)

// GetTags retrieves all tags ordered by name.
func (s *SQLiteStorage) GetTags(ctx context.Context) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// CreateTag creates a new tag.
func (s *SQLiteStorage) CreateTag(ctx context.Context, name string) (*model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get tag ID: %w", err)
	}
	return &model.Tag{ID: id, Name: name}, nil
}

// GetTransactionTagIDs retrieves the tag ids associated with a
// transaction, in ascending id order.
func (s *SQLiteStorage) GetTransactionTagIDs(ctx context.Context, txnID int64) ([]int64, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag_id FROM transaction_tags WHERE transaction_id = ? ORDER BY tag_id ASC
	`, txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tag id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction tags: %w", err)
	}
	return ids, nil
}

// SetTransactionTagIDs replaces a transaction's tag associations.
// The replacement is atomic: existing associations are cleared and the
// new set inserted in one database transaction.
func (s *SQLiteStorage) SetTransactionTagIDs(ctx context.Context, txnID int64, tagIDs []int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM transaction_tags WHERE transaction_id = ?`, txnID); err != nil {
		return fmt.Errorf("failed to clear transaction tags: %w", err)
	}

	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)`,
			txnID, tagID); err != nil {
			return fmt.Errorf("failed to set transaction tag %d: %w", tagID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction tags: %w", err)
	}
	return nil
}
