package storage

import (
	"context"
	"fmt"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/rules"
)

// RuleGateways adapts SQLiteStorage to the lookup interfaces the rule
// applicator needs. The userID parameter is accepted for interface
// compatibility and ignored: a database file holds a single household.
type RuleGateways struct {
	store *SQLiteStorage
}

// NewRuleGateways creates gateway adapters over the given storage.
func NewRuleGateways(store *SQLiteStorage) *RuleGateways {
	return &RuleGateways{store: store}
}

var (
	_ rules.CategoryGateway = (*RuleGateways)(nil)
	_ rules.AccountGateway  = (*RuleGateways)(nil)
	_ rules.TagGateway      = (*RuleGateways)(nil)
)

// FindCategory implements rules.CategoryGateway.
func (g *RuleGateways) FindCategory(ctx context.Context, id int64, _ int64) (*model.Category, error) {
	return g.store.GetCategoryByID(ctx, id)
}

// FindAccount implements rules.AccountGateway.
func (g *RuleGateways) FindAccount(ctx context.Context, id int64, _ int64) (*model.Account, error) {
	return g.store.GetAccountByID(ctx, id)
}

// GetTransactionTags implements rules.TagGateway.
func (g *RuleGateways) GetTransactionTags(ctx context.Context, txnID int64, _ int64) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := g.store.db.QueryContext(ctx, `
		SELECT t.id, t.name
		FROM tags t
		JOIN transaction_tags tt ON tt.tag_id = t.id
		WHERE tt.transaction_id = ?
		ORDER BY t.id ASC
	`, txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction tags: %w", err)
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
		return nil, fmt.Errorf("error iterating transaction tags: %w", err)
	}
	return tags, nil
}

// SetTransactionTags implements rules.TagGateway.
func (g *RuleGateways) SetTransactionTags(ctx context.Context, txnID int64, _ int64, tagIDs []int64) error {
	return g.store.SetTransactionTagIDs(ctx, txnID, tagIDs)
}
