// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/centsible/centsible/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID int64
	Limit     int
	Offset    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Transaction operations
	SaveTransaction(ctx context.Context, txn *model.Transaction) error
	GetTransactionByImportID(ctx context.Context, importID string) (*model.Transaction, error)
	GetTransactionByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)

	// Account operations
	GetAccounts(ctx context.Context) ([]model.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	CreateAccount(ctx context.Context, name, accountType, institution string) (*model.Account, error)

	// Tag operations
	GetTags(ctx context.Context) ([]model.Tag, error)
	CreateTag(ctx context.Context, name string) (*model.Tag, error)
	GetTransactionTagIDs(ctx context.Context, txnID int64) ([]int64, error)
	SetTransactionTagIDs(ctx context.Context, txnID int64, tagIDs []int64) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
