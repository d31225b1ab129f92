package rules

import (
	"context"

	"github.com/centsible/centsible/internal/model"
)

// CategoryGateway resolves category references before an action may set
// them on a transaction.
type CategoryGateway interface {
	FindCategory(ctx context.Context, id int64, userID int64) (*model.Category, error)
}

// AccountGateway resolves account references before an action may set
// them on a transaction.
type AccountGateway interface {
	FindAccount(ctx context.Context, id int64, userID int64) (*model.Account, error)
}

// TagGateway reads and writes the tag associations of a persisted
// transaction.
type TagGateway interface {
	GetTransactionTags(ctx context.Context, txnID int64, userID int64) ([]model.Tag, error)
	SetTransactionTags(ctx context.Context, txnID int64, userID int64, tagIDs []int64) error
}
