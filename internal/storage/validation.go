package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/model"
)

// Validation errors. Lookup failures share the application-wide
// sentinels so callers can errors.Is against either package.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrInvalidTxn     = errors.New("invalid transaction")
	ErrNotFound       = common.ErrNotFound
	ErrDuplicateEntry = common.ErrDuplicateEntry
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ImportID == "" {
		return fmt.Errorf("%w: missing import id", ErrInvalidTxn)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTxn)
	}
	if txn.Type != model.TypeIncome && txn.Type != model.TypeExpense {
		return fmt.Errorf("%w: type must be income or expense", ErrInvalidTxn)
	}
	if txn.AccountID == 0 {
		return fmt.Errorf("%w: missing account", ErrInvalidTxn)
	}
	return nil
}

// validateRule validates a rule before persistence.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := validateString(rule.Name, "name"); err != nil {
		return err
	}
	if err := validateString(rule.Criteria, "criteria"); err != nil {
		return err
	}
	if err := validateString(rule.Actions, "actions"); err != nil {
		return err
	}
	if rule.SchemaVersion != model.SchemaVersionLegacy && rule.SchemaVersion != model.SchemaVersionTree {
		return fmt.Errorf("%w: unsupported schema version %d", ErrInvalidRule, rule.SchemaVersion)
	}
	return nil
}
