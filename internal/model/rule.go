package model

import "time"

// Rule schema versions.
const (
	// SchemaVersionLegacy rules carry a flat single-condition criteria and
	// a fixed {categoryId, vendor, notes} action record. Supported
	// indefinitely for rules created before the tree format existed.
	SchemaVersionLegacy = 1
	// SchemaVersionTree rules carry a boolean criteria tree and a
	// multi-action list.
	SchemaVersionTree = 2
)

// Rule is a user-defined criteria+actions pair applied during transaction
// import. Criteria and Actions are stored as opaque blobs; the rules
// package interprets them according to SchemaVersion.
type Rule struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Name           string
	Criteria       string
	Actions        string
	StopProcessing *bool
	ID             int64
	Priority       int
	SchemaVersion  int
	IsActive       bool
}

// ShouldStop reports whether rule processing halts after this rule
// applies. Absent flags default to true: legacy rules always stop.
func (r *Rule) ShouldStop() bool {
	if r.StopProcessing == nil {
		return true
	}
	return *r.StopProcessing
}
