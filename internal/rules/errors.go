package rules

import "fmt"

// MatchErrorKind classifies why an evaluation failed internally.
type MatchErrorKind string

// Match error kinds. Structural and depth errors abort the whole tree;
// value errors degrade a single condition to false and are only logged.
const (
	ErrKindStructure MatchErrorKind = "structure"
	ErrKindDepth     MatchErrorKind = "depth"
	ErrKindValue     MatchErrorKind = "value"
)

// MatchError is the internal evaluation error type. It never escapes the
// public Evaluate boundary, which collapses every failure to false.
type MatchError struct {
	Kind      MatchErrorKind
	Field     string
	MatchType string
	Message   string
}

func (e *MatchError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s error on %s/%s: %s", e.Kind, e.Field, e.MatchType, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func structureErr(format string, args ...any) *MatchError {
	return &MatchError{Kind: ErrKindStructure, Message: fmt.Sprintf(format, args...)}
}

func depthErr(depth int) *MatchError {
	return &MatchError{
		Kind:    ErrKindDepth,
		Message: fmt.Sprintf("criteria tree exceeds maximum depth %d (at depth %d)", MaxCriteriaDepth, depth),
	}
}
