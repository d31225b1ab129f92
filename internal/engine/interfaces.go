package engine

import (
	"io"

	"github.com/centsible/centsible/internal/importer"
)

// Parser converts a source statement stream into normalized records.
// The int result is the number of rows skipped because they could not
// be normalized.
type Parser interface {
	Parse(reader io.Reader) ([]importer.Record, int, error)
}
