package importer

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/centsible/centsible/internal/common"
)

var errMissingQIFDate = common.NewValidationError("date", "QIF block has no date line")

// QIFParser parses Quicken Interchange Format statements. QIF is a
// line-oriented format: each line carries a one-letter field code, and
// a caret terminates the transaction block.
type QIFParser struct{}

// NewQIFParser creates a new QIF parser.
func NewQIFParser() *QIFParser {
	return &QIFParser{}
}

// Parse reads a QIF stream and returns normalized records. Blocks that
// fail normalization are counted and logged but do not abort the file.
func (p *QIFParser) Parse(reader io.Reader) ([]Record, int, error) {
	scanner := bufio.NewScanner(reader)

	var records []Record
	failures := 0
	fields := map[string]string{}

	flush := func() {
		if len(fields) == 0 {
			return
		}
		record, err := mapQifTransaction(fields)
		fields = map[string]string{}
		if err != nil {
			slog.Warn("skipping unusable QIF block", "error", err)
			failures++
			return
		}
		records = append(records, record)
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if line == "^" {
			flush()
			continue
		}
		code := line[:1]
		fields[code] = strings.TrimSpace(line[1:])
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, failures, err
	}
	return records, failures, nil
}

// mapQifTransaction renames QIF field codes into the canonical record
// shape. The L (category) field is carried as a hint only; rules, not
// the statement, decide categorization.
func mapQifTransaction(fields map[string]string) (Record, error) {
	rawDate := fields["D"]
	if rawDate == "" {
		return Record{}, errMissingQIFDate
	}
	date, err := NormalizeDate(rawDate)
	if err != nil {
		return Record{}, err
	}

	amount, err := ParseAmount(fields["T"])
	if err != nil {
		return Record{}, err
	}

	record := Record{
		Date:         date,
		Description:  fields["P"],
		Memo:         fields["M"],
		Reference:    fields["N"],
		CategoryHint: fields["L"],
	}
	if amount >= 0 {
		record.Type = TypeCredit
		record.Amount = amount
	} else {
		record.Type = TypeDebit
		record.Amount = -amount
	}
	record.ImportID = GenerateImportID(record)
	return record, nil
}
