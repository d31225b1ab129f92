package importer

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
)

// OFXParser implements OFX/QFX statement parsing.
type OFXParser struct{}

// NewOFXParser creates a new OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *OFXParser) preprocessOFX(content string) string {
	// Trim any leading whitespace or blank lines before the header
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, func(match string) string {
		return strings.ToUpper(match)
	})

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// Parse parses an OFX/QFX stream and returns normalized records. OFX
// parsing fails wholesale rather than per row, so the skipped-row count
// is always zero.
func (p *OFXParser) Parse(reader io.Reader) ([]Record, int, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read OFX file: %w", err)
	}

	processedContent := p.preprocessOFX(string(content))

	resp, err := ofxgo.ParseResponse(strings.NewReader(processedContent))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var records []Record
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTx := range stmt.BankTranList.Transactions {
				records = append(records, p.mapOfxTransaction(ofxTx))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			for _, ofxTx := range stmt.BankTranList.Transactions {
				records = append(records, p.mapOfxTransaction(ofxTx))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(records),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return records, 0, nil
}

// mapOfxTransaction renames OFX fields into the canonical record shape.
// The bank transaction id (FITID) is preserved for exact dedup.
func (p *OFXParser) mapOfxTransaction(ofxTx ofxgo.Transaction) Record {
	amount, _ := ofxTx.TrnAmt.Float64()

	record := Record{
		SourceID:    strings.TrimSpace(string(ofxTx.FiTID)),
		Date:        ofxTx.DtPosted.Time.Format("2006-01-02"),
		Description: strings.TrimSpace(string(ofxTx.Name)),
		Memo:        strings.TrimSpace(string(ofxTx.Memo)),
		Reference:   strings.TrimSpace(string(ofxTx.CheckNum)),
	}

	if ofxTx.Payee != nil && ofxTx.Payee.Name != "" {
		record.Vendor = strings.TrimSpace(string(ofxTx.Payee.Name))
	}

	if amount >= 0 {
		record.Type = TypeCredit
		record.Amount = amount
	} else {
		record.Type = TypeDebit
		record.Amount = -amount
	}

	record.ImportID = GenerateImportID(record)
	return record
}
