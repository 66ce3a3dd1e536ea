// Package output writes the mapping table consumed downstream.
//
// The table is CSV with a header row and exactly these columns, in order:
// company_id, company_name, tsx_code, goldstock_id, goldstock_name,
// match_status, confidence_score, match_method. Absent values are written as
// empty cells. The file is rewritten in full on every write.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"goldmap/internal/company"
	"goldmap/internal/fileutil"
)

// Columns is the header row.
var Columns = []string{
	"company_id",
	"company_name",
	"tsx_code",
	"goldstock_id",
	"goldstock_name",
	"match_status",
	"confidence_score",
	"match_method",
}

// Write encodes mappings as CSV to w.
func Write(w io.Writer, mappings []company.Mapping) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, m := range mappings {
		if err := writer.Write(Row(m)); err != nil {
			return fmt.Errorf("write company %d: %w", m.CompanyID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSV atomically replaces the file at path with the mapping table.
func WriteCSV(path string, mappings []company.Mapping) error {
	var buf bytes.Buffer
	if err := Write(&buf, mappings); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write mappings: %w", err)
	}
	return nil
}

// Row renders one mapping in column order.
func Row(m company.Mapping) []string {
	return []string{
		strconv.Itoa(m.CompanyID),
		m.CompanyName,
		deref(m.TSXCode),
		deref(m.ExternalID),
		deref(m.ExternalName),
		string(m.Status),
		FormatConfidence(m.Confidence),
		string(m.Method),
	}
}

// FormatConfidence renders a score without trailing zeros: 100, 78, 0, 87.5.
func FormatConfidence(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
