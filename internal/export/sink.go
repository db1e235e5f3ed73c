// Package export persists accepted leads to a tabular file. The loop calls
// Append once per accepted lead, in acceptance order, and Finalize exactly
// once at run end.
package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"leadgrab/internal/lead"
)

// Sink receives accepted leads and writes the final file.
type Sink interface {
	// Append writes one lead together with the names of its missing
	// fields. Leads are transferred, not shared; the sink must not be
	// handed a lead twice.
	Append(l *lead.Lead, missing []string) error

	// Finalize flushes and closes the output file. It must be called
	// exactly once, including on early termination or cancellation.
	Finalize() error
}

// MissingColumn is the metadata column flagging which configured fields a
// partial lead was missing.
const MissingColumn = "missing_fields"

// Open creates the sink matching the output path's extension. CSV is the
// default for unrecognized extensions.
func Open(path string, columns []string) (Sink, error) {
	switch inferFormat(path) {
	case "xlsx":
		return NewXLSX(path, columns)
	default:
		return NewCSV(path, columns)
	}
}

func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return "xlsx"
	case ".csv":
		return "csv"
	default:
		return ""
	}
}

// row renders a lead into the configured column order, with the missing
// metadata column appended.
func row(l *lead.Lead, missing, columns []string) []string {
	out := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		out = append(out, l.Get(col))
	}
	out = append(out, strings.Join(missing, ","))
	return out
}

// header renders the column header row.
func header(columns []string) []string {
	out := append([]string{}, columns...)
	return append(out, MissingColumn)
}

// finalizeError wraps sink close failures so callers can surface them after
// best-effort completion of the run.
func finalizeError(path string, err error) error {
	return fmt.Errorf("failed to finalize output %s: %w", path, err)
}
