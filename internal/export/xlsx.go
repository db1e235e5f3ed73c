package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"leadgrab/internal/lead"
)

const xlsxSheet = "Leads"

// XLSX collects leads into a spreadsheet and writes the file on Finalize.
type XLSX struct {
	path    string
	file    *excelize.File
	columns []string
	nextRow int
	closed  bool
}

// NewXLSX prepares a workbook with a header row.
func NewXLSX(path string, columns []string) (*XLSX, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	s := &XLSX{path: path, file: f, columns: columns, nextRow: 1}
	if err := s.writeRow(header(columns)); err != nil {
		return nil, err
	}
	return s, nil
}

// Append adds one lead row to the workbook.
func (s *XLSX) Append(l *lead.Lead, missing []string) error {
	return s.writeRow(row(l, missing, s.columns))
}

// Finalize saves the workbook. Write failures (unwritable path, full disk)
// surface here, after the in-memory run completed.
func (s *XLSX) Finalize() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.file.SaveAs(s.path); err != nil {
		s.file.Close()
		return finalizeError(s.path, err)
	}
	return s.file.Close()
}

func (s *XLSX) writeRow(values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, s.nextRow)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", s.nextRow, err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := s.file.SetSheetRow(xlsxSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", s.nextRow, err)
	}
	s.nextRow++
	return nil
}
