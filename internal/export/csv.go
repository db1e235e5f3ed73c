package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"leadgrab/internal/lead"
)

// CSV streams leads to a CSV file, header first.
type CSV struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	columns []string
	closed  bool
}

// NewCSV opens the output file and writes the header row.
func NewCSV(path string, columns []string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header(columns)); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return &CSV{path: path, file: f, writer: w, columns: columns}, nil
}

// Append writes one lead row.
func (s *CSV) Append(l *lead.Lead, missing []string) error {
	if err := s.writer.Write(row(l, missing, s.columns)); err != nil {
		return fmt.Errorf("failed to append lead: %w", err)
	}
	return nil
}

// Finalize flushes buffered rows and closes the file.
func (s *CSV) Finalize() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return finalizeError(s.path, err)
	}
	if err := s.file.Close(); err != nil {
		return finalizeError(s.path, err)
	}
	return nil
}
