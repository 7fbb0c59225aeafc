package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// WriteCSV serializes a table as RFC 4180 CSV.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses CSV into a table. The first record is the header. Rows
// may be ragged; missing trailing cells read as blank.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return Table{}, errors.New("empty file")
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}

	t := Table{Header: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row: %w", err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
