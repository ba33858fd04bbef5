package prices

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// ParseCSV reads a header row followed by observations. Only the two
// canonical supplier columns are used; any other column is ignored.
func ParseCSV(r io.Reader) (*Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	colA, colB := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case ColumnSupplierA:
			colA = i
		case ColumnSupplierB:
			colB = i
		}
	}
	if colA < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnSupplierA)
	}
	if colB < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnSupplierB)
	}

	series := &Series{}
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", row, err)
		}

		a, err := parseField(record, colA, row, ColumnSupplierA)
		if err != nil {
			return nil, err
		}
		b, err := parseField(record, colB, row, ColumnSupplierB)
		if err != nil {
			return nil, err
		}

		series.A = append(series.A, a)
		series.B = append(series.B, b)
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

func parseField(record []string, col, row int, name string) (float64, error) {
	if col >= len(record) {
		return 0, &ParseError{Row: row, Column: name, Err: errors.New("field missing")}
	}
	raw := strings.TrimSpace(record[col])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseError{Row: row, Column: name, Value: raw, Err: err}
	}
	return v, nil
}

// CSVLoader reads a local CSV file
type CSVLoader struct {
	path string
}

// NewCSVLoader creates a loader for the CSV file at path
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{path: path}
}

// Name returns the file path
func (l *CSVLoader) Name() string { return l.path }

// Load opens and parses the file
func (l *CSVLoader) Load(ctx context.Context) (*Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceError{Source: l.path, Err: ErrSourceNotFound}
		}
		return nil, &SourceError{Source: l.path, Err: err}
	}
	defer f.Close()

	series, err := ParseCSV(f)
	if err != nil {
		return nil, &SourceError{Source: l.path, Err: err}
	}
	return series, nil
}
