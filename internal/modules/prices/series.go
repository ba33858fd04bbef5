// Package prices loads the two aligned supplier price series the blend
// optimizer works on, from CSV files, SQLite price history or S3 objects.
package prices

import (
	"context"
	"errors"
	"fmt"
)

// Canonical CSV column names
const (
	ColumnSupplierA = "price_supplier_a_dollars_per_item"
	ColumnSupplierB = "price_supplier_b_dollars_per_item"
)

var (
	// ErrSourceNotFound is returned when the file, database or object does not exist
	ErrSourceNotFound = errors.New("price source not found")
	// ErrMissingColumn is returned when a required CSV column is absent
	ErrMissingColumn = errors.New("missing price column")
	// ErrNoRows is returned when the source holds a header but no observations
	ErrNoRows = errors.New("no price observations")
	// ErrLengthMismatch is returned by Series.Validate for misaligned series
	ErrLengthMismatch = errors.New("price series length mismatch")
)

// ParseError describes a value that could not be read as a price
type ParseError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d, column %s: cannot parse %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SourceError ties a loader failure to the source it came from
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Series holds per-period unit prices of supplier A and B. Index i of both
// slices refers to the same period.
type Series struct {
	A []float64
	B []float64
}

// Len returns the number of periods
func (s *Series) Len() int { return len(s.A) }

// Validate checks that both series are non-empty and aligned
func (s *Series) Validate() error {
	if len(s.A) == 0 || len(s.B) == 0 {
		return ErrNoRows
	}
	if len(s.A) != len(s.B) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(s.A), len(s.B))
	}
	return nil
}

// Loader produces a validated Series
type Loader interface {
	Load(ctx context.Context) (*Series, error)
	// Name identifies the source in logs and error messages
	Name() string
}
