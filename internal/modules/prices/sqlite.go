package prices

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/aristath/blendopt/internal/database"
	"github.com/aristath/blendopt/pkg/logger"
	"github.com/rs/zerolog"
)

// SupplierPricesSchema creates the table read by SQLiteLoader. period is any
// monotonically increasing key (Unix timestamp, YYYYMM, sequence number).
const SupplierPricesSchema = `
	CREATE TABLE IF NOT EXISTS supplier_prices (
		period INTEGER PRIMARY KEY,
		price_a REAL NOT NULL,
		price_b REAL NOT NULL
	)
`

// SQLiteLoader reads aligned supplier prices from a SQLite price history database
type SQLiteLoader struct {
	path string
	log  zerolog.Logger
}

// NewSQLiteLoader creates a loader for the database file at path
func NewSQLiteLoader(path string, log zerolog.Logger) *SQLiteLoader {
	return &SQLiteLoader{
		path: path,
		log:  logger.Component(log, "sqlite_loader"),
	}
}

// Name returns the source URI
func (l *SQLiteLoader) Name() string { return "sqlite://" + l.path }

// Load opens the database read-only and returns every period in ascending order
func (l *SQLiteLoader) Load(ctx context.Context) (*Series, error) {
	db, err := database.New(database.Config{
		Path:    l.path,
		Profile: database.ProfileReadOnly,
		Name:    "history",
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceError{Source: l.Name(), Err: ErrSourceNotFound}
		}
		return nil, &SourceError{Source: l.Name(), Err: err}
	}
	defer db.Close()

	series, err := QuerySupplierPrices(ctx, db.Conn())
	if err != nil {
		return nil, &SourceError{Source: l.Name(), Err: err}
	}

	l.log.Debug().Int("periods", series.Len()).Msg("Loaded supplier prices")
	return series, nil
}

// QuerySupplierPrices reads the supplier_prices table ordered by period
func QuerySupplierPrices(ctx context.Context, db *sql.DB) (*Series, error) {
	query := `
		SELECT price_a, price_b
		FROM supplier_prices
		ORDER BY period ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query supplier prices: %w", err)
	}
	defer rows.Close()

	series := &Series{}
	for rows.Next() {
		var a, b float64
		if err := rows.Scan(&a, &b); err != nil {
			return nil, fmt.Errorf("failed to scan supplier price: %w", err)
		}
		series.A = append(series.A, a)
		series.B = append(series.B, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating supplier prices: %w", err)
	}

	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}
