package dataset

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chrissnell/forecastview/internal/forecast"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteLoader reads records from a table in a SQLite database file. Rows
// are returned in insertion (rowid) order.
type SQLiteLoader struct {
	dbPath string
	table  string
	logger *zap.SugaredLogger
}

// NewSQLiteLoader creates a loader for table in the SQLite file at dbPath.
func NewSQLiteLoader(dbPath, table string, logger *zap.SugaredLogger) (*SQLiteLoader, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &SQLiteLoader{
		dbPath: dbPath,
		table:  table,
		logger: logger,
	}, nil
}

// Describe implements Loader.
func (l *SQLiteLoader) Describe() string {
	return fmt.Sprintf("sqlite:%s#%s", l.dbPath, l.table)
}

// Load implements Loader.
func (l *SQLiteLoader) Load(ctx context.Context) (*forecast.Dataset, error) {
	db, err := sql.Open("sqlite", l.dbPath)
	if err != nil {
		return nil, &DataLoadError{Source: l.Describe(), Err: fmt.Errorf("failed to open SQLite database: %w", err)}
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, &DataLoadError{Source: l.Describe(), Err: fmt.Errorf("failed to ping SQLite database: %w", err)}
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", selectColumns(), l.table)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, &DataLoadError{Source: l.Describe(), Err: fmt.Errorf("failed to query forecasts: %w", err)}
	}

	records, err := scanRecords(ctx, l.Describe(), rows)
	if err != nil {
		return nil, err
	}

	l.logger.Debugw("loaded forecasts from SQLite", "db", l.dbPath, "table", l.table, "records", len(records))
	return forecast.NewDataset(records), nil
}
