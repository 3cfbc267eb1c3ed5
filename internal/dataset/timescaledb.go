package dataset

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/forecastview/internal/forecast"
	"github.com/chrissnell/forecastview/internal/log"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TimescaleLoader reads records from a PostgreSQL or TimescaleDB table,
// ordered by timestamp.
type TimescaleLoader struct {
	connectionString string
	table            string

	mu     sync.Mutex
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// NewTimescaleLoader creates a loader for table. The connection is opened
// lazily on the first Load.
func NewTimescaleLoader(connectionString, table string, logger *zap.SugaredLogger) (*TimescaleLoader, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("a connection string is required for the timescaledb data source")
	}
	if err := validateTable(table); err != nil {
		return nil, err
	}
	return &TimescaleLoader{
		connectionString: connectionString,
		table:            table,
		logger:           logger,
	}, nil
}

// Describe implements Loader. The connection string is left out because it
// usually carries credentials.
func (l *TimescaleLoader) Describe() string {
	return "timescaledb:" + l.table
}

func (l *TimescaleLoader) connect() (*gorm.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		return l.db, nil
	}

	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	l.logger.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(l.connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		l.logger.Warnf("unable to create a TimescaleDB connection: %v", err)
		return nil, err
	}
	l.logger.Info("TimescaleDB connection successful")

	l.db = db
	return db, nil
}

// Load implements Loader. It is safe for concurrent use.
func (l *TimescaleLoader) Load(ctx context.Context) (*forecast.Dataset, error) {
	db, err := l.connect()
	if err != nil {
		return nil, &DataLoadError{Source: l.Describe(), Err: err}
	}

	rows, err := db.WithContext(ctx).
		Table(l.table).
		Select(selectColumns()).
		Order(ColumnTimestamp).
		Rows()
	if err != nil {
		return nil, &DataLoadError{Source: l.Describe(), Err: fmt.Errorf("failed to query forecasts: %w", err)}
	}

	records, err := scanRecords(ctx, l.Describe(), rows)
	if err != nil {
		return nil, err
	}

	l.logger.Debugw("loaded forecasts from TimescaleDB", "table", l.table, "records", len(records))
	return forecast.NewDataset(records), nil
}

// Close releases the database connection, if one was opened.
func (l *TimescaleLoader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	l.db = nil
	return sqlDB.Close()
}
