package dataset

import (
	"fmt"

	"github.com/chrissnell/forecastview/pkg/config"
	"go.uber.org/zap"
)

// NewLoader builds the loader described by the data source configuration.
func NewLoader(cfg config.DataSourceData, logger *zap.SugaredLogger) (Loader, error) {
	table := cfg.Table
	if table == "" {
		table = config.DefaultTable
	}

	switch cfg.Type {
	case config.DataSourceCSV:
		return NewCSVLoader(cfg.Path, logger), nil
	case config.DataSourceSQLite:
		return NewSQLiteLoader(cfg.Path, table, logger)
	case config.DataSourceTimescaleDB:
		return NewTimescaleLoader(cfg.ConnectionString, table, logger)
	}
	return nil, fmt.Errorf("unsupported data source type: %q", cfg.Type)
}
