package config

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS configs (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS data_sources (
	config_id         INTEGER PRIMARY KEY REFERENCES configs(id) ON DELETE CASCADE,
	type              TEXT NOT NULL,
	path              TEXT,
	table_name        TEXT,
	connection_string TEXT,
	refresh_schedule  TEXT,
	reload_on_request INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS rest_servers (
	config_id     INTEGER PRIMARY KEY REFERENCES configs(id) ON DELETE CASCADE,
	listen_addr   TEXT,
	http_port     INTEGER,
	tls_cert_path TEXT,
	tls_key_path  TEXT,
	page_title    TEXT
);
`

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider, creating
// the configuration tables if they do not exist yet
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create configuration schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	data, err := s.GetDataSource()
	if err != nil {
		return nil, fmt.Errorf("failed to load data source: %w", err)
	}
	config.Data = *data

	rest, err := s.GetRESTServer()
	if err != nil {
		return nil, fmt.Errorf("failed to load REST server config: %w", err)
	}
	config.REST = *rest

	return config, nil
}

// GetDataSource returns the data source configuration from the database
func (s *SQLiteProvider) GetDataSource() (*DataSourceData, error) {
	query := `
		SELECT type, path, table_name, connection_string, refresh_schedule, reload_on_request
		FROM data_sources
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var (
		data                                  DataSourceData
		path, table, connStr, refreshSchedule sql.NullString
	)
	err := s.db.QueryRow(query).Scan(&data.Type, &path, &table, &connStr, &refreshSchedule, &data.ReloadOnRequest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no data source configured")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query data source: %w", err)
	}

	data.Path = path.String
	data.Table = table.String
	data.ConnectionString = connStr.String
	data.RefreshSchedule = refreshSchedule.String

	return &data, nil
}

// GetRESTServer returns the REST server configuration. A missing row is
// not an error; the server falls back to its defaults.
func (s *SQLiteProvider) GetRESTServer() (*RESTServerData, error) {
	query := `
		SELECT listen_addr, http_port, tls_cert_path, tls_key_path, page_title
		FROM rest_servers
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default')
	`

	var (
		rest                             RESTServerData
		listenAddr, cert, key, pageTitle sql.NullString
		port                             sql.NullInt64
	)
	err := s.db.QueryRow(query).Scan(&listenAddr, &port, &cert, &key, &pageTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return &rest, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query REST server config: %w", err)
	}

	rest.ListenAddr = listenAddr.String
	rest.HTTPPort = int(port.Int64)
	rest.TLSCertPath = cert.String
	rest.TLSKeyPath = key.String
	rest.PageTitle = pageTitle.String

	return &rest, nil
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return err
	}

	d := configData.Data
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO data_sources
			(config_id, type, path, table_name, connection_string, refresh_schedule, reload_on_request)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		configID, d.Type, nullString(d.Path), nullString(d.Table), nullString(d.ConnectionString),
		nullString(d.RefreshSchedule), d.ReloadOnRequest)
	if err != nil {
		return fmt.Errorf("failed to save data source: %w", err)
	}

	r := configData.REST
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO rest_servers
			(config_id, listen_addr, http_port, tls_cert_path, tls_key_path, page_title)
		VALUES (?, ?, ?, ?, ?, ?)`,
		configID, nullString(r.ListenAddr), r.HTTPPort, nullString(r.TLSCertPath),
		nullString(r.TLSKeyPath), nullString(r.PageTitle))
	if err != nil {
		return fmt.Errorf("failed to save REST server config: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteProvider) getOrCreateConfigID(tx *sql.Tx) (int64, error) {
	if _, err := tx.Exec(`INSERT OR IGNORE INTO configs (name) VALUES ('default')`); err != nil {
		return 0, fmt.Errorf("failed to create default config: %w", err)
	}

	var id int64
	if err := tx.QueryRow(`SELECT id FROM configs WHERE name = 'default'`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get config ID: %w", err)
	}
	return id, nil
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
