package config

import "fmt"

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetDataSource() (*DataSourceData, error)
	GetRESTServer() (*RESTServerData, error)

	IsReadOnly() bool
	Close() error
}

// Supported data source types
const (
	DataSourceCSV         = "csv"
	DataSourceSQLite      = "sqlite"
	DataSourceTimescaleDB = "timescaledb"
)

// DefaultTable is the table read by the database data sources when none is configured
const DefaultTable = "forecasts"

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Data DataSourceData `json:"data"`
	REST RESTServerData `json:"rest,omitempty"`
}

// DataSourceData describes where the forecast dataset comes from and how
// often it is reloaded
type DataSourceData struct {
	Type             string `json:"type"`
	Path             string `json:"path,omitempty"`
	Table            string `json:"table,omitempty"`
	ConnectionString string `json:"connection_string,omitempty"`
	// RefreshSchedule is a cron expression; empty disables scheduled reloads
	RefreshSchedule string `json:"refresh_schedule,omitempty"`
	ReloadOnRequest bool   `json:"reload_on_request,omitempty"`
}

// RESTServerData holds the dashboard HTTP server settings
type RESTServerData struct {
	ListenAddr  string `json:"listen_addr,omitempty"`
	HTTPPort    int    `json:"http_port,omitempty"`
	TLSCertPath string `json:"tls_cert_path,omitempty"`
	TLSKeyPath  string `json:"tls_key_path,omitempty"`
	PageTitle   string `json:"page_title,omitempty"`
}

// Validate checks that the configuration names a usable data source
func (c *ConfigData) Validate() error {
	d := c.Data
	switch d.Type {
	case DataSourceCSV:
		if d.Path == "" {
			return fmt.Errorf("data.path is required for the csv data source")
		}
	case DataSourceSQLite:
		if d.Path == "" {
			return fmt.Errorf("data.path is required for the sqlite data source")
		}
	case DataSourceTimescaleDB:
		if d.ConnectionString == "" {
			return fmt.Errorf("data.connection_string is required for the timescaledb data source")
		}
	case "":
		return fmt.Errorf("data.type is required")
	default:
		return fmt.Errorf("unsupported data source type: %s. Use '%s', '%s' or '%s'",
			d.Type, DataSourceCSV, DataSourceSQLite, DataSourceTimescaleDB)
	}

	if c.REST.HTTPPort < 0 || c.REST.HTTPPort > 65535 {
		return fmt.Errorf("rest.http_port out of range: %d", c.REST.HTTPPort)
	}
	if (c.REST.TLSCertPath == "") != (c.REST.TLSKeyPath == "") {
		return fmt.Errorf("rest.tls_cert_path and rest.tls_key_path must be set together")
	}

	return nil
}
