package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// YAML-tagged mirrors of the config structs
type dataSourceYAML struct {
	Type             string `yaml:"type"`
	Path             string `yaml:"path,omitempty"`
	Table            string `yaml:"table,omitempty"`
	ConnectionString string `yaml:"connection_string,omitempty"`
	RefreshSchedule  string `yaml:"refresh_schedule,omitempty"`
	ReloadOnRequest  bool   `yaml:"reload_on_request,omitempty"`
}

type restServerYAML struct {
	ListenAddr  string `yaml:"listen_addr,omitempty"`
	HTTPPort    int    `yaml:"http_port,omitempty"`
	TLSCertPath string `yaml:"tls_cert_path,omitempty"`
	TLSKeyPath  string `yaml:"tls_key_path,omitempty"`
	PageTitle   string `yaml:"page_title,omitempty"`
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	var yamlConfig struct {
		Data dataSourceYAML `yaml:"data"`
		REST restServerYAML `yaml:"rest,omitempty"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Data: DataSourceData{
			Type:             yamlConfig.Data.Type,
			Path:             yamlConfig.Data.Path,
			Table:            yamlConfig.Data.Table,
			ConnectionString: yamlConfig.Data.ConnectionString,
			RefreshSchedule:  yamlConfig.Data.RefreshSchedule,
			ReloadOnRequest:  yamlConfig.Data.ReloadOnRequest,
		},
		REST: RESTServerData{
			ListenAddr:  yamlConfig.REST.ListenAddr,
			HTTPPort:    yamlConfig.REST.HTTPPort,
			TLSCertPath: yamlConfig.REST.TLSCertPath,
			TLSKeyPath:  yamlConfig.REST.TLSKeyPath,
			PageTitle:   yamlConfig.REST.PageTitle,
		},
	}

	y.config = config
	return config, nil
}

// GetDataSource returns the data source configuration
func (y *YAMLProvider) GetDataSource() (*DataSourceData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Data, nil
}

// GetRESTServer returns the REST server configuration
func (y *YAMLProvider) GetRESTServer() (*RESTServerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.REST, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}
