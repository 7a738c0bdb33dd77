package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	CRM      CRMConfig      `mapstructure:"crm"`
	ESign    ESignConfig    `mapstructure:"esign"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// CRMConfig holds CRM API configuration
type CRMConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ESignConfig holds e-signature provider API configuration
type ESignConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds document storage locations
type StorageConfig struct {
	ArchiveDir string `mapstructure:"archive_dir"`
	WorkingDir string `mapstructure:"working_dir"`
}

// WorkflowConfig holds workflow engine configuration
type WorkflowConfig struct {
	SystemUserID        int64  `mapstructure:"system_user_id"`
	SignedContractStage string `mapstructure:"signed_contract_stage"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/workflow.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// CRM defaults
	viper.SetDefault("crm.timeout", 30*time.Second)

	// E-sign defaults
	viper.SetDefault("esign.timeout", 30*time.Second)

	// Storage defaults
	viper.SetDefault("storage.archive_dir", "archive")
	viper.SetDefault("storage.working_dir", "generated")

	// Workflow defaults
	viper.SetDefault("workflow.signed_contract_stage", "Contract Signed")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("crm.base_url", "CRM_BASE_URL")
	viper.BindEnv("crm.api_key", "CRM_API_KEY")
	viper.BindEnv("esign.base_url", "ESIGN_BASE_URL")
	viper.BindEnv("esign.api_key", "ESIGN_API_KEY")
	viper.BindEnv("workflow.system_user_id", "WORKFLOW_SYSTEM_USER_ID")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate CRM credentials
	if c.CRM.BaseURL == "" {
		return fmt.Errorf("crm.base_url is required")
	}
	if c.CRM.APIKey == "" {
		return fmt.Errorf("crm.api_key is required")
	}

	// Validate e-sign credentials
	if c.ESign.BaseURL == "" {
		return fmt.Errorf("esign.base_url is required")
	}
	if c.ESign.APIKey == "" {
		return fmt.Errorf("esign.api_key is required")
	}

	// Validate storage locations
	if c.Storage.ArchiveDir == "" {
		return fmt.Errorf("storage.archive_dir is required")
	}
	if c.Storage.WorkingDir == "" {
		return fmt.Errorf("storage.working_dir is required")
	}

	return nil
}
