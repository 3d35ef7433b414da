//-------------------------------------------------------------------------
//
// pgEdge Data Warehouse ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-dwh.
// Configuration is loaded once per process from a config file, with the
// cluster password optionally supplied through the environment. CLI flags
// take precedence over config file values. The resulting Config is passed
// by value to the components that need it; there is no package-level state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Supported values for StorageConfig.EventsCredentials.
const (
	CredentialsRole = "role"
	CredentialsKeys = "keys"
)

// PasswordEnvVar overrides cluster.password when set.
const PasswordEnvVar = "PGEDGE_DWH_PASSWORD"

// Config holds all configuration for pgedge-dwh.
type Config struct {
	// Dialect selects the warehouse SQL dialect (redshift, postgres).
	Dialect string `mapstructure:"dialect"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is either "console" or "json".
	LogFormat string `mapstructure:"log_format"`

	// Cluster holds the warehouse connection parameters.
	Cluster ClusterConfig `mapstructure:"cluster"`

	// IAMRole holds the role the warehouse assumes to read object storage.
	IAMRole IAMRoleConfig `mapstructure:"iam_role"`

	// Storage holds the raw dataset locations.
	Storage StorageConfig `mapstructure:"storage"`

	// Transform holds options for the warehouse transformer.
	Transform TransformConfig `mapstructure:"transform"`

	// Generate holds configuration for the generate subcommand.
	Generate GenerateConfig `mapstructure:"generate"`
}

// ClusterConfig holds the warehouse connection parameters.
type ClusterConfig struct {
	Host     string `mapstructure:"host"`
	DBName   string `mapstructure:"db_name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Port     int    `mapstructure:"port"`

	// SSLMode is passed through to the driver when set.
	SSLMode string `mapstructure:"sslmode"`
}

// IAMRoleConfig identifies the role used by the bulk loads.
type IAMRoleConfig struct {
	ARN string `mapstructure:"arn"`
}

// StorageConfig holds the locations of the raw datasets.
type StorageConfig struct {
	// LogData is the prefix holding the user activity logs.
	LogData string `mapstructure:"log_data"`

	// LogJSONPath is the jsonpaths file mapping log fields to columns.
	LogJSONPath string `mapstructure:"log_json_path"`

	// SongData is the prefix holding the song metadata files.
	SongData string `mapstructure:"song_data"`

	// Region is the object storage region.
	Region string `mapstructure:"region"`

	// EventsCredentials selects how the events load authorizes itself:
	// "role" embeds the IAM role reference, "keys" embeds access keys
	// resolved from the AWS default credential chain.
	EventsCredentials string `mapstructure:"events_credentials"`
}

// TransformConfig holds options for the warehouse transformer.
type TransformConfig struct {
	// RefreshUsers truncates dim_users before the users insert.
	RefreshUsers bool `mapstructure:"refresh_users"`
}

// GenerateConfig holds configuration for synthetic dataset generation.
type GenerateConfig struct {
	OutDir string `mapstructure:"out_dir"`
	Songs  int    `mapstructure:"songs"`
	Users  int    `mapstructure:"users"`
	Events int    `mapstructure:"events"`
	Seed   uint64 `mapstructure:"seed"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Dialect:   "redshift",
		LogLevel:  "info",
		LogFormat: "console",
		Cluster: ClusterConfig{
			Port: 5439,
		},
		Storage: StorageConfig{
			Region:            "us-west-2",
			EventsCredentials: CredentialsRole,
		},
		Generate: GenerateConfig{
			OutDir: "./data",
			Songs:  200,
			Users:  25,
			Events: 2000,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-dwh.yaml
// 3. ~/.config/pgedge-dwh/config.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("pgedge-dwh")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-dwh"))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	if err := v.BindEnv("cluster.password", PasswordEnvVar); err != nil {
		return nil, fmt.Errorf("error binding %s: %w", PasswordEnvVar, err)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// ConnString renders the cluster parameters as a keyword/value connection
// string.
func (c ClusterConfig) ConnString() string {
	parts := []string{
		"host=" + dsnValue(c.Host),
		"dbname=" + dsnValue(c.DBName),
		"user=" + dsnValue(c.User),
		"password=" + dsnValue(c.Password),
		fmt.Sprintf("port=%d", c.Port),
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+dsnValue(c.SSLMode))
	}
	return strings.Join(parts, " ")
}

// dsnValue quotes a keyword/value connection string value when needed.
func dsnValue(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// Validate checks that settings shared by every command are valid.
func (c *Config) Validate() error {
	if c.Dialect == "" {
		return fmt.Errorf("dialect is required")
	}
	if c.LogFormat != "" && c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'console' or 'json'")
	}
	return nil
}

// ValidateCluster checks that the warehouse connection parameters are present.
func (c *Config) ValidateCluster() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Cluster.Host == "" {
		return fmt.Errorf("cluster.host is required")
	}
	if c.Cluster.DBName == "" {
		return fmt.Errorf("cluster.db_name is required")
	}
	if c.Cluster.User == "" {
		return fmt.Errorf("cluster.user is required")
	}
	if c.Cluster.Port < 1 || c.Cluster.Port > 65535 {
		return fmt.Errorf("cluster.port must be between 1 and 65535")
	}
	return nil
}

// ValidateETL checks configuration required for the etl command.
func (c *Config) ValidateETL() error {
	if err := c.ValidateCluster(); err != nil {
		return err
	}
	if c.Storage.LogData == "" {
		return fmt.Errorf("storage.log_data is required")
	}
	if c.Storage.LogJSONPath == "" {
		return fmt.Errorf("storage.log_json_path is required")
	}
	if c.Storage.SongData == "" {
		return fmt.Errorf("storage.song_data is required")
	}
	switch c.Storage.EventsCredentials {
	case CredentialsRole, CredentialsKeys:
	default:
		return fmt.Errorf("storage.events_credentials must be '%s' or '%s'",
			CredentialsRole, CredentialsKeys)
	}
	if c.Dialect == "redshift" {
		if c.IAMRole.ARN == "" {
			return fmt.Errorf("iam_role.arn is required for the redshift dialect")
		}
		if c.Storage.Region == "" {
			return fmt.Errorf("storage.region is required for the redshift dialect")
		}
	}
	return nil
}

// ValidateGenerate checks configuration required for the generate command.
func (c *Config) ValidateGenerate() error {
	if c.Generate.OutDir == "" {
		return fmt.Errorf("generate.out_dir is required")
	}
	if c.Generate.Songs < 1 {
		return fmt.Errorf("generate.songs must be at least 1")
	}
	if c.Generate.Users < 1 {
		return fmt.Errorf("generate.users must be at least 1")
	}
	if c.Generate.Events < 0 {
		return fmt.Errorf("generate.events must be non-negative")
	}
	return nil
}
