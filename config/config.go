/*
Copyright 2024 SerialLink Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config provides configuration loading and management for the
// serial monitor server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Shoaibashk/serialmonitor/internal/channel"
	"github.com/spf13/viper"
)

// Config represents the complete server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	TLS      TLSConfig      `mapstructure:"tls" yaml:"tls"`
	Serial   SerialConfig   `mapstructure:"serial" yaml:"serial"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Decoders DecodersConfig `mapstructure:"decoders" yaml:"decoders"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// ServerConfig holds HTTP listen address, auth and connection limits.
type ServerConfig struct {
	Address           string `mapstructure:"address" yaml:"address"`
	AuthEnabled       bool   `mapstructure:"auth_enabled" yaml:"auth_enabled"`
	AuthUsername      string `mapstructure:"auth_username" yaml:"auth_username"`
	AuthPassword      string `mapstructure:"auth_password" yaml:"auth_password"`
	MaxConnections    int    `mapstructure:"max_connections" yaml:"max_connections"`
	ConnectionTimeout int    `mapstructure:"connection_timeout" yaml:"connection_timeout"`
}

// TLSConfig holds TLS/SSL settings for the HTTP server.
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	CertFile string `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile  string `mapstructure:"key_file" yaml:"key_file"`
	CAFile   string `mapstructure:"ca_file" yaml:"ca_file"`
}

// SerialConfig holds serial port defaults and port-enumerator settings.
type SerialConfig struct {
	Defaults        SerialDefaults `mapstructure:"defaults" yaml:"defaults"`
	ScanIntervalMs  int            `mapstructure:"scan_interval_ms" yaml:"scan_interval_ms"`
	ExcludePatterns []string       `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
}

// SerialDefaults holds the default port parameters applied when a connect
// request does not specify its own.
type SerialDefaults struct {
	BaudRate    int    `mapstructure:"baud_rate" yaml:"baud_rate"`
	DataBits    int    `mapstructure:"data_bits" yaml:"data_bits"`
	StopBits    string `mapstructure:"stop_bits" yaml:"stop_bits"`
	Parity      string `mapstructure:"parity" yaml:"parity"`
	FlowControl string `mapstructure:"flow_control" yaml:"flow_control"`
}

// LoggingConfig holds logging settings, including lumberjack rotation
// parameters for the log file.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DecodersConfig selects which built-in decoder plugins are active. An
// empty Enabled list means "all built-ins" — there is no dynamic loading.
type DecodersConfig struct {
	Enabled []string `mapstructure:"enabled" yaml:"enabled"`
}

// StoreConfig holds the backing file paths for the persistent Macro and
// Profile document stores.
type StoreConfig struct {
	MacrosPath   string `mapstructure:"macros_path" yaml:"macros_path"`
	ProfilesPath string `mapstructure:"profiles_path" yaml:"profiles_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           "0.0.0.0:8080",
			AuthEnabled:       false,
			MaxConnections:    100,
			ConnectionTimeout: 30,
		},
		TLS: TLSConfig{
			Enabled: false,
		},
		Serial: SerialConfig{
			Defaults: SerialDefaults{
				BaudRate:    115200,
				DataBits:    8,
				StopBits:    "1",
				Parity:      "none",
				FlowControl: "none",
			},
			ScanIntervalMs: 2000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     30,
			Compress:   true,
		},
		Decoders: DecodersConfig{
			Enabled: nil,
		},
		Store: StoreConfig{
			MacrosPath:   "data/macros.json",
			ProfilesPath: "data/profiles.json",
		},
	}
}

// ToPortConfig converts SerialDefaults into a concrete channel.PortConfig,
// leaving Device blank for the caller to fill in.
func (d SerialDefaults) ToPortConfig() (channel.PortConfig, error) {
	parity, err := channel.ParseParity(d.Parity)
	if err != nil {
		return channel.PortConfig{}, err
	}

	flowControl, err := channel.ParseFlowControl(d.FlowControl)
	if err != nil {
		return channel.PortConfig{}, err
	}

	stopBitsVal, err := parseStopBitsString(d.StopBits)
	if err != nil {
		return channel.PortConfig{}, err
	}
	stopBits, err := channel.ParseStopBits(stopBitsVal)
	if err != nil {
		return channel.PortConfig{}, err
	}

	return channel.PortConfig{
		BaudRate:    d.BaudRate,
		DataBits:    d.DataBits,
		StopBits:    stopBits,
		Parity:      parity,
		FlowControl: flowControl,
	}, nil
}

func parseStopBitsString(s string) (float64, error) {
	switch s {
	case "", "1":
		return 1, nil
	case "1.5":
		return 1.5, nil
	case "2":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown stop bits %q", s)
	}
}

// SetDefaults sets default values in viper.
func SetDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	viper.SetDefault("server.address", defaults.Server.Address)
	viper.SetDefault("server.auth_enabled", defaults.Server.AuthEnabled)
	viper.SetDefault("server.max_connections", defaults.Server.MaxConnections)
	viper.SetDefault("server.connection_timeout", defaults.Server.ConnectionTimeout)

	// TLS defaults
	viper.SetDefault("tls.enabled", defaults.TLS.Enabled)

	// Serial defaults
	viper.SetDefault("serial.defaults.baud_rate", defaults.Serial.Defaults.BaudRate)
	viper.SetDefault("serial.defaults.data_bits", defaults.Serial.Defaults.DataBits)
	viper.SetDefault("serial.defaults.stop_bits", defaults.Serial.Defaults.StopBits)
	viper.SetDefault("serial.defaults.parity", defaults.Serial.Defaults.Parity)
	viper.SetDefault("serial.defaults.flow_control", defaults.Serial.Defaults.FlowControl)
	viper.SetDefault("serial.scan_interval_ms", defaults.Serial.ScanIntervalMs)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Store defaults
	viper.SetDefault("store.macros_path", defaults.Store.MacrosPath)
	viper.SetDefault("store.profiles_path", defaults.Store.ProfilesPath)
}

// Load reads configuration from viper and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	viper.SetConfigFile(path)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Load()
}

// LoadOrDefault loads configuration from file, or returns default if file
// doesn't exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	for key, value := range c.toMap() {
		viper.Set(key, value)
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// toMap converts config to a map for viper.
func (c *Config) toMap() map[string]interface{} {
	return map[string]interface{}{
		"server":   c.Server,
		"tls":      c.TLS,
		"serial":   c.Serial,
		"logging":  c.Logging,
		"decoders": c.Decoders,
		"store":    c.Store,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}

	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1")
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" || c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS cert_file and key_file are required when TLS is enabled")
		}
	}

	if c.Server.AuthEnabled && c.Server.AuthUsername == "" {
		return fmt.Errorf("auth_username is required when auth is enabled")
	}

	if c.Serial.Defaults.BaudRate < 1 {
		return fmt.Errorf("baud_rate must be positive")
	}

	if c.Serial.Defaults.DataBits < 5 || c.Serial.Defaults.DataBits > 8 {
		return fmt.Errorf("data_bits must be between 5 and 8")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if _, err := c.Serial.Defaults.ToPortConfig(); err != nil {
		return fmt.Errorf("invalid serial defaults: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default configuration file path for the
// current OS.
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "SerialMonitor", "config.yaml")
	case "darwin":
		return "/usr/local/etc/serialmonitor/config.yaml"
	default:
		return "/etc/serialmonitor/config.yaml"
	}
}

// UserConfigPath returns the user-specific configuration file path.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, ".serialmonitor", "config.yaml")
	default:
		return filepath.Join(home, ".config", "serialmonitor", "config.yaml")
	}
}

// InitViper initializes viper with default configuration paths, env
// variables, and an optional explicit config file.
func InitViper(configFile string) error {
	SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, _ := os.UserHomeDir()
		if home != "" {
			viper.AddConfigPath(filepath.Join(home, ".serialmonitor"))
			viper.AddConfigPath(filepath.Join(home, ".config", "serialmonitor"))
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/serialmonitor")

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SERIALMON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}
