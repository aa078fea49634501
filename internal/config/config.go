package config

import (
	"encoding/json"
	"errors"
	"time"
)

// Config represents the toolgate configuration
type Config struct {
	Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace"`
	Consent   ConsentConfig   `json:"consent" mapstructure:"consent"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Gateway   GatewayConfig   `json:"gateway" mapstructure:"gateway"`
	Metrics   MetricsConfig   `json:"metrics" mapstructure:"metrics"`
}

// WorkspaceConfig confines file tools to a project folder
type WorkspaceConfig struct {
	// Root is the project folder. Empty means only absolute paths are accepted.
	Root string `json:"root" mapstructure:"root"`
}

// ConsentConfig controls which tool calls need a human decision
type ConsentConfig struct {
	TimeoutSeconds        int      `json:"timeout_seconds" mapstructure:"timeout_seconds"` // 0 disables
	AutoApprove           []string `json:"auto_approve" mapstructure:"auto_approve"`
	AutoApproveCategories []string `json:"auto_approve_categories" mapstructure:"auto_approve_categories"`
	AlwaysRequire         []string `json:"always_require" mapstructure:"always_require"`
}

// Timeout returns the consent timeout as a duration
func (c ConsentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// GatewayConfig holds the operator gateway configuration
type GatewayConfig struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	Host         string `json:"host" mapstructure:"host"`
	Port         int    `json:"port" mapstructure:"port"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	// Addr serves /metrics during run when set, e.g. "127.0.0.1:9464"
	Addr string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values. Every call needs consent.
func DefaultConfig() *Config {
	return &Config{
		Consent: ConsentConfig{
			AutoApprove:           []string{},
			AutoApproveCategories: []string{},
			AlwaysRequire:         []string{},
		},
		Logging: LoggingConfig{
			Level:     "warn",
			Pretty:    true,
			Redaction: true,
		},
		Gateway: GatewayConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8787,
		},
	}
}

// String returns a JSON representation of the config with the secret masked
func (c *Config) String() string {
	masked := *c
	if masked.Gateway.SharedSecret != "" {
		masked.Gateway.SharedSecret = "********"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	return errors.Join(NewValidator().ValidateConfig(c)...)
}
