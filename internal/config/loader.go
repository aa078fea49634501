package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TOOLGATE_GATEWAY_SHARED_SECRET
const EnvPrefix = "TOOLGATE"

// Loader handles configuration loading
type Loader struct {
	configPath string
	fs         afero.Fs
}

// NewLoader creates a config loader reading from the OS filesystem.
// An empty path means ~/.toolgate/toolgate.json.
func NewLoader(configPath string) *Loader {
	return NewLoaderFs(afero.NewOsFs(), configPath)
}

// NewLoaderFs creates a config loader over fs
func NewLoaderFs(fs afero.Fs, configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		fs:         fs,
	}
}

// Load reads the config file, if present, and applies TOOLGATE_* overrides
// on top of the defaults.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := l.newViper(configPath)
	setDefaults(v, DefaultConfig())

	exists, err := afero.Exists(l.fs, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if exists {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if root := cfg.Workspace.Root; root != "" && !strings.Contains(root, "://") && !filepath.IsAbs(root) {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
		}
		cfg.Workspace.Root = abs
	}

	return cfg, nil
}

// Save writes cfg as JSON, creating the config directory when needed
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	if err := l.fs.MkdirAll(filepath.Dir(configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetFs(l.fs)
	v.SetConfigType("json")

	v.Set("workspace", cfg.Workspace)
	v.Set("consent", cfg.Consent)
	v.Set("logging", cfg.Logging)
	v.Set("gateway", cfg.Gateway)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// The file holds the gateway secret.
	if err := l.fs.Chmod(configPath, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".toolgate", "toolgate.json"), nil
}

func (l *Loader) newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetFs(l.fs)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so AutomaticEnv can override keys the
// config file does not mention.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("workspace.root", cfg.Workspace.Root)

	v.SetDefault("consent.timeout_seconds", cfg.Consent.TimeoutSeconds)
	v.SetDefault("consent.auto_approve", cfg.Consent.AutoApprove)
	v.SetDefault("consent.auto_approve_categories", cfg.Consent.AutoApproveCategories)
	v.SetDefault("consent.always_require", cfg.Consent.AlwaysRequire)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.pretty", cfg.Logging.Pretty)
	v.SetDefault("logging.redaction", cfg.Logging.Redaction)

	v.SetDefault("gateway.enabled", cfg.Gateway.Enabled)
	v.SetDefault("gateway.host", cfg.Gateway.Host)
	v.SetDefault("gateway.port", cfg.Gateway.Port)
	v.SetDefault("gateway.shared_secret", cfg.Gateway.SharedSecret)

	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}
