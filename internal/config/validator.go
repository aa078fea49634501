package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/harun/toolgate/pkg/toolexecutor"
)

// minSecretLength is the shortest gateway secret accepted
const minSecretLength = 16

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a TCP port; 0 picks a free port
func (v *Validator) ValidatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}
	return nil
}

// ValidateSharedSecret validates the gateway HMAC secret
func (v *Validator) ValidateSharedSecret(secret string) error {
	if secret == "" {
		return fmt.Errorf("gateway shared_secret is required when the gateway is enabled")
	}
	if len(secret) < minSecretLength {
		return fmt.Errorf("gateway shared_secret must be at least %d characters", minSecretLength)
	}
	return nil
}

// ValidateCategories validates auto-approve category names
func (v *Validator) ValidateCategories(names []string) error {
	_, err := toolexecutor.ParseCategories(names)
	return err
}

// ValidateToolNames rejects blank or padded tool names
func (v *Validator) ValidateToolNames(field string, names []string) error {
	for i, name := range names {
		if strings.TrimSpace(name) == "" || name != strings.TrimSpace(name) {
			return fmt.Errorf("%s[%d]: tool name %q is blank or padded", field, i, name)
		}
	}
	return nil
}

// ValidateWorkspaceRoot requires an absolute project folder when one is set
func (v *Validator) ValidateWorkspaceRoot(root string) error {
	if root == "" {
		return nil
	}
	if strings.Contains(root, "://") {
		return fmt.Errorf("workspace root must be a local path, got %s", root)
	}
	if !filepath.IsAbs(root) {
		return fmt.Errorf("workspace root must be absolute, got %s", root)
	}
	return nil
}

// ValidateListenAddr validates a host:port listen address
func (v *Validator) ValidateListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %s: %w", addr, err)
	}
	if port == "" {
		return fmt.Errorf("invalid listen address %s: missing port", addr)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateWorkspaceRoot(cfg.Workspace.Root); err != nil {
		errors = append(errors, err)
	}

	if cfg.Consent.TimeoutSeconds < 0 {
		errors = append(errors, fmt.Errorf("consent.timeout_seconds must be >= 0"))
	}
	if err := v.ValidateCategories(cfg.Consent.AutoApproveCategories); err != nil {
		errors = append(errors, fmt.Errorf("consent.auto_approve_categories: %w", err))
	}
	if err := v.ValidateToolNames("consent.auto_approve", cfg.Consent.AutoApprove); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateToolNames("consent.always_require", cfg.Consent.AlwaysRequire); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidatePort(cfg.Gateway.Port); err != nil {
		errors = append(errors, fmt.Errorf("gateway: %w", err))
	}
	if cfg.Gateway.Enabled {
		if err := v.ValidateSharedSecret(cfg.Gateway.SharedSecret); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateListenAddr(cfg.Metrics.Addr); err != nil {
		errors = append(errors, fmt.Errorf("metrics: %w", err))
	}

	return errors
}
