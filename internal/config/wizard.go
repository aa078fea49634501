package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// generatedSecretLength is the length of secrets the wizard generates
const generatedSecretLength = 32

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader         *bufio.Reader
	out            io.Writer
	generateSecret func() (string, error)
}

// NewWizard creates a wizard reading answers from in and prompting on out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
		generateSecret: func() (string, error) {
			return gonanoid.New(generatedSecretLength)
		},
	}
}

// Run walks through the settings, starting from base (defaults when nil).
// Enter keeps the value shown in brackets.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := DefaultConfig()
	if base != nil {
		copied := *base
		cfg = &copied
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== toolgate configuration ===")
	fmt.Fprintln(w.out)

	// Workspace
	for {
		root, err := w.ask("Project folder (absolute path, blank for none)", cfg.Workspace.Root)
		if err != nil {
			return nil, err
		}
		if root != "" {
			root = filepath.Clean(root)
		}
		if err := validator.ValidateWorkspaceRoot(root); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Workspace.Root = root
		break
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Consent:")

	autoRead, err := w.confirm("Run read-only tools without asking", containsFold(cfg.Consent.AutoApproveCategories, "read"))
	if err != nil {
		return nil, err
	}
	cfg.Consent.AutoApproveCategories = setMember(cfg.Consent.AutoApproveCategories, "read", autoRead)

	for {
		raw, err := w.ask("Cancel unanswered requests after N seconds (0 = never)", strconv.Itoa(cfg.Consent.TimeoutSeconds))
		if err != nil {
			return nil, err
		}
		seconds, convErr := strconv.Atoi(raw)
		if convErr != nil || seconds < 0 {
			fmt.Fprintln(w.out, "Error: enter a whole number of seconds, 0 or more")
			continue
		}
		cfg.Consent.TimeoutSeconds = seconds
		break
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Operator gateway:")

	enabled, err := w.confirm("Accept consent decisions over WebSocket", cfg.Gateway.Enabled)
	if err != nil {
		return nil, err
	}
	cfg.Gateway.Enabled = enabled

	if enabled {
		for {
			raw, err := w.ask("Port", strconv.Itoa(cfg.Gateway.Port))
			if err != nil {
				return nil, err
			}
			port, convErr := strconv.Atoi(raw)
			if convErr == nil {
				convErr = validator.ValidatePort(port)
			}
			if convErr != nil {
				fmt.Fprintf(w.out, "Error: %v\n", convErr)
				continue
			}
			cfg.Gateway.Port = port
			break
		}

		if cfg.Gateway.SharedSecret == "" {
			secret, err := w.generateSecret()
			if err != nil {
				return nil, fmt.Errorf("failed to generate shared secret: %w", err)
			}
			cfg.Gateway.SharedSecret = secret
			fmt.Fprintln(w.out, "Generated a new shared secret; it is stored in the config file.")
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Logging:")

	for {
		level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Logging.Level = level
		break
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) ask(prompt, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, current)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	line, err := w.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return current, nil
	}
	return line, nil
}

func (w *Wizard) confirm(prompt string, current bool) (bool, error) {
	hint := "y/N"
	if current {
		hint = "Y/n"
	}
	fmt.Fprintf(w.out, "%s? (%s): ", prompt, hint)

	line, err := w.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "":
		return current, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readLine returns the next trimmed line. A final line without a newline is accepted.
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("configuration input ended: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func containsFold(values []string, want string) bool {
	for _, value := range values {
		if strings.EqualFold(value, want) {
			return true
		}
	}
	return false
}

func setMember(values []string, member string, present bool) []string {
	out := make([]string, 0, len(values)+1)
	for _, value := range values {
		if !strings.EqualFold(value, member) {
			out = append(out, value)
		}
	}
	if present {
		out = append(out, member)
	}
	return out
}
