package cli

import (
	"fmt"
	"path/filepath"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/internal/logger"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile       string
	logLevel      string
	workspaceRoot string

	appConfig *config.Config
	appLog    *logger.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "toolgate - consent-gated tool execution",
	Long: `toolgate runs tool calls proposed by an AI model, but only after a human
approves each one. Calls are shown in a terminal prompt or pushed to operators
over an authenticated WebSocket gateway, and every step is written to the
session transcript.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntimeConfig,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if appLog == nil {
			return nil
		}
		err := appLog.Close()
		appLog = nil
		return err
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.toolgate/toolgate.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	rootCmd.PersistentFlags().StringVarP(&workspaceRoot, "workspace", "w", "", "project folder file tools are confined to; overrides the config file")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// loadRuntimeConfig loads the config, applies flag overrides and sets up logging
func loadRuntimeConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if workspaceRoot != "" {
		root, err := filepath.Abs(workspaceRoot)
		if err != nil {
			return fmt.Errorf("invalid workspace: %w", err)
		}
		cfg.Workspace.Root = root
	}

	// configure must be able to repair an invalid file
	if cmd.Name() != "configure" {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	lg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		Secrets:   []string{cfg.Gateway.SharedSecret},
		Output:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	appConfig = cfg
	appLog = lg
	return nil
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
