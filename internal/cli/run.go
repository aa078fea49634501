package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/harun/toolgate/pkg/toolcall"
	"github.com/harun/toolgate/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	runFile    string
	runYes     bool
	runGateway bool

	// runFs backs the file tools; tests swap in a MemMapFs
	runFs afero.Fs = afero.NewOsFs()
)

var runCmd = &cobra.Command{
	Use:   "run [call ...]",
	Short: "Run proposed tool calls through the consent gate",
	Long: `Run tool calls proposed by a model. Each argument, each line of --file, or
each line of stdin is one call; model output containing fenced tool blocks
runs only the fenced calls. A call is JSON in any of these shapes:

  {"name": "read_file", "args": {"path": "main.go"}}
  {"tool": "read_file", "args": {"path": "main.go"}}
  {"name": "read_file", "arguments": "{\"path\": \"main.go\"}"}

Every call asks for consent before it runs unless the consent policy waives it.
Calls read from stdin cannot be approved at the terminal; enable the gateway
or pass --yes.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "read calls from a file ('-' for stdin)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "approve every call without asking")
	runCmd.Flags().BoolVar(&runGateway, "gateway", false, "serve the operator gateway for this run")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	if runGateway {
		cfg.Gateway.Enabled = true
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}

	proposals, fromStdin, err := readProposals(cmd, args)
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		return errors.New("no tool calls to run")
	}

	opts := sessionOptions{
		autoApprove: runYes,
		consentOut:  cmd.OutOrStdout(),
		logger:      log.Logger,
	}
	if !fromStdin {
		opts.consentIn = cmd.InOrStdin()
	}
	if runYes {
		log.Warn().Msg("Every tool call will be approved without asking")
	}

	s, err := newSession(&cfg, runFs, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	renderer := transcriptRenderer{out: cmd.OutOrStdout()}
	results, err := s.run(ctx, proposals, renderer.Render)
	if err != nil {
		return err
	}
	renderer.Summary(results)

	failed := 0
	for _, result := range results {
		if result.Outcome() == toolexecutor.OutcomeError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d tool calls failed", failed, len(results))
	}
	return nil
}

// readProposals returns the raw proposals and whether they came from stdin.
// Each argument is one call unless it contains fenced tool blocks.
func readProposals(cmd *cobra.Command, args []string) ([]string, bool, error) {
	switch {
	case len(args) > 0 && runFile != "":
		return nil, false, errors.New("pass calls as arguments or with --file, not both")
	case len(args) > 0:
		var proposals []string
		for _, arg := range args {
			if _, blocks := toolcall.ExtractBlocks(arg); len(blocks) > 0 {
				proposals = append(proposals, blocks...)
			} else if arg = strings.TrimSpace(arg); arg != "" {
				proposals = append(proposals, arg)
			}
		}
		return proposals, false, nil
	case runFile != "" && runFile != "-":
		data, err := afero.ReadFile(runFs, runFile)
		if err != nil {
			return nil, false, fmt.Errorf("failed to read calls: %w", err)
		}
		return toolcall.SplitProposals(string(data)), false, nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, true, fmt.Errorf("failed to read calls from stdin: %w", err)
		}
		return toolcall.SplitProposals(string(data)), true, nil
	}
}
