package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	toolsHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	toolNameStyle    = lipgloss.NewStyle().Bold(true).Width(16)
	toolColumnStyle  = lipgloss.NewStyle().Width(10)
	paramStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#889096")).PaddingLeft(4)
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools and whether each one asks for consent",
	Args:  cobra.NoArgs,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, _ []string) error {
	registry, policy, err := newToolRegistry(appConfig, runFs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	root := appConfig.Workspace.Root
	if root == "" {
		root = "(none, absolute paths only)"
	}
	fmt.Fprintln(out, toolsHeaderStyle.Render("Project folder: "+root))
	fmt.Fprintln(out)

	for _, def := range registry.Definitions() {
		consent := "asks"
		if !policy.ConsentRequired(def.Name, nil) {
			consent = "auto"
		}

		fmt.Fprintln(out, lipgloss.JoinHorizontal(lipgloss.Top,
			toolNameStyle.Render(def.Name),
			toolColumnStyle.Render(string(def.Category)),
			toolColumnStyle.Render(consent),
			def.Description,
		))

		for _, param := range def.Parameters {
			required := ""
			if param.Required {
				required = ", required"
			}
			fmt.Fprintln(out, paramStyle.Render(fmt.Sprintf("%s (%s%s): %s",
				param.Name, strings.ReplaceAll(param.Type, "|", " or "), required, param.Description)))
		}
	}
	return nil
}
