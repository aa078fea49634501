package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harun/toolgate/pkg/toolexecutor"
)

var (
	callStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#006fee")).Bold(true)
	resultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#17c964")).Bold(true)
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f5a524")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#f31260")).Bold(true)
	bodyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#889096")).PaddingLeft(4)
	summaryStyle   = lipgloss.NewStyle().Bold(true)
)

// transcriptRenderer prints transcript entries as they arrive
type transcriptRenderer struct {
	out io.Writer
}

func phaseMarker(phase toolexecutor.Phase) (string, lipgloss.Style) {
	switch phase {
	case toolexecutor.PhaseCall:
		return "▸", callStyle
	case toolexecutor.PhaseResult:
		return "✓", resultStyle
	case toolexecutor.PhaseCancelled:
		return "⊘", cancelledStyle
	case toolexecutor.PhaseError:
		return "✗", errorStyle
	default:
		return "•", summaryStyle
	}
}

// Render prints the first content line as a header and the rest indented
func (r transcriptRenderer) Render(entry toolexecutor.TranscriptEntry) {
	header, body, _ := strings.Cut(entry.Content, "\n")
	marker, style := phaseMarker(entry.Meta.Phase)

	fmt.Fprintln(r.out, style.Render(marker+" "+header))
	if body = strings.TrimRight(body, "\n"); body != "" {
		fmt.Fprintln(r.out, bodyStyle.Render(body))
	}
}

// Summary prints outcome counts for a finished run
func (r transcriptRenderer) Summary(results []toolexecutor.ToolResult) {
	counts := map[string]int{}
	for _, result := range results {
		counts[result.Outcome()]++
	}

	line := fmt.Sprintf("%d call(s): %d ok, %d error, %d cancelled",
		len(results),
		counts[toolexecutor.OutcomeOK],
		counts[toolexecutor.OutcomeError],
		counts[toolexecutor.OutcomeCancelled],
	)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, summaryStyle.Render(line))
}
