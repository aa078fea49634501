package toolexecutor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

var (
	consentBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#f5a524")).
			Padding(0, 1)
	consentTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5a524"))
	approvedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#17c964"))
	deniedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#f31260"))
	mutedStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#889096"))
)

type shownRequest struct {
	ctx      context.Context
	req      ConsentRequest
	resolver ConsentResolver
}

// CLIConsentPresenter asks for consent on a terminal. Each input line answers
// the request currently shown; "y" or "yes" approves, anything else cancels.
// Lines typed while nothing is shown are discarded.
type CLIConsentPresenter struct {
	reader io.Reader
	writer io.Writer

	startOnce sync.Once
	mu        sync.Mutex
	current   *shownRequest
	eof       bool
}

// NewCLIConsentPresenter creates a terminal presenter
func NewCLIConsentPresenter(reader io.Reader, writer io.Writer) *CLIConsentPresenter {
	return &CLIConsentPresenter{
		reader: reader,
		writer: writer,
	}
}

// PresentConsent implements ConsentPresenter
func (c *CLIConsentPresenter) PresentConsent(ctx context.Context, req ConsentRequest, resolver ConsentResolver) {
	c.displayRequest(req)

	c.mu.Lock()
	if c.eof {
		c.mu.Unlock()
		log.Info().Str("call_id", req.ID).Msg("Consent input closed, cancelling")
		c.answer(req, resolver, DecisionCancelled)
		return
	}
	c.current = &shownRequest{ctx: ctx, req: req, resolver: resolver}
	c.mu.Unlock()

	c.startOnce.Do(func() { go c.readLines() })
}

// readLines routes each input line to the request on screen. At EOF the
// shown request is cancelled and later ones are cancelled on arrival.
func (c *CLIConsentPresenter) readLines() {
	scanner := bufio.NewScanner(c.reader)
	for scanner.Scan() {
		shown := c.take()
		if shown == nil {
			log.Debug().Msg("Consent input with no pending request ignored")
			continue
		}
		c.answer(shown.req, shown.resolver, decisionFromInput(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Failed to read consent input")
	}

	c.mu.Lock()
	c.eof = true
	c.mu.Unlock()

	if shown := c.take(); shown != nil {
		log.Info().Str("call_id", shown.req.ID).Msg("Consent input closed, cancelling")
		c.answer(shown.req, shown.resolver, DecisionCancelled)
	}
}

// take clears and returns the shown request if it is still live
func (c *CLIConsentPresenter) take() *shownRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	shown := c.current
	c.current = nil
	if shown == nil || shown.ctx.Err() != nil {
		return nil
	}
	return shown
}

func (c *CLIConsentPresenter) answer(req ConsentRequest, resolver ConsentResolver, decision Decision) {
	if err := resolver.Resolve(req.ID, decision); err != nil {
		log.Debug().Err(err).Str("call_id", req.ID).Msg("Late consent decision ignored")
		return
	}
	c.displayDecision(req.ToolName, decision)
}

func decisionFromInput(input string) Decision {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return DecisionApproved
	default:
		return DecisionCancelled
	}
}

func (c *CLIConsentPresenter) displayRequest(req ConsentRequest) {
	body := consentTitleStyle.Render("Consent required") + "\n\n" + req.Prompt
	if !req.ExpiresAt.IsZero() {
		body += "\n\n" + mutedStyle.Render("Expires at "+req.ExpiresAt.Format("15:04:05"))
	}

	c.printf("\n%s\n  Approve %s? [y/N]: ", consentBoxStyle.Render(body), req.ToolName)
}

func (c *CLIConsentPresenter) displayDecision(toolName string, decision Decision) {
	if decision == DecisionApproved {
		c.printf("%s\n", approvedStyle.Render("  Approved "+toolName))
		return
	}
	c.printf("%s\n", deniedStyle.Render("  Cancelled "+toolName))
}

func (c *CLIConsentPresenter) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.writer, format, args...)
}
