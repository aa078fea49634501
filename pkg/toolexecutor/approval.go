package toolexecutor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Decision is the terminal answer to a consent request
type Decision string

const (
	DecisionApproved  Decision = "approved"
	DecisionCancelled Decision = "cancelled"
)

// ParseDecision parses a user-provided decision string
func ParseDecision(value string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "approve", "approved", "allow", "y", "yes":
		return DecisionApproved, nil
	case "cancel", "cancelled", "deny", "n", "no":
		return DecisionCancelled, nil
	default:
		return "", fmt.Errorf("invalid consent decision %q", value)
	}
}

// ConsentReason records why a request settled the way it did
type ConsentReason string

const (
	ReasonUser        ConsentReason = "user"
	ReasonSuperseded  ConsentReason = "superseded"
	ReasonTimeout     ConsentReason = "timeout"
	ReasonContextDone ConsentReason = "context_done"
)

// ConsentOutcome is what RequestConsent returns
type ConsentOutcome struct {
	Decision Decision
	Reason   ConsentReason
}

// Approved reports whether the outcome permits execution
func (o ConsentOutcome) Approved() bool {
	return o.Decision == DecisionApproved
}

// ConsentRequest describes a tool call waiting for a human decision.
// Args is a deep copy; edits made by a presenter never reach the handler.
type ConsentRequest struct {
	ID        string         `json:"id"`
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Prompt    string         `json:"prompt"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at,omitempty"`
}

// ConsentResolver accepts decisions for pending requests by id
type ConsentResolver interface {
	Resolve(id string, decision Decision) error
}

// ConsentPresenter shows a pending request to a human. It must return promptly
// and deliver the decision through resolver, inline or later. ctx is done once
// the request is no longer pending.
type ConsentPresenter interface {
	PresentConsent(ctx context.Context, req ConsentRequest, resolver ConsentResolver)
}

// ConsentPresenterFunc adapts a function to ConsentPresenter
type ConsentPresenterFunc func(ctx context.Context, req ConsentRequest, resolver ConsentResolver)

// PresentConsent implements ConsentPresenter
func (f ConsentPresenterFunc) PresentConsent(ctx context.Context, req ConsentRequest, resolver ConsentResolver) {
	f(ctx, req, resolver)
}

type pendingConsent struct {
	req      ConsentRequest
	outcome  chan ConsentOutcome
	withdraw context.CancelFunc
}

// ConsentGate holds at most one pending consent request for a session.
type ConsentGate struct {
	presenter ConsentPresenter
	recorder  Recorder
	timeout   time.Duration
	now       func() time.Time

	mu      sync.Mutex
	pending *pendingConsent
}

// NewConsentGate creates a gate that shows requests through presenter.
// A nil presenter leaves requests pending until Resolve is called.
func NewConsentGate(presenter ConsentPresenter) *ConsentGate {
	return &ConsentGate{
		presenter: presenter,
		recorder:  nopRecorder{},
		now:       time.Now,
	}
}

// SetTimeout auto-cancels requests left pending longer than timeout. Zero disables it.
func (g *ConsentGate) SetTimeout(timeout time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timeout = timeout
}

// SetRecorder sets the metrics recorder
func (g *ConsentGate) SetRecorder(recorder Recorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if recorder == nil {
		recorder = nopRecorder{}
	}
	g.recorder = recorder
}

// RequestConsent registers a request under id and blocks until it settles.
// A request already pending is cancelled before the new one is presented.
func (g *ConsentGate) RequestConsent(ctx context.Context, id, toolName string, args map[string]any) ConsentOutcome {
	if id == "" {
		id = NewCallID()
	}

	g.mu.Lock()
	timeout := g.timeout
	recorder := g.recorder

	req := ConsentRequest{
		ID:        id,
		ToolName:  toolName,
		Args:      cloneArgs(args),
		Prompt:    BuildConsentPrompt(toolName, args),
		CreatedAt: g.now(),
	}
	if timeout > 0 {
		req.ExpiresAt = req.CreatedAt.Add(timeout)
	}

	presentCtx, withdraw := context.WithCancel(ctx)
	current := &pendingConsent{
		req:      req,
		outcome:  make(chan ConsentOutcome, 1),
		withdraw: withdraw,
	}

	previous := g.pending
	if previous != nil {
		previous.settle(ConsentOutcome{Decision: DecisionCancelled, Reason: ReasonSuperseded})
	}
	g.pending = current
	g.mu.Unlock()

	if previous != nil {
		recorder.RecordSuperseded()
		recorder.RecordConsent(DecisionCancelled, ReasonSuperseded)
		log.Warn().
			Str("call_id", previous.req.ID).
			Str("superseded_by", id).
			Str("tool", previous.req.ToolName).
			Msg("Pending consent request superseded")
	}

	log.Info().Str("call_id", id).Str("tool", toolName).Msg("Requesting consent")

	if g.presenter != nil {
		g.presenter.PresentConsent(presentCtx, req, g)
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case outcome := <-current.outcome:
		return outcome
	case <-ctx.Done():
		_ = g.settle(id, ConsentOutcome{Decision: DecisionCancelled, Reason: ReasonContextDone})
	case <-expired:
		if g.settle(id, ConsentOutcome{Decision: DecisionCancelled, Reason: ReasonTimeout}) == nil {
			log.Warn().Str("call_id", id).Dur("timeout", timeout).Msg("Consent request timed out")
		}
	}

	// Whichever settle won the race has already delivered the outcome.
	return <-current.outcome
}

// Resolve delivers a human decision for the pending request id.
// Stale or unknown ids return ErrConsentNotPending and change nothing.
func (g *ConsentGate) Resolve(id string, decision Decision) error {
	if decision != DecisionApproved && decision != DecisionCancelled {
		return fmt.Errorf("invalid consent decision %q", decision)
	}
	return g.settle(id, ConsentOutcome{Decision: decision, Reason: ReasonUser})
}

// Approve resolves id as approved
func (g *ConsentGate) Approve(id string) error {
	return g.Resolve(id, DecisionApproved)
}

// Cancel resolves id as cancelled
func (g *ConsentGate) Cancel(id string) error {
	return g.Resolve(id, DecisionCancelled)
}

// Pending returns the request currently awaiting a decision, if any
func (g *ConsentGate) Pending() (ConsentRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pending == nil {
		return ConsentRequest{}, false
	}
	return g.pending.req, true
}

func (g *ConsentGate) settle(id string, outcome ConsentOutcome) error {
	g.mu.Lock()
	current := g.pending
	if current == nil || current.req.ID != id {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConsentNotPending, id)
	}
	g.pending = nil
	current.settle(outcome)
	recorder := g.recorder
	g.mu.Unlock()

	recorder.RecordConsent(outcome.Decision, outcome.Reason)
	log.Info().
		Str("call_id", id).
		Str("tool", current.req.ToolName).
		Str("decision", string(outcome.Decision)).
		Str("reason", string(outcome.Reason)).
		Msg("Consent settled")

	return nil
}

// settle must be called at most once, with the gate lock held.
func (p *pendingConsent) settle(outcome ConsentOutcome) {
	p.outcome <- outcome
	p.withdraw()
}

// BuildConsentPrompt renders the text shown to a human for a tool request
func BuildConsentPrompt(toolName string, args map[string]any) string {
	prettyArgs := "{}"
	if len(args) > 0 {
		if data, err := json.MarshalIndent(args, "", "  "); err == nil {
			prettyArgs = string(data)
		} else {
			prettyArgs = fmt.Sprintf("%v", args)
		}
	}
	return fmt.Sprintf("Approve tool call?\n\nTool: %s\nArgs:\n%s", toolName, prettyArgs)
}

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneArgs(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return val
	}
}
