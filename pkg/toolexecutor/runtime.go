package toolexecutor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/harun/toolgate/pkg/toolcall"
	"github.com/rs/zerolog/log"
)

// State is a step of one invocation
type State string

const (
	StateIdle            State = "idle"
	StateNormalizing     State = "normalizing"
	StateAwaitingConsent State = "awaiting_consent"
	StateInvoking        State = "invoking"
	StateCompleted       State = "completed"
)

// Invocation outcomes reported to the recorder and carried by ToolResult.Outcome.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

const (
	unknownToolName   = "unknown"
	invalidShapeError = "Invalid tool call shape"
	toolStatusKind    = "tool_status"
)

// ToolResult is the terminal outcome of one invocation
type ToolResult struct {
	OK        bool           `json:"ok"`
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Result    string         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Cancelled bool           `json:"cancelled,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// Outcome returns ok, error or cancelled
func (r ToolResult) Outcome() string {
	switch {
	case r.OK:
		return OutcomeOK
	case r.Cancelled:
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

// ConsentRequester asks a human to approve a call. *ConsentGate implements it.
type ConsentRequester interface {
	RequestConsent(ctx context.Context, id, toolName string, args map[string]any) ConsentOutcome
}

// ToolDispatcher runs a named tool. *Registry implements it.
type ToolDispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (string, error)
}

// StateObserver is notified on every state transition of an invocation
type StateObserver func(callID string, state State)

// Runtime sequences normalize, consent, dispatch and transcript for each call.
type Runtime struct {
	dispatcher ToolDispatcher
	gate       ConsentRequester
	sink       TranscriptSink

	mu       sync.RWMutex
	policy   ConsentPolicy
	recorder Recorder
	observer StateObserver
}

// NewRuntime creates a runtime. A nil gate cancels every call that needs consent;
// a nil sink discards transcript entries.
func NewRuntime(dispatcher ToolDispatcher, gate ConsentRequester, sink TranscriptSink) *Runtime {
	if sink == nil {
		sink = TranscriptSinkFunc(func(TranscriptEntry) {})
	}
	return &Runtime{
		dispatcher: dispatcher,
		gate:       gate,
		sink:       sink,
		policy:     AlwaysRequireConsent,
		recorder:   nopRecorder{},
	}
}

// SetConsentPolicy replaces the consent policy. nil restores AlwaysRequireConsent.
func (r *Runtime) SetConsentPolicy(policy ConsentPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if policy == nil {
		policy = AlwaysRequireConsent
	}
	r.policy = policy
}

// SetRecorder sets the metrics recorder
func (r *Runtime) SetRecorder(recorder Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if recorder == nil {
		recorder = nopRecorder{}
	}
	r.recorder = recorder
}

// SetStateObserver registers a transition observer
func (r *Runtime) SetStateObserver(observer StateObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = observer
}

// Run carries raw through the whole pipeline. It always returns a terminal
// result and never panics on handler failure.
func (r *Runtime) Run(ctx context.Context, raw any) ToolResult {
	r.mu.RLock()
	policy, recorder, observer := r.policy, r.recorder, r.observer
	r.mu.RUnlock()

	callID := NewCallID()
	started := time.Now()
	transition := func(state State) {
		if observer != nil {
			observer(callID, state)
		}
	}

	transition(StateIdle)
	transition(StateNormalizing)

	call, err := toolcall.Normalize(raw)
	if err != nil {
		log.Warn().Err(err).Str("call_id", callID).Msg("Rejected tool call")
		transition(StateCompleted)
		result := ToolResult{
			OK:       false,
			ToolName: unknownToolName,
			Args:     map[string]any{},
			Error:    invalidShapeError,
			CallID:   callID,
			Duration: time.Since(started),
		}
		recorder.RecordInvocation(unknownToolName, result.Outcome(), result.Duration)
		return result
	}

	name, args := call.Name, call.Args
	r.announce(callID, PhaseCall, name, nil, fmt.Sprintf("Calling tool: %s", name))
	log.Info().Str("call_id", callID).Str("tool", name).Msg("Tool call")

	finish := func(result ToolResult) ToolResult {
		result.ToolName = name
		result.Args = args
		result.CallID = callID
		result.Duration = time.Since(started)
		transition(StateCompleted)
		recorder.RecordInvocation(name, result.Outcome(), result.Duration)
		log.Info().
			Str("call_id", callID).
			Str("tool", name).
			Str("outcome", result.Outcome()).
			Dur("duration", result.Duration).
			Msg("Tool call completed")
		return result
	}

	if policy.ConsentRequired(name, args) {
		transition(StateAwaitingConsent)

		outcome := ConsentOutcome{Decision: DecisionCancelled, Reason: ReasonContextDone}
		if r.gate != nil {
			outcome = r.gate.RequestConsent(ctx, callID, name, args)
		}
		if !outcome.Approved() {
			r.announce(callID, PhaseCancelled, name, boolPtr(false), fmt.Sprintf("Tool cancelled: %s", name))
			return finish(ToolResult{OK: false, Cancelled: true})
		}
	}

	transition(StateInvoking)

	text, err := r.dispatch(ctx, callID, name, args)
	if err != nil {
		r.announce(callID, PhaseError, name, boolPtr(false), fmt.Sprintf("Tool error: %s\n%s", name, err.Error()))
		log.Warn().Str("call_id", callID).Str("tool", name).Str("kind", Kind(err)).Err(err).Msg("Tool call failed")
		return finish(ToolResult{OK: false, Error: err.Error()})
	}

	r.announce(callID, PhaseResult, name, boolPtr(true), fmt.Sprintf("Tool returned: %s\n%s", name, text))
	return finish(ToolResult{OK: true, Result: text})
}

// RunAll runs each raw call in order. Calls are serialized through the gate.
func (r *Runtime) RunAll(ctx context.Context, raws []any) []ToolResult {
	results := make([]ToolResult, 0, len(raws))
	for _, raw := range raws {
		results = append(results, r.Run(ctx, raw))
	}
	return results
}

func (r *Runtime) dispatch(ctx context.Context, callID, name string, args map[string]any) (text string, err error) {
	if r.dispatcher == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("%s: dispatch panic: %v", name, p)
		}
	}()

	ctx = ContextWithCallInfo(ctx, CallInfo{CallID: callID, ToolName: name})
	return r.dispatcher.Dispatch(ctx, name, args)
}

func (r *Runtime) announce(callID string, phase Phase, name string, ok *bool, content string) {
	r.sink.Append(TranscriptEntry{
		Role:    RoleSystem,
		Content: content,
		Meta: TranscriptMeta{
			Kind:     toolStatusKind,
			Phase:    phase,
			ToolName: name,
			OK:       ok,
			CallID:   callID,
		},
		Timestamp: time.Now(),
	})
}

func boolPtr(v bool) *bool {
	return &v
}
