package toolexecutor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// recordingPresenter captures presented requests and leaves them pending
type recordingPresenter struct {
	mu        sync.Mutex
	requests  []ConsentRequest
	contexts  []context.Context
	presented chan ConsentRequest
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{presented: make(chan ConsentRequest, 16)}
}

func (p *recordingPresenter) PresentConsent(ctx context.Context, req ConsentRequest, _ ConsentResolver) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.contexts = append(p.contexts, ctx)
	p.mu.Unlock()
	p.presented <- req
}

func (p *recordingPresenter) next(t *testing.T) ConsentRequest {
	t.Helper()
	select {
	case req := <-p.presented:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("consent request was not presented")
		return ConsentRequest{}
	}
}

func (p *recordingPresenter) context(i int) context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.contexts[i]
}

func TestParseDecision(t *testing.T) {
	for _, in := range []string{"approve", "Approved", " yes ", "y", "allow"} {
		d, err := ParseDecision(in)
		require.NoError(t, err, in)
		assert.Equal(t, DecisionApproved, d)
	}
	for _, in := range []string{"cancel", "deny", "no", "N"} {
		d, err := ParseDecision(in)
		require.NoError(t, err, in)
		assert.Equal(t, DecisionCancelled, d)
	}
	_, err := ParseDecision("maybe")
	assert.Error(t, err)
}

func TestConsentGate_ApproveAndCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, decision := range []Decision{DecisionApproved, DecisionCancelled} {
		t.Run(string(decision), func(t *testing.T) {
			gate := NewConsentGate(ConsentPresenterFunc(func(_ context.Context, req ConsentRequest, resolver ConsentResolver) {
				go func() { _ = resolver.Resolve(req.ID, decision) }()
			}))

			outcome := gate.RequestConsent(context.Background(), "c1", "read_file", map[string]any{"path": "x"})
			assert.Equal(t, decision, outcome.Decision)
			assert.Equal(t, ReasonUser, outcome.Reason)

			_, pending := gate.Pending()
			assert.False(t, pending)
		})
	}
}

func TestConsentGate_SupersedeCancelsFirstBeforePresentingSecond(t *testing.T) {
	defer goleak.VerifyNone(t)

	presenter := newRecordingPresenter()
	gate := NewConsentGate(presenter)

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		events = append(events, s)
		mu.Unlock()
	}

	firstDone := make(chan ConsentOutcome, 1)
	go func() {
		outcome := gate.RequestConsent(context.Background(), "first", "read_file", nil)
		record("first settled")
		firstDone <- outcome
	}()
	first := presenter.next(t)
	assert.Equal(t, "first", first.ID)

	secondDone := make(chan ConsentOutcome, 1)
	go func() {
		secondDone <- gate.RequestConsent(context.Background(), "second", "list_dir", nil)
	}()

	second := presenter.next(t)
	assert.Equal(t, "second", second.ID)

	// The first request was already withdrawn when the second was presented.
	select {
	case <-presenter.context(0).Done():
	default:
		t.Fatal("first request still live while second presented")
	}

	outcome := <-firstDone
	assert.Equal(t, DecisionCancelled, outcome.Decision)
	assert.Equal(t, ReasonSuperseded, outcome.Reason)

	pending, ok := gate.Pending()
	require.True(t, ok)
	assert.Equal(t, "second", pending.ID)

	// A late decision for the superseded request changes nothing.
	assert.ErrorIs(t, gate.Approve("first"), ErrConsentNotPending)

	require.NoError(t, gate.Approve("second"))
	assert.True(t, (<-secondDone).Approved())

	mu.Lock()
	assert.Equal(t, []string{"first settled"}, events)
	mu.Unlock()
}

func TestConsentGate_ResolveIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	presenter := newRecordingPresenter()
	gate := NewConsentGate(presenter)

	done := make(chan ConsentOutcome, 1)
	go func() { done <- gate.RequestConsent(context.Background(), "c1", "read_file", nil) }()
	presenter.next(t)

	require.NoError(t, gate.Cancel("c1"))
	assert.ErrorIs(t, gate.Cancel("c1"), ErrConsentNotPending)
	assert.ErrorIs(t, gate.Approve("c1"), ErrConsentNotPending)

	outcome := <-done
	assert.Equal(t, DecisionCancelled, outcome.Decision)
	assert.Equal(t, ReasonUser, outcome.Reason)
}

func TestConsentGate_ResolveRejectsUnknownDecision(t *testing.T) {
	gate := NewConsentGate(nil)
	assert.Error(t, gate.Resolve("x", Decision("maybe")))
}

func TestConsentGate_ContextCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	presenter := newRecordingPresenter()
	gate := NewConsentGate(presenter)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan ConsentOutcome, 1)
	go func() { done <- gate.RequestConsent(ctx, "c1", "read_file", nil) }()
	presenter.next(t)

	cancel()
	outcome := <-done
	assert.Equal(t, DecisionCancelled, outcome.Decision)
	assert.Equal(t, ReasonContextDone, outcome.Reason)

	_, pending := gate.Pending()
	assert.False(t, pending)
}

func TestConsentGate_Timeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	gate := NewConsentGate(nil)
	gate.SetTimeout(20 * time.Millisecond)

	outcome := gate.RequestConsent(context.Background(), "c1", "read_file", nil)
	assert.Equal(t, DecisionCancelled, outcome.Decision)
	assert.Equal(t, ReasonTimeout, outcome.Reason)
}

func TestConsentGate_RequestCarriesCopyOfArgs(t *testing.T) {
	args := map[string]any{"path": "x", "nested": map[string]any{"k": "v"}}

	gate := NewConsentGate(ConsentPresenterFunc(func(_ context.Context, req ConsentRequest, resolver ConsentResolver) {
		req.Args["path"] = "tampered"
		req.Args["nested"].(map[string]any)["k"] = "tampered"
		_ = resolver.Resolve(req.ID, DecisionApproved)
	}))

	outcome := gate.RequestConsent(context.Background(), "c1", "read_file", args)
	require.True(t, outcome.Approved())
	assert.Equal(t, "x", args["path"])
	assert.Equal(t, "v", args["nested"].(map[string]any)["k"])
}

func TestConsentGate_GeneratesIDWhenEmpty(t *testing.T) {
	var seen string
	gate := NewConsentGate(ConsentPresenterFunc(func(_ context.Context, req ConsentRequest, resolver ConsentResolver) {
		seen = req.ID
		_ = resolver.Resolve(req.ID, DecisionApproved)
	}))

	gate.RequestConsent(context.Background(), "", "read_file", nil)
	assert.Len(t, seen, callIDLength)
}

func TestBuildConsentPrompt(t *testing.T) {
	assert.Equal(t, "Approve tool call?\n\nTool: list_dir\nArgs:\n{}", BuildConsentPrompt("list_dir", nil))
	assert.Equal(t,
		"Approve tool call?\n\nTool: read_file\nArgs:\n{\n  \"path\": \"a.txt\"\n}",
		BuildConsentPrompt("read_file", map[string]any{"path": "a.txt"}),
	)
}

func TestAutoApprovePresenter(t *testing.T) {
	gate := NewConsentGate(AutoApprovePresenter{})
	outcome := gate.RequestConsent(context.Background(), "c1", "write_file", nil)
	assert.True(t, outcome.Approved())
}

func TestMultiPresenter_FirstDecisionWins(t *testing.T) {
	defer goleak.VerifyNone(t)

	first := newRecordingPresenter()
	second := newRecordingPresenter()
	gate := NewConsentGate(MultiPresenter{first, nil, second})

	done := make(chan ConsentOutcome, 1)
	go func() {
		done <- gate.RequestConsent(context.Background(), "c1", "write_file", map[string]any{"path": "a"})
	}()

	shownFirst := first.next(t)
	shownSecond := second.next(t)
	assert.Equal(t, "c1", shownFirst.ID)
	assert.Equal(t, shownFirst.Prompt, shownSecond.Prompt)

	shownFirst.Args["path"] = "edited"
	assert.Equal(t, "a", shownSecond.Args["path"], "each presenter gets its own args")

	require.NoError(t, gate.Cancel("c1"))
	assert.ErrorIs(t, gate.Approve("c1"), ErrConsentNotPending)
	assert.False(t, (<-done).Approved())

	for _, ctx := range []context.Context{first.context(0), second.context(0)} {
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("presenter context was not withdrawn")
		}
	}
}
