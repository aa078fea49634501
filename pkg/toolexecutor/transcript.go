package toolexecutor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase tags a tool status line in the transcript
type Phase string

const (
	PhaseCall      Phase = "call"
	PhaseResult    Phase = "result"
	PhaseCancelled Phase = "cancelled"
	PhaseError     Phase = "error"
)

// RoleSystem is the transcript role used for tool status lines
const RoleSystem = "system"

// TranscriptMeta describes a tool status line
type TranscriptMeta struct {
	Kind     string `json:"kind"`
	Phase    Phase  `json:"phase"`
	ToolName string `json:"tool_name"`
	OK       *bool  `json:"ok,omitempty"`
	CallID   string `json:"call_id,omitempty"`
}

// TranscriptEntry is one append-only transcript line
type TranscriptEntry struct {
	Seq       uint64         `json:"seq"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Meta      TranscriptMeta `json:"meta"`
	Timestamp time.Time      `json:"timestamp"`
}

// TranscriptSink receives transcript entries. Append must not block.
type TranscriptSink interface {
	Append(entry TranscriptEntry)
}

// TranscriptSinkFunc adapts a function to TranscriptSink
type TranscriptSinkFunc func(entry TranscriptEntry)

// Append implements TranscriptSink
func (f TranscriptSinkFunc) Append(entry TranscriptEntry) {
	f(entry)
}

// Transcript is an ordered, unbounded mailbox of entries. Producers never
// block; each consumer reads every entry in append order at its own pace.
type Transcript struct {
	SessionID string

	mu      sync.Mutex
	entries []TranscriptEntry
	changed chan struct{}
	closed  bool
}

// NewTranscript creates an empty transcript with a fresh session id
func NewTranscript() *Transcript {
	return &Transcript{
		SessionID: uuid.NewString(),
		changed:   make(chan struct{}),
	}
}

// Append implements TranscriptSink. Entries appended after Close are dropped.
func (t *Transcript) Append(entry TranscriptEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	entry.Seq = uint64(len(t.entries)) + 1
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	t.entries = append(t.entries, entry)

	close(t.changed)
	t.changed = make(chan struct{})
}

// Entries returns a snapshot of all entries
func (t *Transcript) Entries() []TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries appended so far
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close stops accepting entries. Consumers drain what is left and return.
func (t *Transcript) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	close(t.changed)
}

// Consume calls fn for every entry, in order, starting from the first one.
// It returns nil after Close once everything is delivered, or ctx.Err().
func (t *Transcript) Consume(ctx context.Context, fn func(TranscriptEntry)) error {
	cursor := 0
	for {
		t.mu.Lock()
		batch := append([]TranscriptEntry(nil), t.entries[cursor:]...)
		changed := t.changed
		closed := t.closed
		t.mu.Unlock()

		for _, entry := range batch {
			fn(entry)
		}
		cursor += len(batch)

		if len(batch) > 0 {
			continue
		}
		if closed {
			return nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
