// Package toolcall decodes model-proposed tool calls into one canonical form.
//
// Invariants:
// - Decoding tries each wire shape in a fixed priority order and stops at the first match.
// - A JSON-encoded string is parsed at most once; nested encodings are rejected.
// - Anything that is not one of the accepted shapes is ErrInvalidShape, never a silent no-op.
//
// Usage:
//
//	call, err := toolcall.Normalize(`{"name":"read_file","arguments":"{\"path\":\"main.go\"}"}`)
//	if errors.Is(err, toolcall.ErrInvalidShape) {
//		// reject the proposal
//	}
package toolcall
