package gateway

import (
	"context"
	"time"

	"github.com/harun/toolgate/pkg/toolexecutor"
)

type presentedConsent struct {
	req      toolexecutor.ConsentRequest
	resolver toolexecutor.ConsentResolver
}

// PresentConsent implements toolexecutor.ConsentPresenter. The request is
// broadcast to operators and withdrawn once the gate settles it.
func (s *Server) PresentConsent(ctx context.Context, req toolexecutor.ConsentRequest, resolver toolexecutor.ConsentResolver) {
	s.consentMu.Lock()
	s.pending = &presentedConsent{req: req, resolver: resolver}
	s.consentMu.Unlock()

	s.broadcaster.BroadcastTyped(consentRequestedEvent(req))

	go func() {
		<-ctx.Done()

		s.consentMu.Lock()
		if s.pending != nil && s.pending.req.ID == req.ID {
			s.pending = nil
		}
		s.consentMu.Unlock()

		s.broadcaster.BroadcastTyped(EventMessage{
			Event:  EventConsentWithdrawn,
			Stream: StreamTypeConsent,
			Phase:  "withdrawn",
			CallID: req.ID,
			Data:   map[string]interface{}{"id": req.ID, "tool_name": req.ToolName},
		})
	}()
}

// PendingConsent returns the request operators are currently asked about
func (s *Server) PendingConsent() (toolexecutor.ConsentRequest, bool) {
	s.consentMu.Lock()
	defer s.consentMu.Unlock()

	if s.pending == nil {
		return toolexecutor.ConsentRequest{}, false
	}
	return s.pending.req, true
}

// ResolveConsent forwards an operator decision to the gate
func (s *Server) ResolveConsent(id string, decision toolexecutor.Decision) error {
	s.consentMu.Lock()
	pending := s.pending
	s.consentMu.Unlock()

	if pending == nil {
		return toolexecutor.ErrConsentNotPending
	}
	return pending.resolver.Resolve(id, decision)
}

// PublishTranscriptEntry mirrors one transcript entry to operators
func (s *Server) PublishTranscriptEntry(entry toolexecutor.TranscriptEntry) {
	s.broadcaster.BroadcastTyped(EventMessage{
		Event:     EventTranscriptEntry,
		Stream:    StreamTypeTranscript,
		Phase:     string(entry.Meta.Phase),
		CallID:    entry.Meta.CallID,
		Data:      entry,
		Timestamp: entry.Timestamp.UnixMilli(),
	})
}

// FollowTranscript mirrors transcript entries until ctx is done or the transcript closes
func (s *Server) FollowTranscript(ctx context.Context, transcript *toolexecutor.Transcript) error {
	return transcript.Consume(ctx, s.PublishTranscriptEntry)
}

// replayPendingConsent shows a late operator the request already waiting
func (s *Server) replayPendingConsent(client *Client) {
	req, ok := s.PendingConsent()
	if !ok {
		return
	}
	if err := s.broadcaster.SendTo(client, consentRequestedEvent(req)); err != nil {
		s.logger.Warn().Err(err).Str("clientId", client.ID).Msg("Failed to replay pending consent")
	}
}

func consentRequestedEvent(req toolexecutor.ConsentRequest) EventMessage {
	data := map[string]interface{}{
		"id":         req.ID,
		"tool_name":  req.ToolName,
		"args":       req.Args,
		"prompt":     req.Prompt,
		"created_at": req.CreatedAt.UnixMilli(),
	}
	if !req.ExpiresAt.IsZero() {
		data["expires_at"] = req.ExpiresAt.UnixMilli()
	}

	return EventMessage{
		Event:     EventConsentRequested,
		Stream:    StreamTypeConsent,
		Phase:     "approval_required",
		CallID:    req.ID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}
