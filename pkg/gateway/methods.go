package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harun/toolgate/pkg/toolexecutor"
)

// registerBuiltinMethods registers all built-in RPC methods
func (s *Server) registerBuiltinMethods() {
	_ = s.router.RegisterMethod("consent.pending", s.handleConsentPending)
	_ = s.router.RegisterMethod("consent.resolve", s.handleConsentResolve)
	_ = s.router.RegisterMethod("tools.list", s.handleToolsList)
	_ = s.router.RegisterMethod("transcript.entries", s.handleTranscriptEntries)
	_ = s.router.RegisterMethod("clients.list", s.handleClientsList)
}

// handleConsentPending returns the pending request, or {"pending": false}
func (s *Server) handleConsentPending(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	req, ok := s.PendingConsent()
	if !ok {
		return map[string]interface{}{"pending": false}, nil
	}
	return map[string]interface{}{"pending": true, "request": req}, nil
}

// handleConsentResolve handles {"id": "...", "decision": "approve|cancel"}
func (s *Server) handleConsentResolve(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, _ := params["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "id is required"}
	}

	rawDecision, _ := params["decision"].(string)
	decision, err := toolexecutor.ParseDecision(rawDecision)
	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: err.Error()}
	}

	if err := s.ResolveConsent(id, decision); err != nil {
		if errors.Is(err, toolexecutor.ErrConsentNotPending) {
			return nil, &RPCError{Code: ConsentNotPending, Message: fmt.Sprintf("consent request %s is not pending", id)}
		}
		return nil, err
	}

	s.clients.RecordDecision(ClientIDFromContext(ctx))
	s.logger.Info().
		Str("call_id", id).
		Str("decision", string(decision)).
		Str("clientId", ClientIDFromContext(ctx)).
		Msg("Consent resolved by operator")

	return map[string]interface{}{"id": id, "decision": decision}, nil
}

func (s *Server) handleToolsList(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	if s.tools == nil {
		return []toolexecutor.ToolDefinition{}, nil
	}
	return s.tools.Definitions(), nil
}

// handleTranscriptEntries returns entries with seq greater than "after"
func (s *Server) handleTranscriptEntries(_ context.Context, params map[string]interface{}) (interface{}, error) {
	if s.transcript == nil {
		return []toolexecutor.TranscriptEntry{}, nil
	}

	var after uint64
	if value, ok := params["after"].(float64); ok && value > 0 {
		after = uint64(value)
	}

	entries := s.transcript.Entries()
	out := make([]toolexecutor.TranscriptEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Seq > after {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *Server) handleClientsList(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	return s.GetConnectedClients(), nil
}
