// Package toolexecutor runs model-proposed tool calls behind explicit human consent.
//
// Invariants:
// - Tool names are unique within a Registry.
// - At most one consent request is pending per ConsentGate; a newer request cancels the older one.
// - A handler runs only when the consent policy waives consent or the pending request was approved.
// - Every Runtime.Run call ends in exactly one ToolResult; failures are values, never panics.
//
// Usage:
//
//	reg := toolexecutor.NewRegistry()
//	_ = reg.RegisterTool(toolexecutor.ToolDefinition{
//		Name:        "echo",
//		Description: "Echo input",
//		Category:    toolexecutor.CategoryRead,
//		Parameters:  []toolexecutor.ToolParameter{{Name: "text", Type: "string", Description: "text", Required: true}},
//		Handler: func(ctx context.Context, args map[string]any) (string, error) {
//			return fmt.Sprint(args["text"]), nil
//		},
//	})
//	transcript := toolexecutor.NewTranscript()
//	gate := toolexecutor.NewConsentGate(presenter)
//	rt := toolexecutor.NewRuntime(reg, gate, transcript)
//	result := rt.Run(ctx, `{"name":"echo","args":{"text":"hi"}}`)
package toolexecutor
