package toolexecutor

import "context"

type callInfoKey struct{}

// CallInfo identifies the invocation a handler is running for.
type CallInfo struct {
	CallID   string
	ToolName string
}

// ContextWithCallInfo attaches call info to a context.Context for tool handlers.
func ContextWithCallInfo(ctx context.Context, info CallInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFromContext extracts call info from a context.Context.
func CallInfoFromContext(ctx context.Context) (CallInfo, bool) {
	if ctx == nil {
		return CallInfo{}, false
	}
	info, ok := ctx.Value(callInfoKey{}).(CallInfo)
	return info, ok
}
