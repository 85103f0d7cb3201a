// Package ctxkeys holds the context keys set by the dispatcher for one tool call.
package ctxkeys

// Key identifies a value attached to a tool call context.
type Key string

const (
	// Logger is the call-scoped logger, already tagged with tool and invocation id.
	Logger Key = "tool_call_logger"
	// InvocationID is the UUID7 assigned to the call.
	InvocationID Key = "tool_call_invocation_id"
)
