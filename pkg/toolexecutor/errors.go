package toolexecutor

import (
	"errors"

	"github.com/harun/toolgate/pkg/toolcall"
)

// Tool execution errors.
var (
	// ErrUnknownTool is returned when dispatching a name that is not registered.
	ErrUnknownTool = errors.New("Unknown tool")

	// ErrMissingArgument is returned when a required argument is absent or empty.
	ErrMissingArgument = errors.New("missing required arg")

	// ErrInvalidArgument is returned when an argument has the wrong type.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidPattern is returned for a malformed regular expression.
	ErrInvalidPattern = errors.New("invalid regex")

	// ErrNotFound is returned when a file or directory does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIO wraps any other file access failure.
	ErrIO = errors.New("io error")

	// ErrForbiddenPath is returned when a path escapes the project root.
	ErrForbiddenPath = errors.New("forbidden path")

	// ErrUserCancelled marks an explicit human denial. It is an outcome, not a failure.
	ErrUserCancelled = errors.New("cancelled by user")

	// ErrConsentNotPending is returned when resolving a request that is no longer pending.
	ErrConsentNotPending = errors.New("consent request not pending")

	// ErrToolAlreadyRegistered is returned when registering a duplicate name.
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)

// Kind maps an error to its taxonomy name. Unclassified errors are "error".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, toolcall.ErrInvalidShape):
		return "invalid_shape"
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.Is(err, ErrMissingArgument):
		return "missing_argument"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidPattern):
		return "invalid_pattern"
	case errors.Is(err, ErrForbiddenPath):
		return "forbidden_path"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIO):
		return "io_error"
	case errors.Is(err, ErrUserCancelled):
		return "user_cancelled"
	default:
		return "error"
	}
}
