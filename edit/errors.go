package edit

import (
	"errors"
	"fmt"
)

// Kind classifies an edit pipeline error. A Kind is itself an error so
// callers can test with errors.Is(err, edit.ErrInvalidRange).
type Kind string

// Error kinds.
const (
	ErrParseAmbiguity        Kind = "ParseAmbiguity"
	ErrMissingParameter      Kind = "MissingParameter"
	ErrMalformedParameter    Kind = "MalformedParameter"
	ErrFileNotFound          Kind = "FileNotFound"
	ErrInvalidRange          Kind = "InvalidRange"
	ErrSearchTextNotFound    Kind = "SearchTextNotFound"
	ErrInvalidInsertPosition Kind = "InvalidInsertPosition"
	ErrConcurrentTransaction Kind = "ConcurrentTransaction"
	ErrStorageWriteFailure   Kind = "StorageWriteFailure"
	ErrHostSurfaceFailure    Kind = "HostSurfaceFailure"

	ErrUnknownCommand      Kind = "UnknownCommand"
	ErrUnsupportedCommand  Kind = "UnsupportedCommand"
	ErrPartialInvocation   Kind = "PartialInvocation"
	ErrPathOutsideRoot     Kind = "PathOutsideRoot"
	ErrStorageReadFailure  Kind = "StorageReadFailure"
	ErrNoActiveTransaction Kind = "NoActiveTransaction"
	ErrNoChange            Kind = "NoChange"
)

func (k Kind) Error() string {
	return string(k)
}

// Error is a structured edit pipeline failure. Only the fields relevant to
// Kind are set; Error() renders a single-line message from them.
type Error struct {
	Kind    Kind
	Command string
	Path    string
	Param   string
	Value   string
	Start   int
	End     int
	Lines   int
	TxID    string
	Err     error
	// RevertErr records a failed best-effort revert after Err.
	RevertErr error
}

func (e *Error) Error() string {
	msg := e.message()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) message() string {
	switch e.Kind {
	case ErrMissingParameter:
		if e.Command != "" {
			return fmt.Sprintf("missing value for required parameter '%s' in %s", e.Param, e.Command)
		}
		return fmt.Sprintf("missing value for required parameter '%s'", e.Param)
	case ErrMalformedParameter:
		return fmt.Sprintf("parameter '%s' must be a non-negative integer, got %q", e.Param, e.Value)
	case ErrFileNotFound:
		return fmt.Sprintf("file not found: %s", e.Path)
	case ErrInvalidRange:
		return fmt.Sprintf("invalid line range %d-%d for %s (file has %d lines)", e.Start, e.End, e.Path, e.Lines)
	case ErrSearchTextNotFound:
		return fmt.Sprintf("search block not found in %s", e.Path)
	case ErrInvalidInsertPosition:
		return fmt.Sprintf("invalid line number %d for %s (valid positions are 1 to %d)", e.Start, e.Path, e.Lines+1)
	case ErrConcurrentTransaction:
		return fmt.Sprintf("an edit to %s is already awaiting review", e.Path)
	case ErrStorageWriteFailure:
		return fmt.Sprintf("failed to write %s", e.Path)
	case ErrStorageReadFailure:
		return fmt.Sprintf("failed to read %s", e.Path)
	case ErrHostSurfaceFailure:
		return fmt.Sprintf("diff view failed for %s", e.Path)
	case ErrUnknownCommand:
		return fmt.Sprintf("unknown command '%s'", e.Command)
	case ErrUnsupportedCommand:
		return fmt.Sprintf("command '%s' is not available in this environment", e.Command)
	case ErrPartialInvocation:
		return fmt.Sprintf("command '%s' is incomplete", e.Command)
	case ErrPathOutsideRoot:
		return fmt.Sprintf("path is outside the working directory: %s", e.Path)
	case ErrNoActiveTransaction:
		return fmt.Sprintf("no edit awaiting review for %s", e.Path)
	case ErrNoChange:
		return fmt.Sprintf("edit leaves %s unchanged", e.Path)
	case ErrParseAmbiguity:
		return "ambiguous markup treated as text"
	default:
		return string(e.Kind)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a Kind or another *Error of the same Kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// KindOf extracts the Kind of err, or "" when err is not an edit error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
