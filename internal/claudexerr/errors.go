// Package claudexerr implements a small error taxonomy as a Go error
// enum instead of string-matched ad-hoc errors.
package claudexerr

import "fmt"

// Kind enumerates the failure categories a core subsystem can report.
type Kind int

const (
	KindUnknown Kind = iota
	KindStoreUnavailable
	KindStoreIntegrityFailure
	KindSidecarUnreachable
	KindSidecarTimeout
	KindSidecarProtocolError
	KindRedactionFailure
	KindParseFailure
	KindFilesystemFailure
	KindConfigFailure
)

func (k Kind) String() string {
	switch k {
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindStoreIntegrityFailure:
		return "StoreIntegrityFailure"
	case KindSidecarUnreachable:
		return "SidecarUnreachable"
	case KindSidecarTimeout:
		return "SidecarTimeout"
	case KindSidecarProtocolError:
		return "SidecarProtocolError"
	case KindRedactionFailure:
		return "RedactionFailure"
	case KindParseFailure:
		return "ParseFailure"
	case KindFilesystemFailure:
		return "FilesystemFailure"
	case KindConfigFailure:
		return "ConfigFailure"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with the operation that produced it
// and its taxonomy Kind, so callers can errors.Is/errors.As on Kind
// instead of matching strings.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a typed Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is a claudexerr.Error of the given Kind,
// unwrapping through wrapped errors.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
