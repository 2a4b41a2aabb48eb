// Package vmesserrors provides the codec's error type, which carries the
// VMess decode error taxonomy as a typed Kind.
package vmesserrors

import (
	"runtime"
	"strings"
)

const trim = len("github.com/xtls/vmess-codec/")

// Kind enumerates the terminal decode-failure classes a caller may want to
// branch on, per the protocol's error taxonomy.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnexpectedEOF
	KindAuthFailed
	KindInvalidState
	KindVersionMismatch
	KindReservedBitsSet
	KindUnknownAddressType
	KindUnsupportedCommand
	KindChecksumMismatch
	KindResponseHeaderMismatch
	KindUnsupportedSecurity
	KindAuthTagMismatch
)

func (k Kind) String() string {
	switch k {
	case KindUnexpectedEOF:
		return "UnexpectedEof"
	case KindAuthFailed:
		return "AuthFailed"
	case KindInvalidState:
		return "InvalidState"
	case KindVersionMismatch:
		return "VersionMismatch"
	case KindReservedBitsSet:
		return "ReservedBitsSet"
	case KindUnknownAddressType:
		return "UnknownAddressType"
	case KindUnsupportedCommand:
		return "UnsupportedCommand"
	case KindChecksumMismatch:
		return "ChecksumMismatch"
	case KindResponseHeaderMismatch:
		return "ResponseHeaderMismatch"
	case KindUnsupportedSecurity:
		return "UnsupportedSecurity"
	case KindAuthTagMismatch:
		return "AuthTagMismatch"
	default:
		return "Unknown"
	}
}

// Error is a decode error carrying a Kind, a message, and an optional
// wrapped cause.
type Error struct {
	kind    Kind
	message string
	caller  string
	inner   error
}

// Error implements error.
func (err *Error) Error() string {
	builder := strings.Builder{}
	builder.WriteByte('[')
	builder.WriteString(err.kind.String())
	builder.WriteString("] ")
	if len(err.caller) > 0 {
		builder.WriteString(err.caller)
		builder.WriteString(": ")
	}
	builder.WriteString(err.message)
	if err.inner != nil {
		builder.WriteString(" > ")
		builder.WriteString(err.inner.Error())
	}
	return builder.String()
}

// Unwrap implements the errors.Unwrap interface.
func (err *Error) Unwrap() error {
	return err.inner
}

// Base attaches an underlying cause and returns err for chaining.
func (err *Error) Base(cause error) *Error {
	err.inner = cause
	return err
}

// Kind returns the error's taxonomy kind.
func (err *Error) Kind() Kind {
	return err.kind
}

// New returns a new *Error of the given kind with message formed from msg.
func New(kind Kind, msg string) *Error {
	pc, _, _, _ := runtime.Caller(1)
	details := runtime.FuncForPC(pc).Name()
	if len(details) >= trim {
		details = details[trim:]
	}
	if i := strings.Index(details, "."); i > 0 {
		details = details[:i]
	}
	return &Error{
		kind:    kind,
		message: msg,
		caller:  details,
	}
}

// KindOf returns the Kind carried by err, or KindUnknown if err is not one
// of ours.
func KindOf(err error) Kind {
	var target *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			target = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if target == nil {
		return KindUnknown
	}
	return target.kind
}
