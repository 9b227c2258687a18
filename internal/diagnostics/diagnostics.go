package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode string

const (
	ErrR001 ErrorCode = "R001" // Duplicate extension declaration
	ErrR002 ErrorCode = "R002" // Scope imbalance
	ErrR003 ErrorCode = "R003" // No extension method in scope
	ErrR004 ErrorCode = "R004" // Ambiguous extension method
	ErrR005 ErrorCode = "R005" // Invalid unit manifest
)

// Sentinel errors, matched with errors.Is against a *DiagnosticError.
var (
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrScopeImbalance       = errors.New("scope imbalance")
	ErrUnresolved           = errors.New("unresolved")
	ErrAmbiguous            = errors.New("ambiguous")
	ErrInvalidManifest      = errors.New("invalid manifest")
)

var codeSentinels = map[ErrorCode]error{
	ErrR001: ErrDuplicateDeclaration,
	ErrR002: ErrScopeImbalance,
	ErrR003: ErrUnresolved,
	ErrR004: ErrAmbiguous,
	ErrR005: ErrInvalidManifest,
}

// Category returns the taxonomy name of a code.
func (c ErrorCode) Category() string {
	switch c {
	case ErrR001:
		return "DuplicateDeclaration"
	case ErrR002:
		return "ScopeImbalance"
	case ErrR003:
		return "Unresolved"
	case ErrR004:
		return "Ambiguous"
	case ErrR005:
		return "InvalidManifest"
	default:
		return "Unknown"
	}
}

// Fatal reports whether the error aborts the whole unit rather than a
// single call site.
func (c ErrorCode) Fatal() bool {
	return c == ErrR001 || c == ErrR002 || c == ErrR005
}

// Position is a source location supplied by the host front end.
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) IsValid() bool { return p.Line > 0 }

func (p Position) String() string {
	var b strings.Builder
	if p.File != "" {
		b.WriteString(p.File)
	}
	if p.Line > 0 {
		if b.Len() > 0 {
			b.WriteString(":")
		}
		fmt.Fprintf(&b, "%d", p.Line)
		if p.Column > 0 {
			fmt.Fprintf(&b, ":%d", p.Column)
		}
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// DiagnosticError is one reportable failure. Receiver and Candidates are
// filled for call-site failures; the host owns presentation.
type DiagnosticError struct {
	Code       ErrorCode
	Pos        Position
	Message    string
	CallSite   string   // Identity of the failing call site, if any
	Receiver   string   // Static receiver type, if any
	Candidates []string // Tied candidates for ambiguous calls
	Cause      error
}

func NewError(code ErrorCode, pos Position, msg string) *DiagnosticError {
	return &DiagnosticError{Code: code, Pos: pos, Message: msg}
}

func NewErrorf(code ErrorCode, pos Position, format string, args ...interface{}) *DiagnosticError {
	return NewError(code, pos, fmt.Sprintf(format, args...))
}

// Wrap attaches an underlying cause.
func (e *DiagnosticError) Wrap(cause error) *DiagnosticError {
	e.Cause = cause
	return e
}

func (e *DiagnosticError) Error() string {
	prefix := fmt.Sprintf("[%s] %s", e.Code, e.Code.Category())
	if e.Pos.IsValid() {
		prefix = e.Pos.String() + ": " + prefix
	}
	msg := prefix + ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if len(e.Candidates) > 0 {
		msg += " (candidates: " + strings.Join(e.Candidates, ", ") + ")"
	}
	return msg
}

func (e *DiagnosticError) Unwrap() error {
	return e.Cause
}

func (e *DiagnosticError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}
