// Package errors defines the typed failures raised by the formula engine.
//
// Every failure carries a Kind so callers branch on the kind of problem,
// never on message text. Import it under an alias (conventionally ferrors)
// to avoid shadowing the standard library package.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/aledsdavies/formula/core/types"
)

// Kind is the coarse category of a failure
type Kind int

const (
	KindSyntax          Kind = iota // tokenizer/parser, always fatal
	KindArity                       // parser, wrong argument count for a known function
	KindFieldResolution             // interpreter, missing key or out-of-range index
	KindRuntime                     // interpreter, e.g. forEach over a non-sequence
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindArity:
		return "ArityError"
	case KindFieldResolution:
		return "FieldResolutionError"
	case KindRuntime:
		return "RuntimeError"
	default:
		return "Error"
	}
}

// Class refines syntax failures so each gets its own user guidance
type Class int

const (
	ClassNone Class = iota
	ClassUnknownCharacter
	ClassUnterminatedString
	ClassUnknownFunction
	ClassUnexpectedToken
	ClassUnterminatedGroup
	ClassUnterminatedWrapper
	ClassMissingWrapper
	ClassArityMismatch
)

func (c Class) String() string {
	switch c {
	case ClassUnknownCharacter:
		return "unknown character"
	case ClassUnterminatedString:
		return "unterminated string"
	case ClassUnknownFunction:
		return "unknown function"
	case ClassUnexpectedToken:
		return "unexpected token"
	case ClassUnterminatedGroup:
		return "unterminated group"
	case ClassUnterminatedWrapper:
		return "unterminated formula"
	case ClassMissingWrapper:
		return "missing '{{'"
	case ClassArityMismatch:
		return "wrong number of arguments"
	default:
		return "error"
	}
}

// Kinded is implemented by every engine error
type Kinded interface {
	error
	Kind() Kind
}

// KindOf reports the kind of the first engine error in err's chain
func KindOf(err error) (Kind, bool) {
	var k Kinded
	if stderrors.As(err, &k) {
		return k.Kind(), true
	}
	return 0, false
}

// Is reports whether err's chain contains an engine error of the given kind
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// SyntaxError is raised by the tokenizer and the parser
type SyntaxError struct {
	Class    Class
	Message  string // Clear, specific: "unknown function 'concatt'"
	Context  string // What we were parsing: "arguments of concat"
	Position types.Position
	Range    types.Range

	// Set for arity failures
	Function string
	Expected int
	Got      int

	// How to fix it
	Suggestion string // "did you mean 'concat'?"
	Example    string // "{{ concat \"a\" \"b\" }}"
}

// Kind reports KindArity for argument count failures and KindSyntax otherwise
func (e *SyntaxError) Kind() Kind {
	if e.Class == ClassArityMismatch {
		return KindArity
	}
	return KindSyntax
}

func (e *SyntaxError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s: %s", e.Kind(), e.Position, e.Message)
	if e.Context != "" {
		fmt.Fprintf(&b, " (in %s)", e.Context)
	}
	return b.String()
}

// FieldResolutionError is raised when a path step finds no key or index
type FieldResolutionError struct {
	Path  string      // Cumulative path up to and including the failing step
	Range types.Range // Identifier that was being resolved

	// Index step failures
	IsIndex bool
	Index   int
	Length  int

	// Keys present on the record where a property step failed
	Available []string

	Reason string // Set when the current value had the wrong shape
}

func (e *FieldResolutionError) Kind() Kind { return KindFieldResolution }

func (e *FieldResolutionError) Error() string {
	switch {
	case e.Reason != "":
		return fmt.Sprintf("cannot resolve %q: %s", e.Path, e.Reason)
	case e.IsIndex:
		return fmt.Sprintf("index %d out of range for %q (length %d)", e.Index, e.Path, e.Length)
	default:
		return fmt.Sprintf("field %q not found", e.Path)
	}
}

// RuntimeError is raised by built-ins that receive unusable values
type RuntimeError struct {
	Function string
	Message  string
	Range    types.Range
	Cause    error
}

func (e *RuntimeError) Kind() Kind { return KindRuntime }

func (e *RuntimeError) Error() string {
	msg := e.Message
	if e.Function != "" {
		msg = e.Function + ": " + msg
	}
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap allows error unwrapping
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// NewRuntimeError creates a runtime error for a built-in
func NewRuntimeError(function string, rng types.Range, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Function: function,
		Message:  fmt.Sprintf(format, args...),
		Range:    rng,
	}
}
