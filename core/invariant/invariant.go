// Package invariant provides contract assertions for the formula engine.
//
// Assertions guard programmer errors such as a parser that stops advancing or
// an AST that violates its arity invariant. They panic; user mistakes in a
// formula are reported through core/errors instead.
package invariant

import (
	"fmt"
	"runtime"
)

// Precondition checks an input contract at function entry.
// Panics with PRECONDITION VIOLATION if condition is false.
//
// Example:
//
//	func Evaluate(node ast.Node, data any) (*Result, error) {
//	    invariant.NotNil(node, "node")
//	    // ... work ...
//	}
func Precondition(condition bool, format string, args ...any) {
	if !condition {
		fail("PRECONDITION", format, args...)
	}
}

// Postcondition checks an output contract before function return.
func Postcondition(condition bool, format string, args ...any) {
	if !condition {
		fail("POSTCONDITION", format, args...)
	}
}

// Invariant checks internal consistency during execution, e.g. that the
// parser consumed at least one token per expression.
func Invariant(condition bool, format string, args ...any) {
	if !condition {
		fail("INVARIANT", format, args...)
	}
}

// NotNil panics if value is nil, including typed nils such as (*ast.Identifier)(nil)
// stored in an interface.
func NotNil(value any, name string) {
	if value == nil || isNilPointer(value) {
		fail("PRECONDITION", "%s must not be nil", name)
	}
}

func isNilPointer(value any) bool {
	// %p prints 0x0 for nil pointers, maps, slices and funcs
	return fmt.Sprintf("%p", value) == "0x0"
}

// fail panics with a formatted message including the violating call site.
func fail(kind, format string, args ...any) {
	msg := fmt.Sprintf("%s VIOLATION: "+format, append([]any{kind}, args...)...)

	// Skip fail() and the exported wrapper
	if _, file, line, ok := runtime.Caller(2); ok {
		msg += fmt.Sprintf("\n  at %s:%d", file, line)
	}

	panic(msg)
}
