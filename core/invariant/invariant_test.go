package invariant_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/invariant"
)

// mustPanic runs fn and returns the panic message, failing if fn returns normally
func mustPanic(t *testing.T, fn func()) (msg string) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		msg = fmt.Sprintf("%v", r)
	}()
	fn()
	return ""
}

func TestPassingAssertionsDoNotPanic(t *testing.T) {
	x := 1
	invariant.Precondition(x == 1, "math works")
	invariant.Postcondition(len("hello") > 0, "string not empty")
	invariant.Invariant(true, "always")
	invariant.NotNil(&ast.Identifier{Value: "a"}, "node")
	invariant.NotNil("text", "value")
	invariant.NotNil(0, "zero is not nil")
}

func TestFailingAssertions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want []string
	}{
		{
			name: "precondition",
			fn:   func() { invariant.Precondition(false, "data must not be empty") },
			want: []string{"PRECONDITION VIOLATION", "data must not be empty"},
		},
		{
			name: "postcondition",
			fn:   func() { invariant.Postcondition(false, "call %s has %d args", "concat", 1) },
			want: []string{"POSTCONDITION VIOLATION", "call concat has 1 args"},
		},
		{
			name: "invariant",
			fn:   func() { invariant.Invariant(false, "parser stuck at %d", 7) },
			want: []string{"INVARIANT VIOLATION", "parser stuck at 7"},
		},
		{
			name: "untyped nil",
			fn:   func() { invariant.NotNil(nil, "node") },
			want: []string{"PRECONDITION VIOLATION", "node must not be nil"},
		},
		{
			name: "typed nil",
			fn: func() {
				var id *ast.Identifier
				var node ast.Node = id
				invariant.NotNil(node, "node")
			},
			want: []string{"PRECONDITION VIOLATION", "node must not be nil"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := mustPanic(t, tt.fn)
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("panic message %q does not contain %q", msg, want)
				}
			}
		})
	}
}

func TestViolationNamesCallSite(t *testing.T) {
	msg := mustPanic(t, func() { invariant.Invariant(false, "boom") })
	if !strings.Contains(msg, "at ") || !strings.Contains(msg, "invariant_test.go:") {
		t.Errorf("expected call site in panic message, got: %s", msg)
	}
}

func ExamplePrecondition() {
	defer func() {
		r := recover()
		fmt.Println(strings.SplitN(fmt.Sprint(r), "\n", 2)[0])
	}()
	invariant.Precondition(false, "max must be positive, got %d", -1)
	// Output: PRECONDITION VIOLATION: max must be positive, got -1
}
