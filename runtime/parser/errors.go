package parser

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/builtins"
	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/core/types"
)

// Snippet renders the source line of a position with a caret under the
// column, Rust/Clang style. Returns "" when the position is outside source.
func Snippet(source string, pos types.Position) string {
	if source == "" || pos.Line == 0 {
		return ""
	}

	lines := strings.Split(source, "\n")
	if pos.Line > len(lines) {
		return ""
	}
	lineContent := lines[pos.Line-1]

	var snippet strings.Builder
	fmt.Fprintf(&snippet, "  --> %d:%d\n", pos.Line, pos.Column)
	snippet.WriteString("   |\n")
	fmt.Fprintf(&snippet, "%2d | %s\n", pos.Line, lineContent)
	snippet.WriteString("   | ")
	if pos.Column > 0 && pos.Column <= len([]rune(lineContent))+1 {
		snippet.WriteString(strings.Repeat(" ", pos.Column-1) + "^")
	}
	return snippet.String()
}

// Helper functions for creating the parser's error classes

func (p *parser) unexpected(tok types.Token, expected, context string) error {
	return &ferrors.SyntaxError{
		Class:    ferrors.ClassUnexpectedToken,
		Message:  fmt.Sprintf("expected %s, got %s", expected, describe(tok)),
		Context:  context,
		Position: tok.Position,
		Range:    tok.Range,
	}
}

func (p *parser) unknownFunction(id *ast.Identifier, pos types.Position) error {
	err := &ferrors.SyntaxError{
		Class:    ferrors.ClassUnknownFunction,
		Message:  fmt.Sprintf("unknown function '%s'", id.Value),
		Position: pos,
		Range:    id.Span,
		Function: id.Value,
	}
	if name, ok := builtins.Suggest(id.Value); ok {
		err.Suggestion = fmt.Sprintf("did you mean '%s'?", name)
		if spec, ok := builtins.Lookup(name); ok {
			err.Example = spec.Example
		}
	}
	return err
}

func (p *parser) arity(name string, nameTok types.Token, got int, at types.Token, rng types.Range) error {
	spec, _ := builtins.Lookup(name)
	want := spec.Arity()

	var msg string
	if got < want {
		msg = fmt.Sprintf("'%s' expects %d %s but got %d, found %s where argument '%s' was expected",
			name, want, plural(want, "argument"), got, describe(at), spec.Params[got])
	} else {
		msg = fmt.Sprintf("'%s' expects %d %s but got %d", name, want, plural(want, "argument"), got)
	}

	return &ferrors.SyntaxError{
		Class:      ferrors.ClassArityMismatch,
		Message:    msg,
		Context:    "call to " + name,
		Position:   nameTok.Position,
		Range:      rng,
		Function:   name,
		Expected:   want,
		Got:        got,
		Suggestion: "usage: " + spec.Signature(),
		Example:    spec.Example,
	}
}

func describe(tok types.Token) string {
	switch tok.Type {
	case types.STRING:
		return fmt.Sprintf("string %s", ast.Quote(tok.Text))
	case types.NUMBER, types.IDENTIFIER:
		return fmt.Sprintf("%s '%s'", tok.Type.Describe(), tok.Text)
	default:
		return tok.Type.Describe()
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
