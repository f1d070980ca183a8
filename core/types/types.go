package types

import "fmt"

// TokenType represents the type of token in a formula
type TokenType int

const (
	// Special tokens
	EOF TokenType = iota

	// Structure
	WRAPPER_OPEN  // {{
	WRAPPER_CLOSE // }}
	GROUP_OPEN    // ( - optional visual grouping, no arity meaning
	GROUP_CLOSE   // )

	// Literals and content
	STRING     // "quoted", escapes already decoded in Text
	NUMBER     // 42, 3.5, -1
	IDENTIFIER // function names, keywords and field paths: name.first, schools[0].name
)

var tokenNames = [...]string{
	EOF:           "EOF",
	WRAPPER_OPEN:  "WRAPPER_OPEN",
	WRAPPER_CLOSE: "WRAPPER_CLOSE",
	GROUP_OPEN:    "GROUP_OPEN",
	GROUP_CLOSE:   "GROUP_CLOSE",
	STRING:        "STRING",
	NUMBER:        "NUMBER",
	IDENTIFIER:    "IDENTIFIER",
}

// String returns the token type name
func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Describe returns a human readable description used in error messages
func (t TokenType) Describe() string {
	switch t {
	case EOF:
		return "end of input"
	case WRAPPER_OPEN:
		return "'{{'"
	case WRAPPER_CLOSE:
		return "'}}'"
	case GROUP_OPEN:
		return "'('"
	case GROUP_CLOSE:
		return "')'"
	case STRING:
		return "string"
	case NUMBER:
		return "number"
	case IDENTIFIER:
		return "identifier"
	default:
		return t.String()
	}
}

// Position represents a human readable source location (1-based)
type Position struct {
	Line   int
	Column int
	Offset int // Byte offset in source
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open byte span [Start, End) in the formula source
type Range struct {
	Start int
	End   int
}

// Cover returns the smallest range containing both r and o
func (r Range) Cover(o Range) Range {
	out := r
	if o.Start < out.Start {
		out.Start = o.Start
	}
	if o.End > out.End {
		out.End = o.End
	}
	return out
}

// Len returns the number of bytes covered
func (r Range) Len() int {
	return r.End - r.Start
}

// Token represents a lexical token. Tokens are never mutated after creation.
type Token struct {
	Type     TokenType
	Text     string // Decoded value for STRING, verbatim source otherwise
	Position Position
	Range    Range
}

func (t Token) String() string {
	if t.Text == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Text)
}
