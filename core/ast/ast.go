package ast

import (
	"strconv"
	"strings"

	"github.com/aledsdavies/formula/core/types"
)

// NodeType names the variant of a node
type NodeType string

const (
	StringLiteralType  NodeType = "StringLiteral"
	NumberLiteralType  NodeType = "NumberLiteral"
	IdentifierType     NodeType = "Identifier"
	CallExpressionType NodeType = "CallExpression"
	DefaultType        NodeType = "Default"
)

// Node represents any node in the AST.
//
// Nodes are created once per parse and are read-only afterwards. All
// implementations are pointer types so that a node's identity can key
// side tables such as evaluation traces.
type Node interface {
	Type() NodeType
	Range() types.Range
	String() string
	node()
}

// Range is re-exported for callers that only import ast
type Range = types.Range

// StringLiteral represents a quoted string
type StringLiteral struct {
	Value string
	Span  Range
}

func (s *StringLiteral) Type() NodeType     { return StringLiteralType }
func (s *StringLiteral) Range() types.Range { return s.Span }
func (s *StringLiteral) String() string     { return Quote(s.Value) }
func (*StringLiteral) node()                {}

// NumberLiteral represents a numeric literal. Raw keeps the source text,
// which is what the interpreter yields.
type NumberLiteral struct {
	Value float64
	Raw   string
	Span  Range
}

func (n *NumberLiteral) Type() NodeType     { return NumberLiteralType }
func (n *NumberLiteral) Range() types.Range { return n.Span }
func (n *NumberLiteral) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}
func (*NumberLiteral) node() {}

// Identifier represents a field path (student.schools[0].name), a keyword
// (true, false, null) or the variable name given to forEach
type Identifier struct {
	Value string
	Span  Range
}

func (i *Identifier) Type() NodeType     { return IdentifierType }
func (i *Identifier) Range() types.Range { return i.Span }
func (i *Identifier) String() string     { return i.Value }
func (*Identifier) node()                {}

// IsKeyword reports whether the identifier is one of the literal keywords
func (i *Identifier) IsKeyword() bool {
	switch i.Value {
	case "true", "false", "null":
		return true
	}
	return false
}

// CallExpression represents a built-in call. len(Arguments) always equals
// the arity of Name.
type CallExpression struct {
	Name      string
	Arguments []Node
	Span      Range
}

func (c *CallExpression) Type() NodeType     { return CallExpressionType }
func (c *CallExpression) Range() types.Range { return c.Span }
func (c *CallExpression) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, arg := range c.Arguments {
		b.WriteByte(' ')
		b.WriteString(arg.String())
	}
	return b.String()
}
func (*CallExpression) node() {}

// DefaultKind is the marker carried by a Default node
type DefaultKind string

const (
	CatchAll DefaultKind = "Catch All"
	Start    DefaultKind = "Start"
)

// Default is a synthetic marker for an implicit branch. The parser never
// produces it; only static analysis does.
type Default struct {
	Value DefaultKind
}

func (d *Default) Type() NodeType     { return DefaultType }
func (d *Default) Range() types.Range { return types.Range{} }
func (d *Default) String() string     { return string(d.Value) }
func (*Default) node()                {}

// NewDefault returns a fresh marker node
func NewDefault(kind DefaultKind) *Default {
	return &Default{Value: kind}
}

// IsCall reports whether n is a call to the named function
func IsCall(n Node, name string) bool {
	c, ok := n.(*CallExpression)
	return ok && c.Name == name
}

// Quote renders s as a formula string literal
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' || ch == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	b.WriteByte('"')
	return b.String()
}

// Walk traverses the tree depth-first in argument order. Returning false
// from fn skips the node's children.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	if call, ok := node.(*CallExpression); ok {
		for _, arg := range call.Arguments {
			Walk(arg, fn)
		}
	}
}

// Count returns the number of nodes in the tree
func Count(node Node) int {
	n := 0
	Walk(node, func(Node) bool {
		n++
		return true
	})
	return n
}
