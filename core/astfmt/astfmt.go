// Package astfmt renders formula trees in their canonical text form and
// encodes them as deterministic CBOR for storage.
//
// Canonical text is what a formula looks like when written with single
// spaces, no grouping parentheses and the {{ }} wrapper. Parsing the
// canonical text of a tree yields the same tree (ranges aside), which makes
// it the identity used by Digest.
package astfmt

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/builtins"
)

// Version is the wire format version written by Marshal
const Version uint8 = 1

// MaxDepth bounds the nesting Marshal and Unmarshal accept
const MaxDepth = 512

// ErrInvalidEncoding is returned for payloads that do not describe a valid tree
var ErrInvalidEncoding = errors.New("invalid formula encoding")

// Format returns the canonical text of node, wrapper included
func Format(node ast.Node) string {
	if node == nil {
		return "{{ }}"
	}
	return "{{ " + node.String() + " }}"
}

// Digest is the BLAKE2b-256 sum of the canonical text. Formulas that differ
// only in spacing or grouping share a digest.
func Digest(node ast.Node) [32]byte {
	return blake2b.Sum256([]byte(Format(node)))
}

// DigestHex is Digest rendered as lowercase hex
func DigestHex(node ast.Node) string {
	sum := Digest(node)
	return fmt.Sprintf("%x", sum[:])
}

// wireFormula is the top-level CBOR record
type wireFormula struct {
	Version uint8    `cbor:"1,keyasint"`
	Root    wireNode `cbor:"2,keyasint"`
}

// wireNode flattens every node variant into one record. Ranges are kept so
// a decoded tree still points into its source.
type wireNode struct {
	Type  string     `cbor:"1,keyasint"`
	Text  string     `cbor:"2,keyasint,omitempty"` // literal value, path, raw number, or function name
	Num   float64    `cbor:"3,keyasint,omitempty"`
	Args  []wireNode `cbor:"4,keyasint,omitempty"`
	Start int        `cbor:"5,keyasint,omitempty"`
	End   int        `cbor:"6,keyasint,omitempty"`
}

// Marshal encodes node as canonical CBOR. Equal trees with equal ranges
// encode to identical bytes.
func Marshal(node ast.Node) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil tree", ErrInvalidEncoding)
	}
	root, err := toWire(node, 0)
	if err != nil {
		return nil, err
	}

	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	data, err := encMode.Marshal(wireFormula{Version: Version, Root: root})
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a tree written by Marshal. Calls are checked against
// the arity table so a decoded tree satisfies the same invariants as a
// parsed one.
func Unmarshal(data []byte) (ast.Node, error) {
	decMode, err := cbor.DecOptions{MaxNestedLevels: MaxDepth*2 + 4}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR decoder: %w", err)
	}

	var wf wireFormula
	if err := decMode.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	if wf.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d (expected %d)", ErrInvalidEncoding, wf.Version, Version)
	}
	return fromWire(&wf.Root, 0)
}

func toWire(node ast.Node, depth int) (wireNode, error) {
	if depth > MaxDepth {
		return wireNode{}, fmt.Errorf("%w: nesting exceeds %d", ErrInvalidEncoding, MaxDepth)
	}
	r := node.Range()
	w := wireNode{Type: string(node.Type()), Start: r.Start, End: r.End}

	switch n := node.(type) {
	case *ast.StringLiteral:
		w.Text = n.Value
	case *ast.NumberLiteral:
		w.Text = n.Raw
		w.Num = n.Value
	case *ast.Identifier:
		w.Text = n.Value
	case *ast.CallExpression:
		w.Text = n.Name
		w.Args = make([]wireNode, len(n.Arguments))
		for i, arg := range n.Arguments {
			child, err := toWire(arg, depth+1)
			if err != nil {
				return wireNode{}, fmt.Errorf("argument %d of %s: %w", i, n.Name, err)
			}
			w.Args[i] = child
		}
	case *ast.Default:
		return wireNode{}, fmt.Errorf("%w: analysis markers are not encodable", ErrInvalidEncoding)
	default:
		return wireNode{}, fmt.Errorf("%w: unknown node %T", ErrInvalidEncoding, node)
	}
	return w, nil
}

func fromWire(w *wireNode, depth int) (ast.Node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting exceeds %d", ErrInvalidEncoding, MaxDepth)
	}
	if w.Start < 0 || w.End < w.Start {
		return nil, fmt.Errorf("%w: bad range [%d, %d)", ErrInvalidEncoding, w.Start, w.End)
	}
	span := ast.Range{Start: w.Start, End: w.End}

	switch ast.NodeType(w.Type) {
	case ast.StringLiteralType:
		return &ast.StringLiteral{Value: w.Text, Span: span}, nil
	case ast.NumberLiteralType:
		return &ast.NumberLiteral{Value: w.Num, Raw: w.Text, Span: span}, nil
	case ast.IdentifierType:
		if w.Text == "" {
			return nil, fmt.Errorf("%w: empty identifier", ErrInvalidEncoding)
		}
		return &ast.Identifier{Value: w.Text, Span: span}, nil
	case ast.CallExpressionType:
		arity, ok := builtins.Arity(w.Text)
		if !ok {
			return nil, fmt.Errorf("%w: unknown function %q", ErrInvalidEncoding, w.Text)
		}
		if len(w.Args) != arity {
			return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidEncoding, w.Text, arity, len(w.Args))
		}
		call := &ast.CallExpression{Name: w.Text, Arguments: make([]ast.Node, arity), Span: span}
		for i := range w.Args {
			arg, err := fromWire(&w.Args[i], depth+1)
			if err != nil {
				return nil, err
			}
			call.Arguments[i] = arg
		}
		return call, nil
	default:
		return nil, fmt.Errorf("%w: unknown node type %q", ErrInvalidEncoding, w.Type)
	}
}
