// Package analyzer enumerates, without any context data, the outputs a
// formula can statically produce and the conditions that lead to each.
package analyzer

import (
	"errors"
	"fmt"
	"math"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/builtins"
)

// ScenarioPath is one reachable combination: when every condition holds,
// the output is ValueParts concatenated in order. A Default node among the
// conditions marks an unconditional catch-all branch.
type ScenarioPath struct {
	ValueParts []ast.Node
	Conditions []ast.Node
}

// ErrTooManyPaths is returned by ExpandLogicPathsLimit when the path count
// exceeds the caller's bound
var ErrTooManyPaths = errors.New("too many scenario paths")

// ExpandLogicPaths lists every scenario path of node. The count grows as
// the product of the branch counts of joined conditionals; use
// ExpandLogicPathsLimit when the formula is untrusted.
func ExpandLogicPaths(node ast.Node) []ScenarioPath {
	if node == nil {
		return nil
	}
	return expand(node)
}

// ExpandLogicPathsLimit is ExpandLogicPaths that refuses to materialise
// more than max paths
func ExpandLogicPathsLimit(node ast.Node, max int) ([]ScenarioPath, error) {
	if n := CountPaths(node); n > max {
		return nil, fmt.Errorf("%w: %d paths exceed the limit of %d", ErrTooManyPaths, n, max)
	}
	return ExpandLogicPaths(node), nil
}

// CountPaths computes len(ExpandLogicPaths(node)) without building the
// paths. The count saturates at math.MaxInt.
func CountPaths(node ast.Node) int {
	if node == nil {
		return 0
	}

	call, ok := node.(*ast.CallExpression)
	if !ok {
		return 1
	}

	switch call.Name {
	case builtins.Concat:
		total := 1
		for _, part := range FlattenConcat(call) {
			total = mulSat(total, CountPaths(part))
		}
		return total
	case builtins.If:
		return addSat(CountPaths(call.Arguments[1]), CountPaths(call.Arguments[2]))
	default:
		return 1
	}
}

func expand(node ast.Node) []ScenarioPath {
	call, ok := node.(*ast.CallExpression)
	if !ok {
		return []ScenarioPath{leaf(node)}
	}

	switch call.Name {
	case builtins.Concat:
		paths := []ScenarioPath{{}}
		for _, part := range FlattenConcat(call) {
			paths = product(paths, expand(part))
		}
		return paths

	case builtins.If:
		cond, then, otherwise := call.Arguments[0], call.Arguments[1], call.Arguments[2]

		var paths []ScenarioPath
		for _, p := range expand(then) {
			paths = append(paths, prefix(cond, p))
		}

		elsePaths := expand(otherwise)
		if ast.IsCall(otherwise, builtins.If) {
			return append(paths, elsePaths...)
		}
		marker := ast.NewDefault(ast.CatchAll)
		for _, p := range elsePaths {
			paths = append(paths, prefix(marker, p))
		}
		return paths

	default:
		// Other calls are atomic outputs
		return []ScenarioPath{leaf(node)}
	}
}

func leaf(node ast.Node) ScenarioPath {
	return ScenarioPath{ValueParts: []ast.Node{node}, Conditions: []ast.Node{}}
}

func prefix(cond ast.Node, p ScenarioPath) ScenarioPath {
	conds := make([]ast.Node, 0, len(p.Conditions)+1)
	conds = append(conds, cond)
	conds = append(conds, p.Conditions...)
	return ScenarioPath{ValueParts: p.ValueParts, Conditions: conds}
}

// product joins every left path with every right path, in order
func product(left, right []ScenarioPath) []ScenarioPath {
	out := make([]ScenarioPath, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			parts := make([]ast.Node, 0, len(l.ValueParts)+len(r.ValueParts))
			parts = append(parts, l.ValueParts...)
			parts = append(parts, r.ValueParts...)

			conds := make([]ast.Node, 0, len(l.Conditions)+len(r.Conditions))
			conds = append(conds, l.Conditions...)
			conds = append(conds, r.Conditions...)

			out = append(out, ScenarioPath{ValueParts: parts, Conditions: conds})
		}
	}
	return out
}

// FlattenConcat returns the operands of a nested concat chain in order
func FlattenConcat(node ast.Node) []ast.Node {
	return FlattenOp(node, builtins.Concat)
}

// FlattenOp returns the operands of a chain of the same associative
// operator, nested to the left or the right, e.g. and a (and b c) gives
// [a b c]. A node that is not a call to op is its own single operand.
func FlattenOp(node ast.Node, op string) []ast.Node {
	call, ok := node.(*ast.CallExpression)
	if !ok || call.Name != op {
		return []ast.Node{node}
	}
	var out []ast.Node
	for _, arg := range call.Arguments {
		out = append(out, FlattenOp(arg, op)...)
	}
	return out
}

func mulSat(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt/b {
		return math.MaxInt
	}
	return a * b
}

func addSat(a, b int) int {
	if a > math.MaxInt-b {
		return math.MaxInt
	}
	return a + b
}
