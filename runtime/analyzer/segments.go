package analyzer

import (
	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/builtins"
)

// SegmentKind tells a renderer how to lay out a segment
type SegmentKind string

const (
	SegmentTable SegmentKind = "table" // One row per branch
	SegmentTree  SegmentKind = "tree"  // A single pass-through expression
)

// Branch is one arm of a conditional chain. Match is the value the
// segment's subject is compared with, or nil when the condition is not a
// simple equality test.
type Branch struct {
	Condition ast.Node
	Match     ast.Node
	Result    ast.Node
}

// Segment groups consecutive branches for rendering. Subject is the field
// every branch tests for equality, or nil for a mixed run.
type Segment struct {
	Kind     SegmentKind
	Subject  ast.Node
	Branches []Branch
}

// SegmentLogicChain walks a chain of conditionals whose else arms are
// themselves conditionals. Consecutive branches testing the same field
// with equals form one table; branches without a shared subject form a
// subject-less table. The final else becomes a Catch All branch of the last
// segment. A root that is not a conditional yields one tree segment.
func SegmentLogicChain(node ast.Node) []Segment {
	if node == nil {
		return nil
	}
	if !ast.IsCall(node, builtins.If) {
		return []Segment{{
			Kind:     SegmentTree,
			Branches: []Branch{{Condition: ast.NewDefault(ast.Start), Result: node}},
		}}
	}

	var segments []Segment
	current := node
	for ast.IsCall(current, builtins.If) {
		call := current.(*ast.CallExpression)
		cond, result := call.Arguments[0], call.Arguments[1]
		subject, match := equalitySubject(cond)
		branch := Branch{Condition: cond, Match: match, Result: result}

		if n := len(segments); n > 0 && sameSubject(segments[n-1].Subject, subject) {
			segments[n-1].Branches = append(segments[n-1].Branches, branch)
		} else {
			segments = append(segments, Segment{
				Kind:     SegmentTable,
				Subject:  subject,
				Branches: []Branch{branch},
			})
		}
		current = call.Arguments[2]
	}

	last := &segments[len(segments)-1]
	last.Branches = append(last.Branches, Branch{
		Condition: ast.NewDefault(ast.CatchAll),
		Result:    current,
	})
	return segments
}

// equalitySubject recognises equals <field> <value> in either order
func equalitySubject(cond ast.Node) (subject, match ast.Node) {
	call, ok := cond.(*ast.CallExpression)
	if !ok || call.Name != builtins.Equals {
		return nil, nil
	}
	left, right := call.Arguments[0], call.Arguments[1]
	if isField(left) && !isField(right) {
		return left, right
	}
	if isField(right) && !isField(left) {
		return right, left
	}
	if isField(left) {
		return left, right
	}
	return nil, nil
}

func isField(n ast.Node) bool {
	id, ok := n.(*ast.Identifier)
	return ok && !id.IsKeyword()
}

// sameSubject compares subjects by path text. Two nil subjects match so
// that a run of mixed conditions stays in one table.
func sameSubject(a, b ast.Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}
