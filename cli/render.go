package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/astfmt"
	"github.com/aledsdavies/formula/core/types"
	"github.com/aledsdavies/formula/runtime/analyzer"
	"github.com/aledsdavies/formula/runtime/eval"
	"github.com/aledsdavies/formula/runtime/parser"
)

// renderTokens prints one token per line: position, type, text
func renderTokens(w io.Writer, tokens []types.Token) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, tok := range tokens {
		text := tok.Text
		if tok.Type == types.STRING {
			text = ast.Quote(text)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", tok.Position, tok.Type, text)
	}
	_ = tw.Flush()
}

// renderTrace prints the tree with each node's traced value. Nodes the
// evaluation never reached are marked as skipped.
func renderTrace(w io.Writer, root ast.Node, trace eval.Trace, useColor bool) {
	astfmt.FormatTree(w, root, func(n ast.Node) string {
		v, ok := trace.Value(n)
		if !ok {
			return paint("(skipped)", roleMuted, useColor)
		}
		return paint("= "+ast.Quote(eval.Stringify(v)), roleTrace, useColor)
	}, useColor)
}

// renderTelemetry prints parse timings and counts
func renderTelemetry(w io.Writer, t *parser.ParseTelemetry) {
	if t == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "tokens: %d  nodes: %d  lex: %s  parse: %s  total: %s\n",
		t.TokenCount, t.NodeCount, t.LexTime, t.ParseTime, t.TotalTime)
}

// renderPaths prints one scenario per block: its conditions then its output
func renderPaths(w io.Writer, paths []analyzer.ScenarioPath, useColor bool) {
	for i, p := range paths {
		_, _ = fmt.Fprintf(w, "%s\n", paint(fmt.Sprintf("Path %d", i+1), roleHeading, useColor))
		if len(p.Conditions) == 0 {
			_, _ = fmt.Fprintf(w, "  when  %s\n", paint("always", roleMuted, useColor))
		}
		for j, c := range p.Conditions {
			label := "when"
			if j > 0 {
				label = " and"
			}
			_, _ = fmt.Fprintf(w, "  %s  %s\n", label, renderCondition(c, useColor))
		}
		parts := make([]string, len(p.ValueParts))
		for j, v := range p.ValueParts {
			parts[j] = v.String()
		}
		_, _ = fmt.Fprintf(w, "  then  %s\n", paint(strings.Join(parts, " + "), roleValue, useColor))
	}
}

// renderSegments prints each segment as a table of condition, match and result
func renderSegments(w io.Writer, segments []analyzer.Segment, useColor bool) {
	for i, seg := range segments {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		header := fmt.Sprintf("Segment %d (%s)", i+1, seg.Kind)
		if seg.Subject != nil {
			header += " on " + seg.Subject.String()
		}
		_, _ = fmt.Fprintln(w, paint(header, roleHeading, useColor))

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		if seg.Subject != nil {
			_, _ = fmt.Fprintln(tw, "  MATCH\tRESULT")
		} else {
			_, _ = fmt.Fprintln(tw, "  CONDITION\tRESULT")
		}
		for _, b := range seg.Branches {
			left := b.Condition.String()
			if seg.Subject != nil && b.Match != nil {
				left = b.Match.String()
			}
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", left, b.Result.String())
		}
		_ = tw.Flush()
	}
}

func renderCondition(c ast.Node, useColor bool) string {
	if _, ok := c.(*ast.Default); ok {
		return paint(c.String(), roleMarker, useColor)
	}
	return c.String()
}
