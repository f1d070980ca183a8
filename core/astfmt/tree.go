package astfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/aledsdavies/formula/core/ast"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorGray   = "\033[90m"
)

// Colorize wraps text in ANSI color codes if color is enabled
func Colorize(text, color string, useColor bool) string {
	if !useColor {
		return text
	}
	return color + text + ColorReset
}

// Annotator returns extra text shown after a node, or "" for none
type Annotator func(ast.Node) string

// FormatTree renders node as an indented tree, one node per line, with
// function names in blue and literals in green. Paths are cyan.
func FormatTree(w io.Writer, node ast.Node, annotate Annotator, useColor bool) {
	if node == nil {
		_, _ = fmt.Fprintln(w, "(empty)")
		return
	}
	_, _ = fmt.Fprintln(w, renderLine(node, annotate, useColor))
	renderChildren(w, node, "", annotate, useColor)
}

func renderChildren(w io.Writer, node ast.Node, indent string, annotate Annotator, useColor bool) {
	call, ok := node.(*ast.CallExpression)
	if !ok {
		return
	}
	for i, arg := range call.Arguments {
		isLast := i == len(call.Arguments)-1
		prefix, next := "├─ ", "│  "
		if isLast {
			prefix, next = "└─ ", "   "
		}
		_, _ = fmt.Fprintf(w, "%s%s%s\n", indent, Colorize(prefix, ColorGray, useColor), renderLine(arg, annotate, useColor))
		renderChildren(w, arg, indent+next, annotate, useColor)
	}
}

func renderLine(node ast.Node, annotate Annotator, useColor bool) string {
	var b strings.Builder
	switch n := node.(type) {
	case *ast.CallExpression:
		b.WriteString(Colorize(n.Name, ColorBlue, useColor))
	case *ast.StringLiteral, *ast.NumberLiteral:
		b.WriteString(Colorize(n.String(), ColorGreen, useColor))
	case *ast.Identifier:
		b.WriteString(Colorize(n.Value, ColorCyan, useColor))
	default:
		b.WriteString(Colorize(node.String(), ColorYellow, useColor))
	}

	r := node.Range()
	b.WriteString(Colorize(fmt.Sprintf(" [%d,%d)", r.Start, r.End), ColorGray, useColor))

	if annotate != nil {
		if note := annotate(node); note != "" {
			b.WriteString("  ")
			b.WriteString(note)
		}
	}
	return b.String()
}
