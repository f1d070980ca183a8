package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/core/types"
	"github.com/aledsdavies/formula/runtime/contextdata"
	"github.com/aledsdavies/formula/runtime/explain"
	"github.com/aledsdavies/formula/runtime/parser"
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Type    string // "input", "context", "library"
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormulaError ties an engine error to the formula text it came from so
// the failing span can be shown
type FormulaError struct {
	Source string
	Err    error
}

func (e *FormulaError) Error() string { return e.Err.Error() }

// Unwrap allows error unwrapping
func (e *FormulaError) Unwrap() error { return e.Err }

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var fe *FormulaError
	var ce *CLIError
	var ve *contextdata.ValidationError
	switch {
	case errors.As(err, &fe):
		formatFormulaError(w, fe, useColor)
	case errors.As(err, &ce):
		formatCLIError(w, ce, useColor)
	case errors.As(err, &ve):
		_, _ = fmt.Fprintf(w, "%s%s\n", paint("Error: ", roleError, useColor), ve.Error())
	default:
		if _, ok := ferrors.KindOf(err); ok {
			formatFormulaError(w, &FormulaError{Err: err}, useColor)
			return
		}
		_, _ = fmt.Fprintf(w, "%s%s\n", paint("Error: ", roleError, useColor), err.Error())
	}
}

// formatFormulaError prints the explanation, the source snippet and any
// suggestions
func formatFormulaError(w io.Writer, fe *FormulaError, useColor bool) {
	ex := explain.Explain(fe.Err)
	_, _ = fmt.Fprintf(w, "%s %s\n", ex.Icon, paint(ex.Title, roleError, useColor))
	_, _ = fmt.Fprintf(w, "%s\n", ex.Message)

	if pos, ok := errorPosition(fe.Source, fe.Err); ok {
		if snippet := parser.Snippet(fe.Source, pos); snippet != "" {
			_, _ = fmt.Fprintf(w, "\n%s\n", paint(snippet, roleMuted, useColor))
		}
	}

	if len(ex.Suggestions) > 0 {
		_, _ = fmt.Fprintln(w)
		for _, s := range ex.Suggestions {
			_, _ = fmt.Fprintf(w, "%s%s\n", paint("  • ", roleHint, useColor), s)
		}
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", paint("Error: ", roleError, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", paint("Hint: ", roleHint, useColor), err.Hint)
	}
}

// errorPosition locates the source position of an engine error
func errorPosition(source string, err error) (types.Position, bool) {
	if source == "" {
		return types.Position{}, false
	}

	var syn *ferrors.SyntaxError
	if errors.As(err, &syn) {
		return syn.Position, syn.Position.Line > 0
	}

	var field *ferrors.FieldResolutionError
	if errors.As(err, &field) {
		return positionAt(source, field.Range.Start), true
	}

	var rt *ferrors.RuntimeError
	if errors.As(err, &rt) {
		return positionAt(source, rt.Range.Start), true
	}
	return types.Position{}, false
}

// positionAt converts a byte offset to a 1-based line and rune column
func positionAt(source string, offset int) types.Position {
	offset = max(0, min(offset, len(source)))
	line, col := 1, 1
	for _, r := range source[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return types.Position{Line: line, Column: col, Offset: offset}
}
