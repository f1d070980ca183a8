package parser

import (
	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/types"
)

// ParseTree represents the result of parsing source text
type ParseTree struct {
	Source      string          // Original source (for reference)
	Tokens      []types.Token   // Tokens from lexer
	Root        ast.Node        // The formula expression
	Telemetry   *ParseTelemetry // Performance metrics (nil if disabled)
	DebugEvents []DebugEvent    // Debug events (nil if disabled)
}
