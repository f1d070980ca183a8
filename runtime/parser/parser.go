// Package parser builds an AST from formula tokens.
//
// The grammar is prefix and delimiter-free: a built-in name is followed by
// exactly as many argument expressions as its arity in core/builtins. Parens
// only group; they produce no node and do not affect arity.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/builtins"
	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/core/invariant"
	"github.com/aledsdavies/formula/core/types"
	"github.com/aledsdavies/formula/runtime/lexer"
)

// Parse parses a token stream into a single expression. Tokens before the
// first '{{' and after the matching '}}' are ignored. No partial AST is
// returned on error.
func Parse(tokens []types.Token, opts ...ParserOpt) (ast.Node, error) {
	tree, err := parse("", tokens, newConfig(opts), nil, time.Time{})
	if err != nil {
		return nil, err
	}
	return tree.Root, nil
}

// ParseString tokenizes and parses formula text
func ParseString(text string, opts ...ParserOpt) (ast.Node, error) {
	tree, err := ParseSource(text, opts...)
	if err != nil {
		return nil, err
	}
	return tree.Root, nil
}

// ParseSource tokenizes and parses text, returning the tokens, telemetry and
// debug events alongside the AST
func ParseSource(text string, opts ...ParserOpt) (*ParseTree, error) {
	config := newConfig(opts)

	var telemetry *ParseTelemetry
	var startTotal time.Time
	if config.telemetry >= TelemetryBasic {
		telemetry = &ParseTelemetry{}
		if config.telemetry >= TelemetryTiming {
			startTotal = time.Now()
		}
	}

	var startLex time.Time
	if config.telemetry >= TelemetryTiming {
		startLex = time.Now()
	}

	tokens, err := lexer.Tokenize(text, lexer.WithLogger(config.logger))
	if err != nil {
		return nil, err
	}

	if config.telemetry >= TelemetryTiming {
		telemetry.LexTime = time.Since(startLex)
	}

	return parse(text, tokens, config, telemetry, startTotal)
}

func parse(source string, tokens []types.Token, config *ParserConfig, telemetry *ParseTelemetry, startTotal time.Time) (*ParseTree, error) {
	if config.telemetry >= TelemetryBasic && telemetry == nil {
		telemetry = &ParseTelemetry{}
		if config.telemetry >= TelemetryTiming {
			startTotal = time.Now()
		}
	}

	var debugEvents []DebugEvent
	if config.debug > DebugOff {
		debugEvents = make([]DebugEvent, 0, 32)
	}

	p := &parser{
		tokens:      tokens,
		config:      config,
		debugEvents: debugEvents,
	}

	var startParse time.Time
	if config.telemetry >= TelemetryTiming {
		startParse = time.Now()
	}

	root, err := p.formula()
	if err != nil {
		config.logger.Debug("[PARSER] failed", "error", err)
		return nil, err
	}

	if config.telemetry >= TelemetryBasic {
		telemetry.TokenCount = len(tokens)
		telemetry.NodeCount = ast.Count(root)
		if config.telemetry >= TelemetryTiming {
			telemetry.ParseTime = time.Since(startParse)
			telemetry.TotalTime = time.Since(startTotal)
		}
	}

	return &ParseTree{
		Source:      source,
		Tokens:      tokens,
		Root:        root,
		Telemetry:   telemetry,
		DebugEvents: p.debugEvents,
	}, nil
}

// parser is the internal parser state
type parser struct {
	tokens      []types.Token
	pos         int
	open        types.Token // The '{{' that opened the formula
	config      *ParserConfig
	debugEvents []DebugEvent
}

// recordDebugEvent records debug events when debug tracing is enabled
func (p *parser) recordDebugEvent(event, context string) {
	if p.config.debug == DebugOff || p.debugEvents == nil {
		return
	}

	p.debugEvents = append(p.debugEvents, DebugEvent{
		Timestamp: time.Now(),
		Event:     event,
		TokenPos:  p.pos,
		Context:   context,
	})
}

// formula parses '{{' expression '}}'
func (p *parser) formula() (ast.Node, error) {
	p.recordDebugEvent("enter_formula", "")

	first := p.current()
	for !p.at(types.WRAPPER_OPEN) {
		if p.at(types.EOF) {
			return nil, &ferrors.SyntaxError{
				Class:      ferrors.ClassMissingWrapper,
				Message:    "formula must start with '{{'",
				Position:   first.Position,
				Range:      first.Range,
				Suggestion: "wrap the expression in '{{' and '}}'",
				Example:    `{{ concat name.first name.last }}`,
			}
		}
		p.advance()
	}
	p.open = p.current()
	p.advance()

	if p.at(types.WRAPPER_CLOSE) {
		return nil, &ferrors.SyntaxError{
			Class:    ferrors.ClassUnexpectedToken,
			Message:  "empty formula, expected an expression before '}}'",
			Context:  "formula",
			Position: p.current().Position,
			Range:    p.current().Range,
			Example:  `{{ toUpper name.last }}`,
		}
	}

	root, err := p.expression("formula")
	if err != nil {
		return nil, err
	}

	switch p.current().Type {
	case types.WRAPPER_CLOSE:
		p.advance()
	case types.EOF:
		return nil, p.unterminatedWrapper()
	case types.GROUP_CLOSE:
		return nil, p.unexpected(p.current(), "'}}'", "formula")
	default:
		return nil, p.tooMany(root, types.WRAPPER_CLOSE, "formula")
	}

	p.recordDebugEvent("exit_formula", string(root.Type()))
	return root, nil
}

// expression parses one string, number, identifier, call or group
func (p *parser) expression(context string) (ast.Node, error) {
	start := p.pos
	tok := p.current()

	if p.config.debug >= DebugDetailed {
		p.recordDebugEvent("expression", fmt.Sprintf("pos: %d, token: %v", p.pos, tok))
	}

	var (
		node ast.Node
		err  error
	)

	switch tok.Type {
	case types.STRING:
		p.advance()
		node = &ast.StringLiteral{Value: tok.Text, Span: tok.Range}

	case types.NUMBER:
		value, perr := strconv.ParseFloat(tok.Text, 64)
		if perr != nil {
			return nil, p.unexpected(tok, "a number", context)
		}
		p.advance()
		node = &ast.NumberLiteral{Value: value, Raw: tok.Text, Span: tok.Range}

	case types.IDENTIFIER:
		if arity, ok := builtins.Arity(tok.Text); ok {
			node, err = p.call(tok, arity)
		} else {
			p.advance()
			node = &ast.Identifier{Value: tok.Text, Span: tok.Range}
		}

	case types.GROUP_OPEN:
		node, err = p.group()

	case types.EOF:
		err = p.unterminatedWrapper()

	default:
		err = p.unexpected(tok, "an expression", context)
	}

	if err != nil {
		return nil, err
	}

	invariant.Invariant(p.pos > start, "parser made no progress at token %d", start)
	return node, nil
}

// call parses a built-in name followed by exactly arity arguments
func (p *parser) call(nameTok types.Token, arity int) (ast.Node, error) {
	name := nameTok.Text
	p.recordDebugEvent("enter_call", name)
	p.config.logger.Debug("[PARSER] call", "name", name, "arity", arity, "pos", nameTok.Position)

	spec, _ := builtins.Lookup(name)
	p.advance()

	args := make([]ast.Node, 0, arity)
	span := nameTok.Range
	for i := 0; i < arity; i++ {
		if p.atArgumentEnd() {
			return nil, p.arity(name, nameTok, i, p.current(), span)
		}
		arg, err := p.expression(fmt.Sprintf("argument '%s' of %s", spec.Params[i], name))
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		span = span.Cover(arg.Range())
	}

	invariant.Postcondition(len(args) == arity, "%s parsed %d arguments, arity is %d", name, len(args), arity)
	p.recordDebugEvent("exit_call", name)
	return &ast.CallExpression{Name: name, Arguments: args, Span: span}, nil
}

// group parses '(' expression ')'. The parens are transparent: the inner
// node is returned as is.
func (p *parser) group() (ast.Node, error) {
	open := p.current()
	p.recordDebugEvent("enter_group", "")
	p.advance()

	if p.at(types.EOF) || p.at(types.WRAPPER_CLOSE) {
		return nil, p.unterminatedGroup(open)
	}

	inner, err := p.expression("group")
	if err != nil {
		return nil, err
	}

	switch p.current().Type {
	case types.GROUP_CLOSE:
		p.advance()
	case types.EOF, types.WRAPPER_CLOSE:
		return nil, p.unterminatedGroup(open)
	default:
		if !p.groupCloses() {
			return nil, p.unterminatedGroup(open)
		}
		return nil, p.tooMany(inner, types.GROUP_CLOSE, "group")
	}

	p.recordDebugEvent("exit_group", "")
	return inner, nil
}

// tooMany reports tokens left over after a complete expression. A bare
// word followed by arguments is an unknown function; extra arguments after
// a call are an arity failure of that call.
func (p *parser) tooMany(node ast.Node, closer types.TokenType, context string) error {
	tok := p.current()

	switch n := node.(type) {
	case *ast.Identifier:
		if isBareWord(n) {
			return p.unknownFunction(n, p.positionOf(n))
		}
	case *ast.CallExpression:
		if id := misspelledFunction(n); id != nil {
			return p.unknownFunction(id, p.positionOf(id))
		}
		extra := p.countExtra()
		return p.arity(n.Name, p.tokenAt(n.Span.Start), len(n.Arguments)+extra, tok, n.Span)
	}

	return p.unexpected(tok, closer.Describe(), context)
}

// countExtra counts the whole expressions before the next closer. Counting
// stops at the first expression that fails to parse.
func (p *parser) countExtra() int {
	count := 0
	for !p.atArgumentEnd() {
		if _, err := p.expression(""); err != nil {
			break
		}
		count++
	}
	return max(count, 1)
}

// groupCloses reports whether a ')' for the current group appears before
// the formula ends
func (p *parser) groupCloses() bool {
	depth := 0
	for _, tok := range p.tokens[min(p.pos, len(p.tokens)):] {
		switch tok.Type {
		case types.GROUP_OPEN:
			depth++
		case types.GROUP_CLOSE:
			if depth == 0 {
				return true
			}
			depth--
		case types.WRAPPER_CLOSE, types.EOF:
			return false
		}
	}
	return false
}

func (p *parser) unterminatedGroup(open types.Token) error {
	return &ferrors.SyntaxError{
		Class:      ferrors.ClassUnterminatedGroup,
		Message:    "'(' is never closed",
		Context:    "group",
		Position:   open.Position,
		Range:      open.Range,
		Suggestion: "add ')' after the grouped expression",
		Example:    `{{ concat (toLower name.first) "@school.edu" }}`,
	}
}

func (p *parser) unterminatedWrapper() error {
	end := p.open.Range.End
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].Range.End
	}
	return &ferrors.SyntaxError{
		Class:      ferrors.ClassUnterminatedWrapper,
		Message:    "formula is missing its closing '}}'",
		Context:    "formula",
		Position:   p.open.Position,
		Range:      types.Range{Start: p.open.Range.Start, End: end},
		Suggestion: "end the formula with '}}'",
		Example:    `{{ toUpper name.last }}`,
	}
}

// isBareWord reports whether id could only have been meant as a function
// name: not a keyword and not a field path
func isBareWord(id *ast.Identifier) bool {
	return !id.IsKeyword() && !strings.ContainsAny(id.Value, ".[")
}

// misspelledFunction finds an argument word close to a built-in name
func misspelledFunction(call *ast.CallExpression) *ast.Identifier {
	var found *ast.Identifier
	ast.Walk(call, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		id, ok := n.(*ast.Identifier)
		if !ok || len(id.Value) < 4 || !isBareWord(id) {
			return true
		}
		if _, ok := builtins.Closest(id.Value); ok {
			found = id
		}
		return true
	})
	return found
}

// Token navigation

func (p *parser) current() types.Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	// Tolerate streams without a trailing EOF
	end := 0
	if n := len(p.tokens); n > 0 {
		end = p.tokens[n-1].Range.End
	}
	return types.Token{Type: types.EOF, Range: types.Range{Start: end, End: end}}
}

func (p *parser) advance() {
	if p.pos < len(p.tokens) {
		p.pos++
	}
}

func (p *parser) at(typ types.TokenType) bool {
	return p.current().Type == typ
}

func (p *parser) atArgumentEnd() bool {
	switch p.current().Type {
	case types.WRAPPER_CLOSE, types.GROUP_CLOSE, types.EOF:
		return true
	}
	return false
}

// tokenAt returns the token starting at offset
func (p *parser) tokenAt(offset int) types.Token {
	for _, tok := range p.tokens {
		if tok.Range.Start == offset && tok.Type != types.EOF {
			return tok
		}
	}
	return types.Token{Range: types.Range{Start: offset, End: offset}}
}

func (p *parser) positionOf(n ast.Node) types.Position {
	return p.tokenAt(n.Range().Start).Position
}
