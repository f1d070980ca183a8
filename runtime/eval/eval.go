// Package eval is the tree-walking interpreter for formula ASTs.
//
// Evaluate is a pure function of the AST and the context data: it never
// mutates either, keeps no state between calls, and may run concurrently
// on a shared AST. Loop variables live in an explicit persistent Env.
package eval

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/builtins"
	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/core/invariant"
)

// TraceEntry records the outcome of one executed node
type TraceEntry struct {
	Value    any
	Executed bool
}

// Trace maps executed nodes, by identity, to their outcome. A node without
// an entry was not on the taken execution path. A loop body keeps the entry
// of its last iteration.
type Trace map[ast.Node]TraceEntry

// Executed reports whether n was evaluated
func (t Trace) Executed(n ast.Node) bool {
	return t[n].Executed
}

// Value returns the value n evaluated to
func (t Trace) Value(n ast.Node) (any, bool) {
	e, ok := t[n]
	return e.Value, ok
}

// Result is the outcome of a successful evaluation
type Result struct {
	Value any
	Trace Trace
}

// String renders the value as formula output text
func (r *Result) String() string {
	return Stringify(r.Value)
}

// Option configures an evaluation
type Option func(*config)

type config struct {
	logger *slog.Logger
	env    *Env
}

// WithLogger sends branch and loop decisions to logger at debug level
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEnv evaluates with env as the outermost lexical environment
func WithEnv(env *Env) Option {
	return func(c *config) {
		c.env = env
	}
}

// Evaluate runs node against data. Failures are a
// *errors.FieldResolutionError or *errors.RuntimeError; there is no partial
// result.
func Evaluate(node ast.Node, data any, opts ...Option) (*Result, error) {
	invariant.NotNil(node, "node")

	cfg := &config{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}

	ev := &evaluator{
		root:   data,
		trace:  make(Trace),
		logger: cfg.logger,
	}

	value, err := ev.eval(node, cfg.env)
	if err != nil {
		ev.logger.Debug("[EVAL] failed", "error", err)
		return nil, err
	}
	if value == nil {
		value = ""
	}
	return &Result{Value: value, Trace: ev.trace}, nil
}

// evaluator holds the state of a single evaluation
type evaluator struct {
	root   any
	trace  Trace
	logger *slog.Logger
}

func (ev *evaluator) eval(node ast.Node, env *Env) (any, error) {
	var (
		value any
		err   error
	)

	switch n := node.(type) {
	case *ast.StringLiteral:
		value = n.Value

	case *ast.NumberLiteral:
		// Numeric literals are text until a built-in coerces them
		value = n.String()

	case *ast.Identifier:
		value, err = ResolvePath(n.Value, ev.root, env)
		var fre *ferrors.FieldResolutionError
		if errors.As(err, &fre) && fre.Range == (ast.Range{}) {
			fre.Range = n.Span
		}

	case *ast.CallExpression:
		value, err = ev.call(n, env)

	case *ast.Default:
		value = ""

	default:
		invariant.Invariant(false, "unknown node type %T", node)
	}

	if err != nil {
		return nil, err
	}
	ev.trace[node] = TraceEntry{Value: value, Executed: true}
	return value, nil
}

func (ev *evaluator) call(n *ast.CallExpression, env *Env) (any, error) {
	switch n.Name {
	case builtins.If:
		return ev.evalIf(n, env)
	case builtins.IgnoreIfNull:
		return ev.evalIgnoreIfNull(n, env)
	case builtins.ForEach:
		return ev.evalForEach(n, env)
	}

	args := make([]any, len(n.Arguments))
	for i, arg := range n.Arguments {
		v, err := ev.eval(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	fn, ok := functions[n.Name]
	if !ok {
		ev.logger.Debug("[EVAL] unknown function", "name", n.Name)
		return "", nil
	}
	invariant.Precondition(len(args) == arityOf(n.Name), "%s called with %d arguments", n.Name, len(args))

	v, err := fn(args)
	if err != nil {
		var kinded ferrors.Kinded
		if errors.As(err, &kinded) {
			return nil, err
		}
		return nil, &ferrors.RuntimeError{
			Function: n.Name,
			Message:  err.Error(),
			Range:    n.Span,
			Cause:    err,
		}
	}
	return v, nil
}

// evalIf evaluates only the branch selected by the condition
func (ev *evaluator) evalIf(n *ast.CallExpression, env *Env) (any, error) {
	cond, err := ev.eval(n.Arguments[0], env)
	if err != nil {
		return nil, err
	}

	branch, taken := n.Arguments[2], "else"
	if IsTruthy(cond) {
		branch, taken = n.Arguments[1], "then"
	}
	ev.logger.Debug("[EVAL] branch", "condition", n.Arguments[0].String(), "value", cond, "taken", taken)
	return ev.eval(branch, env)
}

// evalIgnoreIfNull recovers a failed field lookup as ""
func (ev *evaluator) evalIgnoreIfNull(n *ast.CallExpression, env *Env) (any, error) {
	v, err := ev.eval(n.Arguments[0], env)
	if err != nil {
		if ferrors.Is(err, ferrors.KindFieldResolution) {
			ev.logger.Debug("[EVAL] ignored missing field", "error", err)
			return "", nil
		}
		return nil, err
	}
	return v, nil
}

// evalForEach binds the loop variable in a fresh frame per element and
// concatenates the rendered bodies
func (ev *evaluator) evalForEach(n *ast.CallExpression, env *Env) (any, error) {
	name, err := ev.loopVariable(n)
	if err != nil {
		return nil, err
	}

	seq, err := ev.eval(n.Arguments[1], env)
	if err != nil {
		return nil, err
	}
	list, ok := seq.([]any)
	if !ok {
		return nil, ferrors.NewRuntimeError(builtins.ForEach, n.Arguments[1].Range(),
			"expects a list to loop over, but %s is %s", n.Arguments[1].String(), kindOf(seq))
	}

	var out []byte
	for i, item := range list {
		scope := env.Extend(name, item)
		ev.logger.Debug("[EVAL] iteration", "variable", name, "index", i, "scope", scope)
		v, err := ev.eval(n.Arguments[2], scope)
		if err != nil {
			return nil, err
		}
		out = append(out, Stringify(v)...)
	}
	return string(out), nil
}

// loopVariable reads the variable name literally: "c" and c both bind c
func (ev *evaluator) loopVariable(n *ast.CallExpression) (string, error) {
	var name string
	switch v := n.Arguments[0].(type) {
	case *ast.StringLiteral:
		name = v.Value
	case *ast.Identifier:
		name = v.Value
	default:
		return "", ferrors.NewRuntimeError(builtins.ForEach, v.Range(),
			"the loop variable must be a name, got %s", v.String())
	}
	if name == "" {
		return "", ferrors.NewRuntimeError(builtins.ForEach, n.Arguments[0].Range(),
			"the loop variable name is empty")
	}
	if strings.ContainsAny(name, ".[]") {
		return "", ferrors.NewRuntimeError(builtins.ForEach, n.Arguments[0].Range(),
			"the loop variable %q must be a single name without '.' or '['", name)
	}
	ev.trace[n.Arguments[0]] = TraceEntry{Value: name, Executed: true}
	return name, nil
}

func arityOf(name string) int {
	n, _ := builtins.Arity(name)
	return n
}
