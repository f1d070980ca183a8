package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/core/astfmt"
	"github.com/aledsdavies/formula/runtime/contextdata"
	"github.com/aledsdavies/formula/runtime/library"
	"github.com/aledsdavies/formula/runtime/parser"
)

// compiledExt marks a formula file written by `formula compile`
const compiledExt = ".fbin"

// app holds flag values and the process streams shared by every command
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	file        string
	libName     string
	contextPath string
	format      string
	schemaPath  string
	libraryPath string
	debug       bool
	noColor     bool

	useColor bool
	logger   *slog.Logger
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		FormatError(a.stderr, err, a.useColor)
		stop()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "formula [command]",
		Short:         "Parse, evaluate and analyse {{ }} formulas",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.configure()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.file, "file", "f", "", "Read the formula from a file (- for stdin)")
	flags.StringVarP(&a.libName, "lib", "l", "", "Use a formula saved in the library")
	flags.StringVarP(&a.contextPath, "context", "c", "", "Context data file, JSON or YAML (- for stdin)")
	flags.StringVar(&a.format, "format", "", "Context format: json or yaml (default: by extension)")
	flags.StringVar(&a.schemaPath, "schema", "", "JSON Schema the context must satisfy")
	flags.StringVar(&a.libraryPath, "library", "", "Library database (default: $FORMULA_LIBRARY or the user config dir)")
	flags.BoolVar(&a.debug, "debug", false, "Enable debug output")
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newTokensCmd(a),
		newASTCmd(a),
		newEvalCmd(a),
		newPathsCmd(a),
		newSegmentsCmd(a),
		newFunctionsCmd(a),
		newDocsCmd(a),
		newCompileCmd(a),
		newWatchCmd(a),
		newLibCmd(a),
	)
	return rootCmd
}

// configure resolves color and logging once flags are parsed
func (a *app) configure() {
	a.useColor = ShouldUseColor(a.noColor, a.stdout)

	level := slog.LevelInfo
	if a.debug || os.Getenv("FORMULA_DEBUG") != "" {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey || attr.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return attr
		},
	}))
}

// formula is a parsed formula together with the text it came from
type formula struct {
	source string
	root   ast.Node
	tree   *parser.ParseTree // nil for compiled and library formulas
}

// readSource resolves the formula text from, in order: --lib, --file,
// positional arguments, or piped stdin
func (a *app) readSource(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case a.libName != "":
		store, err := a.openLibrary()
		if err != nil {
			return "", err
		}
		defer func() { _ = store.Close() }()
		rec, err := store.Get(cmd.Context(), a.libName)
		if err != nil {
			return "", libraryError(err)
		}
		return rec.Source, nil

	case a.file == "-":
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("error reading stdin: %w", err)
		}
		return string(data), nil

	case a.file != "":
		if isCompiled(a.file) {
			root, err := readCompiled(a.file)
			if err != nil {
				return "", err
			}
			return astfmt.Format(root), nil
		}
		data, err := os.ReadFile(a.file)
		if err != nil {
			return "", fmt.Errorf("error opening file %s: %w", a.file, err)
		}
		return string(data), nil

	case len(args) > 0:
		return strings.Join(args, " "), nil

	case hasPipedInput(a.stdin):
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("error reading stdin: %w", err)
		}
		return string(data), nil
	}

	return "", &CLIError{
		Type:    "input",
		Message: "no formula given",
		Hint:    `pass it as an argument, e.g. formula eval '{{ toUpper name }}', or use -f <file>`,
	}
}

// readFormula returns the parsed formula. Library and compiled formulas
// use their stored tree; everything else is parsed from source.
func (a *app) readFormula(cmd *cobra.Command, args []string, opts ...parser.ParserOpt) (*formula, error) {
	switch {
	case a.libName != "":
		return a.libraryFormula(cmd)
	case a.file != "" && isCompiled(a.file):
		return a.compiledFormula()
	}

	source, err := a.readSource(cmd, args)
	if err != nil {
		return nil, err
	}
	opts = append(opts, parser.WithLogger(a.logger))
	tree, err := parser.ParseSource(source, opts...)
	if err != nil {
		return nil, &FormulaError{Source: source, Err: err}
	}
	return &formula{source: source, root: tree.Root, tree: tree}, nil
}

func (a *app) libraryFormula(cmd *cobra.Command) (*formula, error) {
	store, err := a.openLibrary()
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	rec, err := store.Get(cmd.Context(), a.libName)
	if err != nil {
		return nil, libraryError(err)
	}
	root, err := rec.Root()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("[LIB] loaded", "name", rec.Name, "digest", rec.Digest)
	return &formula{source: rec.Source, root: root}, nil
}

func (a *app) compiledFormula() (*formula, error) {
	root, err := readCompiled(a.file)
	if err != nil {
		return nil, err
	}
	return &formula{source: astfmt.Format(root), root: root}, nil
}

func isCompiled(path string) bool {
	return strings.EqualFold(filepath.Ext(path), compiledExt)
}

func readCompiled(path string) (ast.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error opening file %s: %w", path, err)
	}
	root, err := astfmt.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// loadContext reads --context, validating against --schema when given
func (a *app) loadContext() (any, error) {
	format, err := contextdata.ParseFormat(a.format)
	if err != nil {
		return nil, err
	}
	opts := []contextdata.Option{
		contextdata.WithFormat(format),
		contextdata.WithStdin(a.stdin),
		contextdata.WithLogger(a.logger),
	}
	if a.schemaPath != "" {
		schema, err := contextdata.LoadSchema(a.schemaPath)
		if err != nil {
			return nil, err
		}
		opts = append(opts, contextdata.WithSchema(schema))
	}
	return contextdata.Load(a.contextPath, opts...)
}

func (a *app) openLibrary() (*library.Store, error) {
	path := a.libraryPath
	if path == "" {
		path = library.DefaultPath()
	}
	return library.Open(path, library.WithLogger(a.logger))
}

// hasPipedInput detects if there's data piped to stdin
func hasPipedInput(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	// Not a character device means stdin is a pipe or a file
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// stdinConflict reports a formula and a context both read from stdin
func (a *app) stdinConflict() error {
	if a.contextPath == "-" && a.file == "-" {
		return errors.New("the formula and the context cannot both be read from stdin")
	}
	return nil
}
