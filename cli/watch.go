package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/aledsdavies/formula/core/astfmt"
	"github.com/aledsdavies/formula/runtime/eval"
	"github.com/aledsdavies/formula/runtime/parser"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Re-evaluate a formula file whenever it or its context changes",
		Example: `  formula watch -f email.formula -c student.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.file == "" || a.file == "-" {
				return &CLIError{
					Type:    "input",
					Message: "watch needs a formula file",
					Hint:    "pass the formula with -f <file>",
				}
			}
			if a.contextPath == "-" {
				return &CLIError{Type: "input", Message: "watch cannot read the context from stdin"}
			}
			return a.watch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

// watcher re-renders on change, skipping events that leave both the
// formula's canonical digest and the context bytes unchanged
type watcher struct {
	app    *app
	out    io.Writer
	errOut io.Writer

	rendered    bool
	lastDigest  [32]byte
	lastContext []byte
}

func (a *app) watch(ctx context.Context, out, errOut io.Writer) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error starting watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	// Watch directories so editors that replace files on save are seen
	targets := map[string]bool{}
	for _, path := range []string{a.file, a.contextPath} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
		if err := fw.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("error watching %s: %w", path, err)
		}
	}

	w := &watcher{app: a, out: out, errOut: errOut}
	w.render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !targets[abs] || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			a.logger.Debug("[WATCH] change", "file", event.Name, "op", event.Op.String())
			w.render()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			a.logger.Debug("[WATCH] error", "error", err)
		}
	}
}

// render evaluates once and prints the value or the error
func (w *watcher) render() {
	source, err := os.ReadFile(w.app.file)
	if err != nil {
		FormatError(w.errOut, err, w.app.useColor)
		return
	}
	var contextBytes []byte
	if w.app.contextPath != "" {
		contextBytes, err = os.ReadFile(w.app.contextPath)
		if err != nil {
			FormatError(w.errOut, err, w.app.useColor)
			return
		}
	}

	root, err := parser.ParseString(string(source), parser.WithLogger(w.app.logger))
	if err != nil {
		w.rendered = false
		FormatError(w.errOut, &FormulaError{Source: string(source), Err: err}, w.app.useColor)
		return
	}

	digest := astfmt.Digest(root)
	if w.rendered && digest == w.lastDigest && bytes.Equal(contextBytes, w.lastContext) {
		w.app.logger.Debug("[WATCH] unchanged, skipping")
		return
	}

	data, err := w.app.loadContext()
	if err != nil {
		w.rendered = false
		FormatError(w.errOut, err, w.app.useColor)
		return
	}
	res, err := eval.Evaluate(root, data, eval.WithLogger(w.app.logger))
	if err != nil {
		w.rendered = false
		FormatError(w.errOut, &FormulaError{Source: string(source), Err: err}, w.app.useColor)
		return
	}

	w.rendered = true
	w.lastDigest = digest
	w.lastContext = contextBytes
	_, _ = fmt.Fprintln(w.out, res.String())
}
