package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	md "github.com/russross/blackfriday/v2"
	"github.com/spf13/cobra"

	"github.com/aledsdavies/formula/core/astfmt"
	"github.com/aledsdavies/formula/core/builtins"
	"github.com/aledsdavies/formula/runtime/analyzer"
	"github.com/aledsdavies/formula/runtime/eval"
	"github.com/aledsdavies/formula/runtime/lexer"
	"github.com/aledsdavies/formula/runtime/parser"
)

func newTokensCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [formula]",
		Short: "Print the tokens of a formula",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := a.readSource(cmd, args)
			if err != nil {
				return err
			}
			tokens, err := lexer.Tokenize(source, lexer.WithLogger(a.logger))
			if err != nil {
				return &FormulaError{Source: source, Err: err}
			}
			renderTokens(cmd.OutOrStdout(), tokens)
			return nil
		},
	}
}

func newASTCmd(a *app) *cobra.Command {
	var (
		canonical bool
		telemetry bool
	)
	cmd := &cobra.Command{
		Use:   "ast [formula]",
		Short: "Print the syntax tree of a formula",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []parser.ParserOpt
			if telemetry {
				opts = append(opts, parser.WithTelemetryTiming())
			}
			if a.debug {
				opts = append(opts, parser.WithDebugPaths())
			}
			f, err := a.readFormula(cmd, args, opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if canonical {
				_, _ = fmt.Fprintln(out, astfmt.Format(f.root))
				return nil
			}
			astfmt.FormatTree(out, f.root, nil, a.useColor)
			if telemetry && f.tree != nil {
				renderTelemetry(cmd.ErrOrStderr(), f.tree.Telemetry)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&canonical, "canonical", false, "Print the canonical formula text instead of the tree")
	cmd.Flags().BoolVar(&telemetry, "telemetry", false, "Report parse timings on stderr")
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	var showTrace bool
	cmd := &cobra.Command{
		Use:   "eval [formula]",
		Short: "Evaluate a formula against context data",
		Example: `  formula eval -c student.json '{{ concat toLower name.first "@school.edu" }}'
  formula eval -l email -c student.yaml --trace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.stdinConflict(); err != nil {
				return err
			}
			f, err := a.readFormula(cmd, args)
			if err != nil {
				return err
			}
			data, err := a.loadContext()
			if err != nil {
				return err
			}

			res, err := eval.Evaluate(f.root, data, eval.WithLogger(a.logger))
			if err != nil {
				return &FormulaError{Source: f.source, Err: err}
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, res.String())
			if showTrace {
				_, _ = fmt.Fprintln(out)
				renderTrace(out, f.root, res.Trace, a.useColor)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTrace, "trace", false, "Show the value of every evaluated node")
	return cmd
}

func newPathsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "paths [formula]",
		Short: "List every output a formula can produce and when",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.readFormula(cmd, args)
			if err != nil {
				return err
			}
			paths, err := analyzer.ExpandLogicPathsLimit(f.root, limit)
			if err != nil {
				return &CLIError{
					Type:    "analysis",
					Message: err.Error(),
					Hint:    "raise --max or split the formula into smaller pieces",
				}
			}
			renderPaths(cmd.OutOrStdout(), paths, a.useColor)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "max", 256, "Refuse to list more than this many paths")
	return cmd
}

func newSegmentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "segments [formula]",
		Short: "Group a chain of conditionals into decision tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.readFormula(cmd, args)
			if err != nil {
				return err
			}
			renderSegments(cmd.OutOrStdout(), analyzer.SegmentLogicChain(f.root), a.useColor)
			return nil
		},
	}
}

func newFunctionsCmd(a *app) *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "functions",
		Short: "List the built-in functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if markdown {
				_, _ = fmt.Fprint(out, builtins.Markdown())
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "FUNCTION\tARITY\tRETURNS\tDESCRIPTION")
			for _, spec := range builtins.All() {
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", spec.Signature(), spec.Arity(), spec.Returns, spec.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the full reference as Markdown")
	return cmd
}

func newDocsCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Render the function reference as HTML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			html := renderReferenceHTML()
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(html)
				return err
			}
			if err := os.WriteFile(output, html, 0o644); err != nil {
				return fmt.Errorf("error writing %s: %w", output, err)
			}
			a.logger.Debug("[DOCS] written", "path", output, "bytes", len(html))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the page to a file instead of stdout")
	return cmd
}

// renderReferenceHTML wraps the Markdown reference in a minimal page
func renderReferenceHTML() []byte {
	body := md.Run([]byte(builtins.Markdown()))
	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Formula functions</title></head>
<body>
<div class="formulaDoc doc">%s</div>
</body>
</html>
`, body)
	return []byte(page)
}

func newCompileCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "compile [formula]",
		Short: "Write the parsed formula in binary form and print its digest",
		Long: "Compile parses a formula once and stores the tree as CBOR. " +
			"Files ending in " + compiledExt + " are accepted wherever -f takes a formula.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.readFormula(cmd, args)
			if err != nil {
				return err
			}
			data, err := astfmt.Marshal(f.root)
			if err != nil {
				return err
			}
			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("error writing %s: %w", output, err)
				}
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), astfmt.DigestHex(f.root))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the binary tree to this file (conventionally *"+compiledExt+")")
	return cmd
}
