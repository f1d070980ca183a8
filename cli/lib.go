package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/runtime/library"
)

func newLibCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lib",
		Short: "Manage the local formula library",
	}
	cmd.AddCommand(newLibSaveCmd(a), newLibListCmd(a), newLibShowCmd(a), newLibRmCmd(a))
	return cmd
}

func newLibSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save NAME [formula]",
		Short: "Parse a formula and store it under NAME",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			source, err := a.readSource(cmd, args[1:])
			if err != nil {
				return err
			}
			return a.withLibrary(func(store *library.Store) error {
				rec, err := store.Save(cmd.Context(), name, source)
				if err != nil {
					if _, ok := ferrors.KindOf(err); ok {
						return &FormulaError{Source: source, Err: err}
					}
					return libraryError(err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s %s\n", rec.Name, rec.Digest[:12])
				return nil
			})
		},
	}
}

func newLibListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored formulas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(func(store *library.Store) error {
				records, err := store.List(cmd.Context())
				if err != nil {
					return libraryError(err)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "NAME\tDIGEST\tSAVED\tFORMULA")
				for _, rec := range records {
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
						rec.Name, rec.Digest[:12], rec.SavedAt.Local().Format(time.DateTime), oneLine(rec.Source))
				}
				return tw.Flush()
			})
		},
	}
}

func newLibShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a stored formula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(func(store *library.Store) error {
				rec, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return libraryError(err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), rec.Source)
				return nil
			})
		},
	}
}

func newLibRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a stored formula",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(func(store *library.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return libraryError(err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) withLibrary(fn func(*library.Store) error) error {
	store, err := a.openLibrary()
	if err != nil {
		return &CLIError{Type: "library", Message: err.Error(), Hint: "set --library or FORMULA_LIBRARY to a writable path"}
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func libraryError(err error) error {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return &CLIError{Type: "library", Message: err.Error(), Hint: "run `formula lib list` to see saved formulas"}
	case errors.Is(err, library.ErrInvalidName):
		return &CLIError{Type: "library", Message: err.Error(), Hint: "names are single words such as student-email"}
	default:
		return err
	}
}

// oneLine collapses a multi-line formula for table output
func oneLine(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' || r == ' ' {
			if !space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = true
			continue
		}
		space = false
		out = append(out, r)
	}
	if n := len(out); n > 0 && out[n-1] == ' ' {
		out = out[:n-1]
	}
	return string(out)
}
