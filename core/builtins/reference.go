package builtins

import (
	"fmt"
	"strings"
)

var categoryOrder = []struct {
	cat   Category
	title string
}{
	{CategoryText, "Text"},
	{CategoryPredicate, "Logic"},
	{CategoryArithmetic, "Arithmetic"},
	{CategoryControl, "Control"},
}

// Signature renders the call shape, e.g. `substr text start length`
func (s Spec) Signature() string {
	if len(s.Params) == 0 {
		return s.Name
	}
	return s.Name + " " + strings.Join(s.Params, " ")
}

// Markdown renders the reference for every built-in, grouped by category
func Markdown() string {
	var b strings.Builder
	b.WriteString("# Formula functions\n\n")
	b.WriteString("Arguments follow the function name without commas or parentheses. ")
	b.WriteString("Each function consumes exactly as many arguments as listed.\n")

	for _, group := range categoryOrder {
		fmt.Fprintf(&b, "\n## %s\n\n", group.title)
		b.WriteString("| Function | Arity | Returns | Description |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, s := range table {
			if s.Category != group.cat {
				continue
			}
			fmt.Fprintf(&b, "| `%s` | %d | %s | %s |\n", s.Signature(), s.Arity(), s.Returns, s.Description)
		}
		for _, s := range table {
			if s.Category != group.cat {
				continue
			}
			fmt.Fprintf(&b, "\n### %s\n\n%s\n\n```\n%s\n```\n", s.Name, s.Description, s.Example)
		}
	}
	return b.String()
}
