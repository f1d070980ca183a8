// Package explain turns engine errors into short, friendly explanations for
// formula authors. It branches on the typed error kind and class only; the
// message text of an error is shown, never parsed.
package explain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/aledsdavies/formula/core/builtins"
	ferrors "github.com/aledsdavies/formula/core/errors"
)

// Explanation is a user-facing rendering of an error
type Explanation struct {
	Icon        string
	Title       string
	Message     string
	Suggestions []string
}

const (
	IconSyntax  = "✏️"
	IconCount   = "🔢"
	IconField   = "🔍"
	IconRuntime = "⚠️"
	IconUnknown = "❓"
)

// Explain maps err to an Explanation. A nil error yields the zero value.
func Explain(err error) Explanation {
	if err == nil {
		return Explanation{}
	}

	var syn *ferrors.SyntaxError
	if errors.As(err, &syn) {
		if syn.Kind() == ferrors.KindArity {
			return arity(syn)
		}
		return syntax(syn)
	}

	var field *ferrors.FieldResolutionError
	if errors.As(err, &field) {
		return fieldResolution(field)
	}

	var rt *ferrors.RuntimeError
	if errors.As(err, &rt) {
		return runtimeFailure(rt)
	}

	return Explanation{
		Icon:    IconUnknown,
		Title:   "Something went wrong",
		Message: err.Error(),
		Suggestions: []string{
			"Check that the formula starts with {{ and ends with }}.",
		},
	}
}

func syntax(e *ferrors.SyntaxError) Explanation {
	ex := Explanation{
		Icon:    IconSyntax,
		Message: fmt.Sprintf("%s (line %d, column %d).", capitalise(e.Message), e.Position.Line, e.Position.Column),
	}

	switch e.Class {
	case ferrors.ClassUnknownFunction:
		ex.Title = "Unknown function"
		ex.Suggestions = append(ex.Suggestions, "Function names are case-sensitive. Run `formula functions` for the full list.")
	case ferrors.ClassUnknownCharacter:
		ex.Title = "Unexpected character"
		ex.Suggestions = append(ex.Suggestions, "Arguments are separated by spaces, not commas or braces.")
	case ferrors.ClassUnterminatedString:
		ex.Title = "Unclosed text"
		ex.Suggestions = append(ex.Suggestions, `Every string needs a closing double quote; write \" for a quote inside text.`)
	case ferrors.ClassUnterminatedGroup:
		ex.Title = "Unclosed parenthesis"
		ex.Suggestions = append(ex.Suggestions, "Each ( needs a matching ) before the formula ends.")
	case ferrors.ClassUnterminatedWrapper:
		ex.Title = "Formula is not closed"
		ex.Suggestions = append(ex.Suggestions, "End the formula with }}.")
	case ferrors.ClassMissingWrapper:
		ex.Title = "No formula found"
		ex.Suggestions = append(ex.Suggestions, "Wrap the formula in double braces, e.g. {{ name.first }}.")
	default:
		ex.Title = "Formula doesn't make sense here"
		ex.Suggestions = append(ex.Suggestions, "Check for a missing function name or an extra value.")
	}

	ex.Suggestions = withHints(ex.Suggestions, e.Suggestion, e.Example)
	return ex
}

func arity(e *ferrors.SyntaxError) Explanation {
	title := "Wrong number of values"
	switch {
	case e.Got < e.Expected:
		title = fmt.Sprintf("%s needs more values", e.Function)
	case e.Got > e.Expected:
		title = fmt.Sprintf("%s was given too many values", e.Function)
	}

	msg := fmt.Sprintf("%s takes %d %s but got %d.", e.Function, e.Expected, plural(e.Expected, "value"), e.Got)
	var suggestions []string
	if spec, ok := builtins.Lookup(e.Function); ok {
		suggestions = append(suggestions, "Usage: "+spec.Signature())
	}
	if e.Got > e.Expected {
		suggestions = append(suggestions, "Group a nested call with parentheses to see which values it takes.")
	}
	return Explanation{
		Icon:        IconCount,
		Title:       title,
		Message:     msg,
		Suggestions: withHints(suggestions, "", e.Example),
	}
}

func fieldResolution(e *ferrors.FieldResolutionError) Explanation {
	ex := Explanation{Icon: IconField, Title: "Field not found"}

	switch {
	case e.Reason != "":
		ex.Title = "Field has the wrong shape"
		ex.Message = fmt.Sprintf("Can't read %q: %s.", e.Path, e.Reason)
	case e.IsIndex:
		ex.Title = "List position out of range"
		ex.Message = fmt.Sprintf("%q has %d %s, so position %d doesn't exist.", e.Path, e.Length, plural(e.Length, "item"), e.Index)
		if e.Length > 0 {
			ex.Suggestions = append(ex.Suggestions, fmt.Sprintf("Positions start at 0; the last one is [%d].", e.Length-1))
		}
	default:
		ex.Message = fmt.Sprintf("There is no field %q in the data.", e.Path)
		if key, ok := closestKey(lastSegment(e.Path), e.Available); ok {
			ex.Suggestions = append(ex.Suggestions, fmt.Sprintf("Did you mean %q?", key))
		}
		if len(e.Available) > 0 {
			ex.Suggestions = append(ex.Suggestions, "Available fields: "+strings.Join(e.Available, ", "))
		}
	}

	ex.Suggestions = append(ex.Suggestions, "Wrap optional fields in ignoreIfNull to output nothing when they are missing.")
	return ex
}

func runtimeFailure(e *ferrors.RuntimeError) Explanation {
	ex := Explanation{
		Icon:    IconRuntime,
		Title:   "Couldn't compute a value",
		Message: capitalise(e.Error()) + ".",
	}
	if e.Function != "" {
		ex.Title = fmt.Sprintf("%s couldn't use its input", e.Function)
		if spec, ok := builtins.Lookup(e.Function); ok {
			ex.Suggestions = append(ex.Suggestions, "Usage: "+spec.Signature(), "Example: "+spec.Example)
		}
	}
	return ex
}

// closestKey suggests the available key nearest to key
func closestKey(key string, available []string) (string, bool) {
	if key == "" || len(available) == 0 {
		return "", false
	}
	best, bestDist := "", -1
	for _, candidate := range available {
		d := fuzzy.LevenshteinDistance(strings.ToLower(key), strings.ToLower(candidate))
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	limit := 2
	if len(key) <= 3 {
		limit = 1
	}
	if bestDist <= limit {
		return best, true
	}

	ranks := fuzzy.RankFindFold(key, available)
	sort.Sort(ranks)
	if len(ranks) > 0 {
		return ranks[0].Target, true
	}
	return "", false
}

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func withHints(suggestions []string, suggestion, example string) []string {
	if suggestion != "" {
		suggestions = append([]string{capitalise(suggestion)}, suggestions...)
	}
	if example != "" {
		suggestions = append(suggestions, "Example: "+example)
	}
	return suggestions
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
