// Package builtins is the single source of truth for the formula language's
// built-in functions: their names, arities and reference documentation.
//
// The parser consults Arity to decide how many argument expressions follow a
// function name; the CLI renders the same table as reference docs.
package builtins

import "sort"

// Category groups built-ins in reference docs
type Category string

const (
	CategoryText       Category = "text"
	CategoryPredicate  Category = "logic"
	CategoryArithmetic Category = "arithmetic"
	CategoryControl    Category = "control"
)

// ReturnType describes what a built-in evaluates to
type ReturnType string

const (
	ReturnsString ReturnType = "string"
	ReturnsBool   ReturnType = "boolean"
	ReturnsNumber ReturnType = "number"
	ReturnsAny    ReturnType = "any"
)

// Spec describes one built-in
type Spec struct {
	Name        string
	Params      []string // Parameter names in call order; len(Params) is the arity
	Returns     ReturnType
	Category    Category
	Description string
	Example     string
}

// Arity returns the number of arguments the function consumes
func (s Spec) Arity() int {
	return len(s.Params)
}

// Names of the built-ins that the interpreter and analyzer treat specially
const (
	Concat       = "concat"
	If           = "if"
	IgnoreIfNull = "ignoreIfNull"
	ForEach      = "forEach"
	Equals       = "equals"
	And          = "and"
	Or           = "or"
	Not          = "not"
)

var table = []Spec{
	// Text
	{Name: Concat, Params: []string{"left", "right"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Joins two values into one string.",
		Example:     `{{ concat name.first name.last }}`},
	{Name: "toLower", Params: []string{"text"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Converts text to lower case.",
		Example:     `{{ toLower name.first }}`},
	{Name: "toUpper", Params: []string{"text"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Converts text to upper case.",
		Example:     `{{ toUpper name.last }}`},
	{Name: "trim", Params: []string{"text"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Removes leading and trailing whitespace.",
		Example:     `{{ trim name.middle }}`},
	{Name: "initials", Params: []string{"text"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Returns the first character of every space-separated word.",
		Example:     `{{ initials "Amy Beth Clark" }}`},
	{Name: "length", Params: []string{"text"}, Returns: ReturnsNumber, Category: CategoryText,
		Description: "Counts the characters in text.",
		Example:     `{{ length name.first }}`},
	{Name: "substr", Params: []string{"text", "start", "length"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Extracts length characters starting at the 0-indexed start position.",
		Example:     `{{ substr name.first 0 1 }}`},
	{Name: "textBefore", Params: []string{"text", "separator"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Returns the text before the first occurrence of separator.",
		Example:     `{{ textBefore email "@" }}`},
	{Name: "textAfter", Params: []string{"text", "separator"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Returns the text after the first occurrence of separator.",
		Example:     `{{ textAfter email "@" }}`},
	{Name: "textBeforeLast", Params: []string{"text", "separator"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Returns the text before the last occurrence of separator.",
		Example:     `{{ textBeforeLast path "/" }}`},
	{Name: "textAfterLast", Params: []string{"text", "separator"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Returns the text after the last occurrence of separator.",
		Example:     `{{ textAfterLast path "/" }}`},
	{Name: "replace", Params: []string{"text", "search", "replacement"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Replaces every occurrence of search (case-sensitive).",
		Example:     `{{ replace name.last " " "-" }}`},
	{Name: "formatDate", Params: []string{"date", "pattern"}, Returns: ReturnsString, Category: CategoryText,
		Description: "Reformats an ISO date. Pattern tokens: YYYY YY MMMM MMM MM M Do DD D.",
		Example:     `{{ formatDate dob "MMM DD, YYYY" }}`},

	// Logic
	{Name: Equals, Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "True when both values render to the same text.",
		Example:     `{{ if equals grade "12" "Senior" "Other" }}`},
	{Name: "contains", Params: []string{"text", "search"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "True when text contains search.",
		Example:     `{{ contains email "@school.edu" }}`},
	{Name: "in", Params: []string{"value", "list"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "True when value is one of the space-separated words in list.",
		Example:     `{{ in grade "9 10 11 12" }}`},
	{Name: Not, Params: []string{"value"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "Negates a value's truthiness.",
		Example:     `{{ not equals grade "12" }}`},
	{Name: And, Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "True when both values are truthy.",
		Example:     `{{ and active enrolled }}`},
	{Name: Or, Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "True when either value is truthy.",
		Example:     `{{ or staff admin }}`},
	{Name: "greater", Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "Numeric left > right.",
		Example:     `{{ greater grade 8 }}`},
	{Name: "less", Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "Numeric left < right.",
		Example:     `{{ less grade 9 }}`},
	{Name: "geq", Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "Numeric left >= right.",
		Example:     `{{ geq grade 9 }}`},
	{Name: "leq", Params: []string{"left", "right"}, Returns: ReturnsBool, Category: CategoryPredicate,
		Description: "Numeric left <= right.",
		Example:     `{{ leq grade 5 }}`},

	// Arithmetic
	{Name: "add", Params: []string{"left", "right"}, Returns: ReturnsNumber, Category: CategoryArithmetic,
		Description: "Adds two numbers.",
		Example:     `{{ add grad_year 4 }}`},
	{Name: "subtract", Params: []string{"left", "right"}, Returns: ReturnsNumber, Category: CategoryArithmetic,
		Description: "Subtracts right from left.",
		Example:     `{{ subtract grad_year 1 }}`},

	// Control
	{Name: If, Params: []string{"condition", "then", "else"}, Returns: ReturnsAny, Category: CategoryControl,
		Description: "Evaluates only the branch selected by condition.",
		Example:     `{{ if equals grade "12" "Senior" "Student" }}`},
	{Name: IgnoreIfNull, Params: []string{"value"}, Returns: ReturnsAny, Category: CategoryControl,
		Description: "Yields an empty string when value refers to a missing field.",
		Example:     `{{ ignoreIfNull name.middle }}`},
	{Name: ForEach, Params: []string{"variable", "list", "body"}, Returns: ReturnsString, Category: CategoryControl,
		Description: "Evaluates body once per element of list with variable bound to the element, joining the results.",
		Example:     `{{ forEach "c" courses concat c ", " }}`},
}

var index = func() map[string]Spec {
	m := make(map[string]Spec, len(table))
	for _, s := range table {
		m[s.Name] = s
	}
	return m
}()

// Lookup returns the spec for name
func Lookup(name string) (Spec, bool) {
	s, ok := index[name]
	return s, ok
}

// Arity returns the argument count for name, or false if it is not a built-in
func Arity(name string) (int, bool) {
	s, ok := index[name]
	if !ok {
		return 0, false
	}
	return s.Arity(), true
}

// IsBuiltin reports whether name is a built-in function
func IsBuiltin(name string) bool {
	_, ok := index[name]
	return ok
}

// All returns every built-in in table order
func All() []Spec {
	out := make([]Spec, len(table))
	copy(out, table)
	return out
}

// Names returns the built-in names sorted alphabetically
func Names() []string {
	names := make([]string, 0, len(table))
	for _, s := range table {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}
