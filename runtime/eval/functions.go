package eval

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// function implements an eagerly evaluated built-in. Control built-ins
// (if, ignoreIfNull, forEach) are handled by the evaluator itself.
type function func(args []any) (any, error)

var functions = map[string]function{
	// Text
	"concat": func(a []any) (any, error) {
		return Stringify(a[0]) + Stringify(a[1]), nil
	},
	"toLower": func(a []any) (any, error) {
		// A Caser is stateful, so one is made per call
		return cases.Lower(language.Und).String(Stringify(a[0])), nil
	},
	"toUpper": func(a []any) (any, error) {
		return cases.Upper(language.Und).String(Stringify(a[0])), nil
	},
	"trim": func(a []any) (any, error) {
		return strings.TrimSpace(Stringify(a[0])), nil
	},
	"initials": func(a []any) (any, error) {
		var b strings.Builder
		for _, word := range strings.Fields(Stringify(a[0])) {
			r, _ := utf8.DecodeRuneInString(word)
			b.WriteRune(r)
		}
		return b.String(), nil
	},
	"length": func(a []any) (any, error) {
		return float64(utf8.RuneCountInString(Stringify(a[0]))), nil
	},
	"substr":         substr,
	"textBefore":     textBefore,
	"textAfter":      textAfter,
	"textBeforeLast": textBeforeLast,
	"textAfterLast":  textAfterLast,
	"replace": func(a []any) (any, error) {
		s, search := Stringify(a[0]), Stringify(a[1])
		if search == "" {
			return s, nil
		}
		return strings.ReplaceAll(s, search, Stringify(a[2])), nil
	},
	"formatDate": func(a []any) (any, error) {
		return formatDate(Stringify(a[0]), Stringify(a[1]))
	},

	// Logic
	"equals": func(a []any) (any, error) {
		return Stringify(a[0]) == Stringify(a[1]), nil
	},
	"contains": func(a []any) (any, error) {
		return strings.Contains(Stringify(a[0]), Stringify(a[1])), nil
	},
	"in": func(a []any) (any, error) {
		value := Stringify(a[0])
		if list, ok := a[1].([]any); ok {
			return slices.ContainsFunc(list, func(v any) bool { return Stringify(v) == value }), nil
		}
		return slices.Contains(strings.Fields(Stringify(a[1])), value), nil
	},
	"not": func(a []any) (any, error) {
		return !IsTruthy(a[0]), nil
	},
	"and": func(a []any) (any, error) {
		return IsTruthy(a[0]) && IsTruthy(a[1]), nil
	},
	"or": func(a []any) (any, error) {
		return IsTruthy(a[0]) || IsTruthy(a[1]), nil
	},
	"greater": compare(func(x, y float64) bool { return x > y }),
	"less":    compare(func(x, y float64) bool { return x < y }),
	"geq":     compare(func(x, y float64) bool { return x >= y }),
	"leq":     compare(func(x, y float64) bool { return x <= y }),

	// Arithmetic
	"add":      arithmetic(func(x, y float64) float64 { return x + y }),
	"subtract": arithmetic(func(x, y float64) float64 { return x - y }),
}

func numbers(a []any) (float64, float64, error) {
	x, ok := toNumber(a[0])
	if !ok {
		return 0, 0, fmt.Errorf("%q is not a number", Stringify(a[0]))
	}
	y, ok := toNumber(a[1])
	if !ok {
		return 0, 0, fmt.Errorf("%q is not a number", Stringify(a[1]))
	}
	return x, y, nil
}

func compare(op func(x, y float64) bool) function {
	return func(a []any) (any, error) {
		x, y, err := numbers(a)
		if err != nil {
			return nil, err
		}
		return op(x, y), nil
	}
}

func arithmetic(op func(x, y float64) float64) function {
	return func(a []any) (any, error) {
		x, y, err := numbers(a)
		if err != nil {
			return nil, err
		}
		return op(x, y), nil
	}
}

// substr counts characters, not bytes, and clamps out-of-range bounds
func substr(a []any) (any, error) {
	start, ok := toNumber(a[1])
	if !ok {
		return nil, fmt.Errorf("start %q is not a number", Stringify(a[1]))
	}
	length, ok := toNumber(a[2])
	if !ok {
		return nil, fmt.Errorf("length %q is not a number", Stringify(a[2]))
	}

	runes := []rune(Stringify(a[0]))
	from := clamp(start, 0, len(runes))
	to := from + clamp(length, 0, len(runes)-from)
	return string(runes[from:to]), nil
}

// clamp bounds v to [lo, hi] before converting, so huge values cannot
// overflow int. NaN counts as lo.
func clamp(v float64, lo, hi int) int {
	if math.IsNaN(v) {
		return lo
	}
	return int(math.Min(math.Max(v, float64(lo)), float64(hi)))
}

// The text* functions yield "" when the separator does not occur

func textBefore(a []any) (any, error) {
	s, sep := Stringify(a[0]), Stringify(a[1])
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], nil
	}
	return "", nil
}

func textAfter(a []any) (any, error) {
	s, sep := Stringify(a[0]), Stringify(a[1])
	if i := strings.Index(s, sep); i >= 0 {
		return s[i+len(sep):], nil
	}
	return "", nil
}

func textBeforeLast(a []any) (any, error) {
	s, sep := Stringify(a[0]), Stringify(a[1])
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], nil
	}
	return "", nil
}

func textAfterLast(a []any) (any, error) {
	s, sep := Stringify(a[0]), Stringify(a[1])
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):], nil
	}
	return "", nil
}
