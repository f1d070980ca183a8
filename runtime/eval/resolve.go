package eval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	ferrors "github.com/aledsdavies/formula/core/errors"
)

// step is one hop of a field path: a record key or a sequence index
type step struct {
	key     string
	index   int
	isIndex bool
}

// ResolvePath walks a dotted, optionally indexed path such as
// student.schools[0].name. The first key is looked up in env before root.
// Missing keys and out-of-range indexes fail with a
// *errors.FieldResolutionError; a nil value at the end resolves to "".
// The keywords true, false and null never consult the data.
func ResolvePath(path string, root any, env *Env) (any, error) {
	switch path {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}

	steps, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	current := root
	walked := ""
	for i, s := range steps {
		if s.isIndex {
			list, ok := current.([]any)
			if !ok {
				return nil, &ferrors.FieldResolutionError{
					Path:    walked,
					IsIndex: true,
					Index:   s.index,
					Reason:  fmt.Sprintf("%s is %s, not a list", describePath(walked), kindOf(current)),
				}
			}
			if s.index < 0 || s.index >= len(list) {
				return nil, &ferrors.FieldResolutionError{
					Path:    walked,
					IsIndex: true,
					Index:   s.index,
					Length:  len(list),
				}
			}
			current = list[s.index]
			walked = fmt.Sprintf("%s[%d]", walked, s.index)
			continue
		}

		next := s.key
		if walked != "" {
			next = walked + "." + s.key
		}

		if i == 0 {
			if v, ok := env.Lookup(s.key); ok {
				current = v
				walked = next
				continue
			}
		}

		record, ok := current.(map[string]any)
		if !ok {
			return nil, &ferrors.FieldResolutionError{
				Path:   next,
				Reason: fmt.Sprintf("%s is %s, not a record", describePath(walked), kindOf(current)),
			}
		}
		v, ok := record[s.key]
		if !ok {
			return nil, &ferrors.FieldResolutionError{
				Path:      next,
				Available: sortedKeys(record),
			}
		}
		current = v
		walked = next
	}

	if current == nil {
		return "", nil
	}
	return current, nil
}

// splitPath splits on '.' and then peels "[n]" suffixes into index steps
func splitPath(path string) ([]step, error) {
	malformed := func(why string) error {
		return &ferrors.FieldResolutionError{Path: path, Reason: "malformed path: " + why}
	}

	if path == "" {
		return nil, malformed("empty path")
	}

	var steps []step
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil, malformed("empty segment")
		}

		key := segment
		rest := ""
		if i := strings.IndexByte(segment, '['); i >= 0 {
			key, rest = segment[:i], segment[i:]
		}
		if strings.ContainsRune(key, ']') {
			return nil, malformed("unexpected ']' in " + strconv.Quote(segment))
		}
		if key != "" {
			steps = append(steps, step{key: key})
		}

		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, malformed("unclosed index in " + strconv.Quote(segment))
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, malformed("index must be a non-negative integer in " + strconv.Quote(segment))
			}
			steps = append(steps, step{index: n, isIndex: true})
			rest = rest[end+1:]
		}
	}
	return steps, nil
}

func describePath(walked string) string {
	if walked == "" {
		return "the context"
	}
	return strconv.Quote(walked)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "a record"
	case []any:
		return "a list"
	case string:
		return "text"
	case bool:
		return "a boolean"
	case float64, float32, int, int64, int32, uint, uint64:
		return "a number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
