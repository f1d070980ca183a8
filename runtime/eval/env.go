package eval

import "strings"

// Env is a persistent lexical environment: an immutable frame binding one
// name, chained to its parent. Extending never changes an existing frame,
// so a frame may be shared by concurrent or nested evaluations.
//
// The nil *Env is the empty environment.
type Env struct {
	parent *Env
	name   string
	value  any
	depth  int
}

// Extend returns a new environment binding name to value on top of e
func (e *Env) Extend(name string, value any) *Env {
	return &Env{parent: e, name: name, value: value, depth: e.Depth() + 1}
}

// Lookup finds the nearest binding of name
func (e *Env) Lookup(name string) (any, bool) {
	for f := e; f != nil; f = f.parent {
		if f.name == name {
			return f.value, true
		}
	}
	return nil, false
}

// Depth returns the number of frames
func (e *Env) Depth() int {
	if e == nil {
		return 0
	}
	return e.depth
}

// Names returns the visible names, innermost first, without duplicates
func (e *Env) Names() []string {
	var names []string
	seen := make(map[string]bool)
	for f := e; f != nil; f = f.parent {
		if !seen[f.name] {
			seen[f.name] = true
			names = append(names, f.name)
		}
	}
	return names
}

// String renders the chain for debugging, e.g. "c -> outer"
func (e *Env) String() string {
	return strings.Join(e.Names(), " -> ")
}
