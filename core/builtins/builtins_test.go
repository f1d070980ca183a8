package builtins

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArity(t *testing.T) {
	tests := []struct {
		name  string
		arity int
	}{
		{"concat", 2},
		{"toLower", 1},
		{"substr", 3},
		{"replace", 3},
		{"if", 3},
		{"forEach", 3},
		{"ignoreIfNull", 1},
		{"not", 1},
		{"in", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Arity(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.arity, got)
			assert.True(t, IsBuiltin(tt.name))
		})
	}

	_, ok := Arity("Concat")
	assert.False(t, ok, "names are case-sensitive")
	assert.False(t, IsBuiltin("name.first"))
}

func TestTableIsConsistent(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range All() {
		assert.False(t, seen[s.Name], "duplicate built-in %s", s.Name)
		seen[s.Name] = true
		assert.NotEmpty(t, s.Params, s.Name)
		assert.NotEmpty(t, s.Description, s.Name)
		assert.True(t, strings.HasPrefix(s.Example, "{{ "), s.Name)

		got, ok := Lookup(s.Name)
		require.True(t, ok)
		assert.Equal(t, s.Name, got.Name)
	}
	assert.True(t, sort.StringsAreSorted(Names()))
	assert.Len(t, Names(), len(All()))
}

func TestAllReturnsCopy(t *testing.T) {
	all := All()
	all[0].Name = "mutated"
	assert.Equal(t, Concat, All()[0].Name)
}

func TestSignature(t *testing.T) {
	spec, _ := Lookup("substr")
	assert.Equal(t, "substr text start length", spec.Signature())
	assert.Equal(t, "bare", Spec{Name: "bare"}.Signature())
}

func TestSuggest(t *testing.T) {
	tests := []struct {
		word string
		want string
		ok   bool
	}{
		{"concatt", "concat", true},
		{"toLowr", "toLower", true},
		{"TOUPPER", "toUpper", true},
		{"lower", "toLower", true},
		{"zz", "", false},
		{"xyzzy", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			got, ok := Suggest(tt.word)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarkdown(t *testing.T) {
	doc := Markdown()
	assert.True(t, strings.HasPrefix(doc, "# Formula functions\n"))
	for _, heading := range []string{"## Text", "## Logic", "## Arithmetic", "## Control"} {
		assert.Contains(t, doc, heading)
	}
	assert.Contains(t, doc, "| `substr text start length` | 3 | string |")
	assert.Contains(t, doc, "### forEach")
	assert.Less(t, strings.Index(doc, "## Text"), strings.Index(doc, "## Control"))
}
