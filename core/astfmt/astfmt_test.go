package astfmt

import (
	"errors"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/runtime/parser"
)

var ignoreSpans = cmp.Options{
	cmpopts.IgnoreFields(ast.StringLiteral{}, "Span"),
	cmpopts.IgnoreFields(ast.NumberLiteral{}, "Span"),
	cmpopts.IgnoreFields(ast.Identifier{}, "Span"),
	cmpopts.IgnoreFields(ast.CallExpression{}, "Span"),
}

func TestFormat(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{`{{name.first}}`, `{{ name.first }}`},
		{`{{  concat   (toLower name.first)   "@school.edu" }}`, `{{ concat toLower name.first "@school.edu" }}`},
		{`{{ "say \"hi\"" }}`, `{{ "say \"hi\"" }}`},
		{`{{ "C:\\dir" }}`, `{{ "C:\\dir" }}`},
		{`{{ 007 }}`, `{{ 007 }}`},
		{`{{ substr s -1 2.50 }}`, `{{ substr s -1 2.50 }}`},
		{"{{\n  if equals grade \"12\"\n    \"Senior\"\n    \"Other\"\n}}", `{{ if equals grade "12" "Senior" "Other" }}`},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := parser.ParseString(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(node))
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, src := range []string{
		`{{ concat toLower name.first "@school.edu" }}`,
		`{{ if equals g "12" "Senior" if equals g "11" "Junior" "Other" }}`,
		`{{ forEach "c" courses concat c ", " }}`,
		`{{ ignoreIfNull student.schools[0].name }}`,
		`{{ "back\\slash \"quoted\" \n" }}`,
		`{{ replace (textAfterLast path "/") "." "_" }}`,
	} {
		t.Run(src, func(t *testing.T) {
			first, err := parser.ParseString(src)
			require.NoError(t, err)
			second, err := parser.ParseString(Format(first))
			require.NoError(t, err)
			if diff := cmp.Diff(first, second, ignoreSpans); diff != "" {
				t.Errorf("round trip mismatch (-first +second):\n%s", diff)
			}
			assert.Equal(t, Format(first), Format(second))
		})
	}
}

func TestDigest(t *testing.T) {
	a, err := parser.ParseString(`{{ concat (a) "b" }}`)
	require.NoError(t, err)
	b, err := parser.ParseString("{{concat a\n\"b\"}}")
	require.NoError(t, err)
	c, err := parser.ParseString(`{{ concat a "c" }}`)
	require.NoError(t, err)

	assert.Equal(t, Digest(a), Digest(b), "spacing and grouping must not change the digest")
	assert.NotEqual(t, Digest(a), Digest(c))
	assert.Len(t, DigestHex(a), 64)
	assert.Equal(t, strings.ToLower(DigestHex(a)), DigestHex(a))
}

func TestMarshalRoundTrip(t *testing.T) {
	root, err := parser.ParseString(`{{ if greater age 17 concat "adult " name "minor" }}`)
	require.NoError(t, err)

	data, err := Marshal(root)
	require.NoError(t, err)

	again, err := Marshal(root)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")

	decoded, err := Unmarshal(data)
	require.NoError(t, err)
	if diff := cmp.Diff(root, decoded); diff != "" {
		t.Errorf("decoded tree mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalRejectsMarkers(t *testing.T) {
	_, err := Marshal(ast.NewDefault(ast.CatchAll))
	assert.ErrorIs(t, err, ErrInvalidEncoding)

	_, err = Marshal(nil)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestUnmarshalValidates(t *testing.T) {
	encode := func(t *testing.T, wf wireFormula) []byte {
		t.Helper()
		data, err := cbor.Marshal(wf)
		require.NoError(t, err)
		return data
	}
	str := wireNode{Type: string(ast.StringLiteralType), Text: "x"}

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte{0xff, 0x00, 0x13}},
		{"wrong version", encode(t, wireFormula{Version: 9, Root: str})},
		{"unknown type", encode(t, wireFormula{Version: Version, Root: wireNode{Type: "Lambda"}})},
		{"unknown function", encode(t, wireFormula{Version: Version, Root: wireNode{
			Type: string(ast.CallExpressionType), Text: "concatt", Args: []wireNode{str, str},
		}})},
		{"wrong arity", encode(t, wireFormula{Version: Version, Root: wireNode{
			Type: string(ast.CallExpressionType), Text: "concat", Args: []wireNode{str},
		}})},
		{"empty identifier", encode(t, wireFormula{Version: Version, Root: wireNode{Type: string(ast.IdentifierType)}})},
		{"bad range", encode(t, wireFormula{Version: Version, Root: wireNode{
			Type: string(ast.StringLiteralType), Start: 5, End: 2,
		}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Unmarshal(tt.data)
			assert.Nil(t, node)
			assert.True(t, errors.Is(err, ErrInvalidEncoding), "got %v", err)
		})
	}
}

// FuzzFormatRoundTrip checks that any accepted formula reparses from its
// canonical text to the same tree and survives the binary codec.
func FuzzFormatRoundTrip(f *testing.F) {
	for _, seed := range []string{
		`{{ concat toLower name.first "@school.edu" }}`,
		`{{ if a (if b "AB" "A") "none" }}`,
		`{{ "\\\"" }}`,
		`{{ forEach x xs concat x "," }}`,
		`{{ -0.5 }}`,
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		first, err := parser.ParseString(input)
		if err != nil {
			return
		}
		second, err := parser.ParseString(Format(first))
		if err != nil {
			t.Fatalf("canonical text of %q does not parse: %v", input, err)
		}
		if diff := cmp.Diff(first, second, ignoreSpans); diff != "" {
			t.Fatalf("round trip mismatch for %q (-first +second):\n%s", input, diff)
		}

		data, err := Marshal(first)
		if errors.Is(err, ErrInvalidEncoding) {
			return // nested deeper than MaxDepth
		}
		if err != nil {
			t.Fatalf("marshal %q: %v", input, err)
		}
		decoded, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("unmarshal %q: %v", input, err)
		}
		if Digest(decoded) != Digest(first) {
			t.Fatalf("digest changed through the codec for %q", input)
		}
	})
}
