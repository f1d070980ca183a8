package eval

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	ferrors "github.com/aledsdavies/formula/core/errors"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path string
		want []step
	}{
		{"name", []step{{key: "name"}}},
		{"a.b.c", []step{{key: "a"}, {key: "b"}, {key: "c"}}},
		{"schools[0].name", []step{{key: "schools"}, {index: 0, isIndex: true}, {key: "name"}}},
		{"grid[1][2]", []step{{key: "grid"}, {index: 1, isIndex: true}, {index: 2, isIndex: true}}},
		{"[3]", []step{{index: 3, isIndex: true}}},
	}
	for _, tt := range tests {
		got, err := splitPath(tt.path)
		if err != nil {
			t.Fatalf("splitPath(%q): %v", tt.path, err)
		}
		if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(step{})); diff != "" {
			t.Errorf("splitPath(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}

	for _, bad := range []string{"", "a..b", "a[", "a[x]", "a[-1]", "a]b", "a[0]x"} {
		if _, err := splitPath(bad); err == nil {
			t.Errorf("splitPath(%q) should fail", bad)
		}
	}
}

func TestResolvePath(t *testing.T) {
	root := map[string]any{
		"student": map[string]any{
			"name":    "Amy",
			"nick":    nil,
			"schools": []any{map[string]any{"name": "North"}},
		},
		"true": "shadowed",
	}

	tests := []struct {
		path string
		env  *Env
		want any
	}{
		{"student.name", nil, "Amy"},
		{"student.nick", nil, ""},
		{"student.schools[0].name", nil, "North"},
		{"true", nil, true},
		{"false", nil, false},
		{"null", nil, nil},
		{"s.name", (*Env)(nil).Extend("s", map[string]any{"name": "Bound"}), "Bound"},
		{"student.name", (*Env)(nil).Extend("student", map[string]any{"name": "Inner"}), "Inner"},
	}
	for _, tt := range tests {
		got, err := ResolvePath(tt.path, root, tt.env)
		if err != nil {
			t.Fatalf("ResolvePath(%q): %v", tt.path, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ResolvePath(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestResolvePathErrors(t *testing.T) {
	root := map[string]any{
		"student": map[string]any{"name": "Amy", "age": float64(12)},
		"list":    []any{"a"},
	}

	tests := []struct {
		path string
		want ferrors.FieldResolutionError
	}{
		{"student.grade", ferrors.FieldResolutionError{Path: "student.grade", Available: []string{"age", "name"}}},
		{"school", ferrors.FieldResolutionError{Path: "school", Available: []string{"list", "student"}}},
		{"list[1]", ferrors.FieldResolutionError{Path: "list", IsIndex: true, Index: 1, Length: 1}},
		{"student.name.first", ferrors.FieldResolutionError{Path: "student.name.first", Reason: `"student.name" is text, not a record`}},
		{"student[0]", ferrors.FieldResolutionError{Path: "student", IsIndex: true, Index: 0, Reason: `"student" is a record, not a list`}},
	}
	for _, tt := range tests {
		_, err := ResolvePath(tt.path, root, nil)
		var fre *ferrors.FieldResolutionError
		if !errors.As(err, &fre) {
			t.Fatalf("ResolvePath(%q) error = %v, want FieldResolutionError", tt.path, err)
		}
		if diff := cmp.Diff(tt.want, *fre); diff != "" {
			t.Errorf("ResolvePath(%q) mismatch (-want +got):\n%s", tt.path, diff)
		}
	}
}

func TestEnvIsPersistent(t *testing.T) {
	var empty *Env
	outer := empty.Extend("x", 1)
	inner := outer.Extend("x", 2).Extend("y", 3)

	v, ok := inner.Lookup("x")
	if !ok || v != 2 {
		t.Errorf("inner x = %v, %v; want 2", v, ok)
	}
	v, ok = outer.Lookup("x")
	if !ok || v != 1 {
		t.Errorf("outer x = %v, %v; want 1 (extending must not change the parent)", v, ok)
	}
	if _, ok := outer.Lookup("y"); ok {
		t.Error("y leaked into the outer frame")
	}
	if _, ok := empty.Lookup("x"); ok {
		t.Error("empty environment has bindings")
	}
	if diff := cmp.Diff([]string{"y", "x"}, inner.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if inner.Depth() != 3 || empty.Depth() != 0 {
		t.Errorf("depths = %d, %d", inner.Depth(), empty.Depth())
	}
}
