package contextdata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFormats(t *testing.T) {
	want := map[string]any{
		"name":    map[string]any{"first": "Amy", "middle": nil},
		"grade":   float64(12),
		"active":  true,
		"courses": []any{"Nav", "Tac"},
	}

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "json by extension",
			file:    "ctx.json",
			content: `{"name": {"first": "Amy", "middle": null}, "grade": 12, "active": true, "courses": ["Nav", "Tac"]}`,
		},
		{
			name:    "yaml by extension",
			file:    "ctx.yaml",
			content: "name:\n  first: Amy\n  middle: null\ngrade: 12\nactive: true\ncourses: [Nav, Tac]\n",
		},
		{
			name:    "json sniffed without extension",
			file:    "ctx",
			content: ` {"name": {"first": "Amy", "middle": null}, "grade": 12.0, "active": true, "courses": ["Nav", "Tac"]}`,
		},
		{
			name:    "yaml sniffed without extension",
			file:    "ctx.txt",
			content: "name: {first: Amy, middle: ~}\ngrade: 12\nactive: yes_not_a_bool\ncourses:\n  - Nav\n  - Tac\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			expected := want
			if tt.name == "yaml sniffed without extension" {
				expected = copyWith(want, "active", "yes_not_a_bool")
			}
			if diff := cmp.Diff(expected, got); diff != "" {
				t.Errorf("context mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func copyWith(m map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

func TestLoadStdinAndEmpty(t *testing.T) {
	got, err := Load("-", WithStdin(strings.NewReader(`{"x": "from stdin"}`)))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": "from stdin"}, got)

	got, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, got)
}

func TestLoadForcedFormat(t *testing.T) {
	path := writeFile(t, "data.json", "a: 1\n")
	_, err := Load(path)
	assert.Error(t, err, "YAML in a .json file should fail as JSON")

	got, err := Load(path, WithFormat(FormatYAML))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "big.json", `{"a": "0123456789"}`), WithMaxBytes(8))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = Load(writeFile(t, "bad.json", `{"a": `))
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestNormalize(t *testing.T) {
	got, err := Decode([]byte("dob: 2008-03-02\nseen: 2023-01-01T10:30:00Z\n1: one\ncount: 3\nratio: 0.5\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"dob":   "2008-03-02",
		"seen":  "2023-01-01T10:30:00Z",
		"1":     "one",
		"count": float64(3),
		"ratio": 0.5,
	}, got)

	_, err = Normalize(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "auto": FormatAuto, "JSON": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("toml")
	assert.Error(t, err)
}

const studentSchema = `
type: object
required: [student]
properties:
  student:
    type: object
    required: [name, grade]
    properties:
      name: {type: string}
      grade: {type: number, minimum: 1, maximum: 12}
`

func TestSchemaValidation(t *testing.T) {
	schema, err := LoadSchema(writeFile(t, "schema.yaml", studentSchema))
	require.NoError(t, err)

	good := writeFile(t, "good.json", `{"student": {"name": "Amy", "grade": 12}}`)
	_, err = Load(good, WithSchema(schema))
	require.NoError(t, err)

	bad := writeFile(t, "bad.json", `{"student": {"name": 7, "grade": 13}}`)
	_, err = Load(bad, WithSchema(schema))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)

	var locations []string
	for _, v := range ve.Violations {
		locations = append(locations, v.Location)
	}
	assert.ElementsMatch(t, []string{"/student/name", "/student/grade"}, locations)
	assert.Contains(t, err.Error(), "context does not match schema")
}

func TestSchemaRefusesRemoteRef(t *testing.T) {
	_, err := CompileSchema([]byte(`{"$ref": "https://example.com/schema.json"}`), FormatJSON)
	assert.Error(t, err)
}
