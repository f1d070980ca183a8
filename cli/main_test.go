package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/formula/core/astfmt"
	ferrors "github.com/aledsdavies/formula/core/errors"
	"github.com/aledsdavies/formula/core/types"
)

const studentJSON = `{"name": {"first": "Amy", "last": "Berg"}, "grade": 12, "courses": ["Nav", "Tac"]}`

// execute runs the CLI in-process and returns what it printed
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	var out, errOut bytes.Buffer
	a := &app{stdin: strings.NewReader(stdin), stdout: &out, stderr: &errOut}

	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.ExecuteContext(context.Background())
	if err != nil {
		FormatError(&errOut, err, false)
	}
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEval(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ctx := writeFile(t, "student.json", studentJSON)

	out, _, err := execute(t, "", "eval", "-c", ctx, `{{ concat toLower name.first "@school.edu" }}`)
	require.NoError(t, err)
	assert.Equal(t, "amy@school.edu\n", out)

	out, _, err = execute(t, "", "eval", "-c", ctx, `{{ forEach "c" courses concat c ";" }}`)
	require.NoError(t, err)
	assert.Equal(t, "Nav;Tac;\n", out)
}

func TestEvalTrace(t *testing.T) {
	ctx := writeFile(t, "student.yaml", "grade: 12\n")

	out, _, err := execute(t, "", "eval", "--trace", "-c", ctx, `{{ if equals grade "12" "Senior" "Other" }}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Senior\n"), out)
	assert.Contains(t, out, `"Senior" [24,32)  = "Senior"`)
	assert.Contains(t, out, `"Other" [33,40)  (skipped)`)
}

func TestEvalFormulaFromStdinAndFile(t *testing.T) {
	out, _, err := execute(t, `{{ toUpper "piped" }}`, "eval", "-f", "-")
	require.NoError(t, err)
	assert.Equal(t, "PIPED\n", out)

	path := writeFile(t, "greeting.formula", "{{\n  concat \"hi \" name.first\n}}\n")
	ctx := writeFile(t, "student.json", studentJSON)
	out, _, err = execute(t, "", "eval", "-f", path, "-c", ctx)
	require.NoError(t, err)
	assert.Equal(t, "hi Amy\n", out)

	_, _, err = execute(t, "", "eval", "-f", "-", "-c", "-")
	assert.Error(t, err)
}

func TestEvalSchema(t *testing.T) {
	schema := writeFile(t, "schema.json", `{"type": "object", "required": ["grade"]}`)
	ctx := writeFile(t, "student.json", `{"name": "Amy"}`)

	_, stderr, err := execute(t, "", "eval", "-c", ctx, "--schema", schema, `{{ name }}`)
	require.Error(t, err)
	assert.Contains(t, stderr, "context does not match schema")
}

func TestParseErrorOutput(t *testing.T) {
	_, stderr, err := execute(t, "", "ast", `{{ concatt a b }}`)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.KindSyntax))
	assert.Contains(t, stderr, "Unknown function")
	assert.Contains(t, stderr, " 1 | {{ concatt a b }}")
	assert.Contains(t, stderr, "^")
	assert.Contains(t, stderr, "Did you mean 'concat'?")
}

func TestFieldErrorOutput(t *testing.T) {
	ctx := writeFile(t, "student.json", studentJSON)
	_, stderr, err := execute(t, "", "eval", "-c", ctx, `{{ concat "x" name.frist }}`)
	require.Error(t, err)
	assert.True(t, ferrors.Is(err, ferrors.KindFieldResolution))
	assert.Contains(t, stderr, "Field not found")
	assert.Contains(t, stderr, `Did you mean "first"?`)
	assert.Contains(t, stderr, "--> 1:15")
}

func TestNoFormula(t *testing.T) {
	var out, errOut bytes.Buffer
	a := &app{stdin: nil, stdout: &out, stderr: &errOut}
	cmd := newRootCmd(a)
	cmd.SetArgs([]string{"ast"})
	cmd.SetOut(&out)
	err := cmd.ExecuteContext(context.Background())

	var ce *CLIError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "no formula given", ce.Message)
}

func TestTokensAndAST(t *testing.T) {
	out, _, err := execute(t, "", "tokens", `{{ toUpper "x" }}`)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "WRAPPER_OPEN")
	assert.Contains(t, lines[2], `"x"`)
	assert.Contains(t, lines[4], "EOF")

	out, _, err = execute(t, "", "ast", "--canonical", `{{ concat   (toLower a)  "b" }}`)
	require.NoError(t, err)
	assert.Equal(t, "{{ concat toLower a \"b\" }}\n", out)

	out, stderr, err := execute(t, "", "ast", "--telemetry", `{{ toLower a }}`)
	require.NoError(t, err)
	assert.Contains(t, out, "toLower [3,12)")
	assert.Contains(t, stderr, "tokens: 5  nodes: 2")
}

func TestPathsAndSegments(t *testing.T) {
	src := `{{ if equals grade "12" "Senior" if equals grade "11" "Junior" "Other" }}`

	out, _, err := execute(t, "", "paths", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Path 3")
	assert.Contains(t, out, "when  Catch All")
	assert.Contains(t, out, `then  "Junior"`)

	_, stderr, err := execute(t, "", "paths", "--max", "2", src)
	require.Error(t, err)
	assert.Contains(t, stderr, "too many scenario paths")

	out, _, err = execute(t, "", "segments", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Segment 1 (table) on grade")
	assert.Contains(t, out, `"11"`)
	assert.Contains(t, out, "Catch All")
}

func TestFunctionsAndDocs(t *testing.T) {
	out, _, err := execute(t, "", "functions")
	require.NoError(t, err)
	assert.Contains(t, out, "concat left right")
	assert.Contains(t, out, "forEach variable list body")

	out, _, err = execute(t, "", "functions", "--markdown")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Formula functions"))

	out, _, err = execute(t, "", "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Formula functions</h1>")
	assert.Contains(t, out, "<table>")

	page := filepath.Join(t.TempDir(), "functions.html")
	_, _, err = execute(t, "", "docs", "-o", page)
	require.NoError(t, err)
	data, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<!DOCTYPE html>")
}

func TestCompileThenEval(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "email"+compiledExt)

	digest, _, err := execute(t, "", "compile", "-o", bin, `{{ concat (toLower name.first) "@school.edu" }}`)
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(digest), 64)

	again, _, err := execute(t, "", "compile", `{{ concat toLower name.first "@school.edu" }}`)
	require.NoError(t, err)
	assert.Equal(t, digest, again, "grouping does not change the digest")

	ctx := writeFile(t, "student.json", studentJSON)
	out, _, err := execute(t, "", "eval", "-f", bin, "-c", ctx)
	require.NoError(t, err)
	assert.Equal(t, "amy@school.edu\n", out)
}

func TestLibraryCommands(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "library.db")
	ctx := writeFile(t, "student.json", studentJSON)

	out, _, err := execute(t, "", "--library", lib, "lib", "save", "email", `{{ concat toLower name.first "@school.edu" }}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "saved email "), out)

	out, _, err = execute(t, "", "--library", lib, "lib", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "email")
	assert.Contains(t, out, `{{ concat toLower name.first "@school.edu" }}`)

	out, _, err = execute(t, "", "--library", lib, "-l", "email", "-c", ctx, "eval")
	require.NoError(t, err)
	assert.Equal(t, "amy@school.edu\n", out)

	// The stored tree is used as is, so there is no parse to report on
	out, stderr, err := execute(t, "", "--library", lib, "-l", "email", "ast", "--telemetry")
	require.NoError(t, err)
	assert.Contains(t, out, "concat [3,")
	assert.NotContains(t, stderr, "tokens:")

	out, _, err = execute(t, "", "--library", lib, "lib", "show", "email")
	require.NoError(t, err)
	assert.Equal(t, "{{ concat toLower name.first \"@school.edu\" }}\n", out)

	_, stderr, err = execute(t, "", "--library", lib, "lib", "save", "broken", `{{ concat "a" }}`)
	require.Error(t, err)
	assert.Contains(t, stderr, "concat needs more values")

	_, _, err = execute(t, "", "--library", lib, "lib", "rm", "email")
	require.NoError(t, err)

	_, stderr, err = execute(t, "", "--library", lib, "lib", "show", "email")
	require.Error(t, err)
	assert.Contains(t, stderr, "formula lib list")
}

func TestWatchRender(t *testing.T) {
	formulaPath := writeFile(t, "name.formula", `{{ toUpper name }}`)
	ctxPath := writeFile(t, "ctx.json", `{"name": "amy"}`)

	var out, errOut bytes.Buffer
	a := &app{stdout: &out, stderr: &errOut, file: formulaPath, contextPath: ctxPath}
	a.configure()

	w := &watcher{app: a, out: &out, errOut: &errOut}
	w.render()
	w.render() // unchanged
	assert.Equal(t, "AMY\n", out.String())

	// Same canonical formula, different spacing
	require.NoError(t, os.WriteFile(formulaPath, []byte(`{{toUpper (name)}}`), 0o600))
	w.render()
	assert.Equal(t, "AMY\n", out.String())

	require.NoError(t, os.WriteFile(ctxPath, []byte(`{"name": "bo"}`), 0o600))
	w.render()
	assert.Equal(t, "AMY\nBO\n", out.String())

	require.NoError(t, os.WriteFile(formulaPath, []byte(`{{ toUpper }}`), 0o600))
	w.render()
	assert.Contains(t, errOut.String(), "toUpper needs more values")
}

func TestWatchStopsWithContext(t *testing.T) {
	formulaPath := writeFile(t, "name.formula", `{{ "static" }}`)

	var out, errOut bytes.Buffer
	a := &app{stdout: &out, stderr: &errOut, file: formulaPath}
	a.configure()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.watch(ctx, &out, &errOut))
	assert.Equal(t, "static\n", out.String())
}

func TestPositionAt(t *testing.T) {
	src := "{{\n  concat a é b\n}}"
	assert.Equal(t, types.Position{Line: 1, Column: 1, Offset: 0}, positionAt(src, 0))
	assert.Equal(t, types.Position{Line: 2, Column: 3, Offset: 5}, positionAt(src, 5))
	assert.Equal(t, types.Position{Line: 2, Column: 15, Offset: 18}, positionAt(src, 18))
	assert.Equal(t, 3, positionAt(src, 1000).Line)
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, `{{ concat a "b" }}`, oneLine("{{\n  concat a\t\"b\"\n}}\n"))
}

func TestShouldUseColor(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	t.Setenv("TERM", "xterm")
	assert.False(t, ShouldUseColor(true, os.Stdout))
	assert.False(t, ShouldUseColor(false, &bytes.Buffer{}), "buffers are never terminals")

	t.Setenv("TERM", "dumb")
	assert.False(t, ShouldUseColor(false, os.Stdout))
	t.Setenv("TERM", "xterm")
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColor(false, os.Stdout))
}

func TestPaint(t *testing.T) {
	assert.Equal(t, "plain", paint("plain", roleError, false))
	assert.Equal(t, roleError+"bad"+astfmt.ColorReset, paint("bad", roleError, true))
}
