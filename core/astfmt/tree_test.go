package astfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/formula/core/ast"
	"github.com/aledsdavies/formula/runtime/parser"
)

func TestFormatTree(t *testing.T) {
	root, err := parser.ParseString(`{{ if equals g "12" (toUpper name) "x" }}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	FormatTree(&buf, root, nil, false)

	want := strings.Join([]string{
		`if [3,38)`,
		`├─ equals [6,19)`,
		`│  ├─ g [13,14)`,
		`│  └─ "12" [15,19)`,
		`├─ toUpper [21,33)`,
		`│  └─ name [29,33)`,
		`└─ "x" [35,38)`,
		``,
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestFormatTreeAnnotations(t *testing.T) {
	root, err := parser.ParseString(`{{ toUpper name }}`)
	require.NoError(t, err)

	var buf bytes.Buffer
	FormatTree(&buf, root, func(n ast.Node) string {
		if _, ok := n.(*ast.Identifier); ok {
			return "= amy"
		}
		return ""
	}, false)
	assert.Contains(t, buf.String(), "└─ name [11,15)  = amy")
}

func TestFormatTreeColor(t *testing.T) {
	root, err := parser.ParseString(`{{ toUpper name }}`)
	require.NoError(t, err)

	var plain, colored bytes.Buffer
	FormatTree(&plain, root, nil, false)
	FormatTree(&colored, root, nil, true)

	assert.NotContains(t, plain.String(), "\033[")
	assert.Contains(t, colored.String(), ColorBlue+"toUpper"+ColorReset)

	var empty bytes.Buffer
	FormatTree(&empty, nil, nil, false)
	assert.Equal(t, "(empty)\n", empty.String())
}
