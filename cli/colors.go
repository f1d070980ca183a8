package main

import (
	"io"
	"os"

	"github.com/aledsdavies/formula/core/astfmt"
)

// Output roles and the color each is drawn in
const (
	roleError   = astfmt.ColorRed
	roleHint    = astfmt.ColorYellow
	roleHeading = astfmt.ColorBlue
	roleValue   = astfmt.ColorGreen
	roleTrace   = astfmt.ColorYellow
	roleMarker  = astfmt.ColorCyan
	roleMuted   = astfmt.ColorGray
)

// paint colors text for its role when color is on
func paint(text, role string, on bool) string {
	return astfmt.Colorize(text, role, on)
}

// ShouldUseColor reports whether output to w should be colored. The
// --no-color flag, NO_COLOR and TERM=dumb all turn color off, as does
// any writer that is not a terminal.
func ShouldUseColor(noColorFlag bool, w io.Writer) bool {
	if noColorFlag || os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
