package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"  ___     _                 ", "#818cf8"},
	{" | __|__ | |_  ___  ___  ___", "#a78bfa"},
	{" | _|/ _|| ' \\/ _ \\/ -_)(_-<", "#c084fc"},
	{" |___\\__||_||_\\___/\\___|/__/", "#e879f9"},
}

// PrintBanner writes the colored ASCII banner and the version to w.
// Colors degrade to the terminal's profile; pipes get plain text.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" v"+version).Faint())
	fmt.Fprintln(w)
}
