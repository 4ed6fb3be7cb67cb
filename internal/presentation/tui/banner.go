package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the anchorsync banner and version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`   __ _ _ __   ___| |__   ___  _ __ ___ _   _ _ __   ___ `, "#22d3ee"},
		{`  / _' | '_ \ / __| '_ \ / _ \| '__/ __| | | | '_ \ / __|`, "#38bdf8"},
		{` | (_| | | | | (__| | | | (_) | |  \__ \ |_| | | | | (__ `, "#60a5fa"},
		{`  \__,_|_| |_|\___|_| |_|\___/|_|  |___/\__, |_| |_|\___|`, "#818cf8"},
		{`                                        |___/  v` + version, "#a78bfa"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
