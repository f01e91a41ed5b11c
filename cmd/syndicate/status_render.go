package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"syndicate/internal/config"
	"syndicate/internal/preflight"
)

const (
	codeReset  = "\x1b[0m"
	codeRed    = "\x1b[31m"
	codeGreen  = "\x1b[32m"
	codeYellow = "\x1b[33m"
	codeCyan   = "\x1b[36m"
)

const statusLabelWidth = 22

// palette applies ANSI colors when the destination is a terminal.
type palette struct {
	enabled bool
}

func newPalette(w io.Writer) palette {
	file, ok := w.(*os.File)
	if !ok {
		return palette{}
	}
	fd := file.Fd()
	return palette{enabled: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)}
}

func (p palette) paint(code, s string) string {
	if !p.enabled || code == "" {
		return s
	}
	return code + s + codeReset
}

func printSection(w io.Writer, p palette, title string) {
	header := "== " + strings.TrimSpace(title) + " =="
	fmt.Fprintln(w, p.paint(codeCyan, header))
	fmt.Fprintln(w, p.paint(codeCyan, strings.Repeat("-", len(header))))
}

// printCheck renders one preflight result line.
func printCheck(w io.Writer, p palette, result preflight.Result) {
	verdict := p.paint(codeGreen, "ok")
	if !result.Passed {
		verdict = p.paint(codeRed, "FAILED")
	}
	fmt.Fprintf(w, "  %-*s %s  %s\n", statusLabelWidth, result.Name, verdict, result.Detail)
}

func printPartner(w io.Writer, p palette, partner config.Partner) {
	if partner.Entitled {
		fmt.Fprintf(w, "  %-*s %s  delivers to %s\n", statusLabelWidth, partner.Name, p.paint(codeGreen, "entitled"), partner.OutputBucket)
		return
	}
	fmt.Fprintf(w, "  %-*s %s\n", statusLabelWidth, partner.Name, p.paint(codeYellow, "not entitled"))
}

// printCount renders one execution-count line; attention paints nonzero
// counts red so failed executions stand out.
func printCount(w io.Writer, p palette, label string, count int, attention bool) {
	value := fmt.Sprintf("%d", count)
	if attention && count > 0 {
		value = p.paint(codeRed, value)
	}
	fmt.Fprintf(w, "  %-*s %s\n", statusLabelWidth, label, value)
}
