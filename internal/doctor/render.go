package doctor

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// TextOptions controls WriteText.
type TextOptions struct {
	Title string
	Color bool
}

type palette struct {
	pass, fail, header, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		pass:   color.New(color.FgGreen, color.Bold),
		fail:   color.New(color.FgRed, color.Bold),
		header: color.New(color.FgBlue, color.Bold),
		dim:    color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{p.pass, p.fail, p.header, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// WriteText renders the report for a terminal. Each check gets one line
// starting with a PASS or FAIL marker so scripts can grep for them.
func WriteText(w io.Writer, r *Report, opts TextOptions) error {
	p := newPalette(opts.Color)
	b := &strings.Builder{}

	if opts.Title != "" {
		writeHeader(b, p, opts.Title)
	}

	width := 0
	for _, c := range r.Results {
		width = max(width, len(c.Name))
	}

	section := "\x00"
	for _, c := range r.Results {
		if c.Section != section {
			section = c.Section
			if section != "" {
				fmt.Fprintf(b, "\n%s\n", p.header.Sprint(section))
			}
		}
		marker := p.pass.Sprint("PASS")
		if !c.Passed {
			marker = p.fail.Sprint("FAIL")
		}
		fmt.Fprintf(b, "  %s  %-*s  %s\n", marker, width, c.Name, c.Detail)
		if !c.Passed && c.Remediation != "" {
			indent := strings.Repeat(" ", width+10)
			for _, line := range strings.Split(c.Remediation, "\n") {
				fmt.Fprintf(b, "%s%s\n", indent, p.dim.Sprint("-> "+line))
			}
		}
	}

	fmt.Fprintf(b, "\n%s\n", p.header.Sprint("Summary"))
	fmt.Fprintf(b, "  %s\n", r.Summary())

	if r.Passed() {
		fmt.Fprintf(b, "\n%s\n", p.pass.Sprint("All checks passed. GitHub MCP integration is working."))
	} else {
		fmt.Fprintf(b, "\n%s\n", p.fail.Sprint("Some checks failed."))
		if hints := Troubleshooting(r); len(hints) > 0 {
			fmt.Fprintf(b, "\n%s\n", p.header.Sprint("Troubleshooting"))
			for _, h := range hints {
				fmt.Fprintf(b, "  - %s\n", h)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(b *strings.Builder, p palette, title string) {
	rule := strings.Repeat("=", max(len(title), 40))
	fmt.Fprintf(b, "%s\n%s\n%s\n", p.header.Sprint(rule), p.header.Sprint(title), p.header.Sprint(rule))
}
