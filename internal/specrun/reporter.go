package specrun

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Reporter prints spec results as they arrive, jasmine console style.
type Reporter struct {
	w io.Writer

	pass    lipgloss.Style
	fail    lipgloss.Style
	skip    lipgloss.Style
	dim     lipgloss.Style
	heading lipgloss.Style
}

// NewReporter writes to w. Colors are used only when w is a terminal.
func NewReporter(w io.Writer) *Reporter {
	re := lipgloss.NewRenderer(w)
	return &Reporter{
		w:       w,
		pass:    re.NewStyle().Foreground(lipgloss.Color("#3FB950")),
		fail:    re.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
		skip:    re.NewStyle().Foreground(lipgloss.Color("#D29922")),
		dim:     re.NewStyle().Foreground(lipgloss.Color("#8B949E")),
		heading: re.NewStyle().Bold(true),
	}
}

// SuiteDone prints one file's results.
func (r *Reporter) SuiteDone(s SuiteResult) {
	fmt.Fprintln(r.w, r.heading.Render(s.File))
	if s.LoadError != nil {
		fmt.Fprintf(r.w, "  %s %s\n", r.fail.Render("✗"), r.fail.Render(s.LoadError.Message))
		r.stack(s.LoadError.Stack)
		return
	}
	for _, sp := range s.Specs {
		switch sp.Status {
		case StatusPassed:
			fmt.Fprintf(r.w, "  %s %s\n", r.pass.Render("✓"), sp.FullName)
		case StatusSkipped:
			fmt.Fprintf(r.w, "  %s %s\n", r.skip.Render("-"), r.skip.Render(sp.FullName+" (skipped)"))
		case StatusFailed:
			fmt.Fprintf(r.w, "  %s %s\n", r.fail.Render("✗"), r.fail.Render(sp.FullName))
			for _, f := range sp.Failures {
				fmt.Fprintf(r.w, "      %s\n", f.Message)
				r.stack(f.Stack)
			}
		}
	}
}

func (r *Reporter) stack(stack string) {
	if stack == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(stack, "\n"), "\n") {
		fmt.Fprintf(r.w, "        %s\n", r.dim.Render(strings.TrimSpace(line)))
	}
}

// Summary prints the totals line.
func (r *Reporter) Summary(res *Result) {
	c := res.Counts()
	line := fmt.Sprintf("%d specs, %d failures", c.Specs, c.Failed)
	if c.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", c.Skipped)
	}
	if c.BrokenSuites > 0 {
		line += fmt.Sprintf(", %d files failed to load", c.BrokenSuites)
	}
	line += fmt.Sprintf(" (%s)", res.Duration.Round(time.Millisecond))

	style := r.pass
	if c.Failed > 0 || c.BrokenSuites > 0 {
		style = r.fail
	}
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, style.Render(line))
}
