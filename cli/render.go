// ABOUTME: Terminal rendering for trace entries and result values
// ABOUTME: Uses lipgloss styles on a terminal and plain text otherwise
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iTRMAutomation/mlc-village-recon-tool/submit"
	"golang.org/x/term"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(14)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))
)

type renderer struct {
	w      io.Writer
	styled bool
}

// newRenderer styles output only when w is a terminal.
func newRenderer(w io.Writer) *renderer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &renderer{w: w, styled: styled}
}

func (r *renderer) style(s lipgloss.Style, text string) string {
	if !r.styled {
		return text
	}
	return s.Render(text)
}

// entry prints one trace entry.
func (r *renderer) entry(e submit.Entry) {
	line := e.String()
	switch e.Level {
	case submit.LevelWarn:
		line = r.style(warnStyle, line)
	case submit.LevelError:
		line = r.style(errorStyle, line)
	default:
		line = r.style(infoStyle, line)
	}
	fmt.Fprintln(r.w, line)
}

func (r *renderer) heading(text string) {
	fmt.Fprintln(r.w, r.style(headingStyle, text))
}

func (r *renderer) field(label string, value any) {
	if r.styled {
		fmt.Fprintf(r.w, "%s %v\n", labelStyle.Render(label+":"), value)
		return
	}
	fmt.Fprintf(r.w, "%s: %v\n", label, value)
}

func (r *renderer) status(ok bool, text string) {
	if ok {
		fmt.Fprintln(r.w, r.style(okStyle, "✓ "+text))
		return
	}
	fmt.Fprintln(r.w, r.style(errorStyle, "✗ "+text))
}

func (r *renderer) result(res *submit.Result) {
	r.heading("Report submitted")
	r.field("Submission", res.SubmissionID)
	r.field("Item", res.ItemID)
	if res.WebURL != "" {
		r.field("Link", res.WebURL)
	}
	for i, p := range res.Photos {
		r.field(fmt.Sprintf("Photo %d", i+1), p.URL)
	}
	if len(res.Warnings) > 0 {
		r.field("Warnings", len(res.Warnings))
	}
}
