// Package ui renders verification runs and reports for a terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/johnayoung/legal-consensus/internal/citation"
	"github.com/johnayoung/legal-consensus/internal/consensus"
	"github.com/johnayoung/legal-consensus/internal/output"
	"github.com/mattn/go-isatty"
)

// AuditNotice is printed after a record has been persisted.
const AuditNotice = "This verification session has been logged for compliance review."

// ResponsePreview is how many characters of each response are shown.
const ResponsePreview = 500

const ruleWidth = 80

// Palette.
var (
	ColorTitle   = lipgloss.Color("#5FAFD7")
	ColorSuccess = lipgloss.Color("#5FD75F")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#808080")
	ColorSource  = lipgloss.Color("#5F87D7")
)

// Styles are bound to one renderer so colors follow the output stream's
// capabilities; a non-terminal writer gets plain text.
type Styles struct {
	Title   lipgloss.Style
	Rule    lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Source  lipgloss.Style
	Running lipgloss.Style
}

// NewStyles builds the style set for r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(ColorTitle),
		Rule:    r.NewStyle().Foreground(ColorTitle),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(ColorMuted),
		Success: r.NewStyle().Foreground(ColorSuccess),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Error:   r.NewStyle().Foreground(ColorError),
		Source:  r.NewStyle().Bold(true).Foreground(ColorSource),
		Running: r.NewStyle().Foreground(ColorWarning),
	}
}

// Printer writes styled output to one stream.
type Printer struct {
	w io.Writer
	s Styles
}

// NewPrinter creates a printer for w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, s: NewStyles(lipgloss.NewRenderer(w))}
}

// Styles returns the printer's styles.
func (p *Printer) Styles() Styles { return p.s }

func (p *Printer) section(title string) {
	rule := p.s.Rule.Render(strings.Repeat("=", ruleWidth))
	fmt.Fprintf(p.w, "\n%s\n%s\n%s\n\n", rule, p.s.Title.Render(title), rule)
}

// PrintHeader prints the verification banner and the question.
func (p *Printer) PrintHeader(question string) {
	p.section("LEGAL RESEARCH VERIFICATION")
	fmt.Fprintf(p.w, "%s %s\n\n", p.s.Bold.Render("Query:"), question)
}

// PrintPhase prints a phase header.
func (p *Printer) PrintPhase(phase string) {
	fmt.Fprintln(p.w, p.s.Warning.Bold(true).Render("▸ "+phase))
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	fmt.Fprintln(p.w, p.s.Success.Render("✓ "+msg))
}

// PrintWarning prints a warning message.
func (p *Printer) PrintWarning(msg string) {
	fmt.Fprintln(p.w, p.s.Warning.Render("⚠ "+msg))
}

// PrintError prints an error message.
func (p *Printer) PrintError(msg string) {
	fmt.Fprintln(p.w, p.s.Error.Render("✗ "+msg))
}

// PrintReport prints the consensus analysis, every source's response and
// the discrepancy warnings.
func (p *Printer) PrintReport(res *output.Result) {
	rep := res.Consensus
	p.printConsensus(rep)
	p.printResponses(res.Results, rep)
	p.printDiscrepancies(rep)
}

func (p *Printer) printConsensus(rep *consensus.Report) {
	p.section("CONSENSUS ANALYSIS")

	fmt.Fprintf(p.w, "Models Analyzed: %d\n", rep.SucceededCount)
	fmt.Fprintf(p.w, "Consensus Level: %s\n", p.levelStyle(rep.Level).Render(rep.Level.Display()))

	if !rep.Shared.Empty() {
		fmt.Fprintf(p.w, "\n%s\n", p.s.Bold.Render("Shared Citations (High Confidence):"))
		for _, c := range rep.Shared.Items() {
			fmt.Fprintf(p.w, "  %s %s\n", p.s.Success.Render("✓"), c)
		}
	}

	if rep.SucceededCount > 1 && len(rep.Support) > 0 {
		fmt.Fprintf(p.w, "\n%s\n", p.s.Bold.Render("Citation Support:"))
		for _, sup := range rep.Support {
			fmt.Fprintf(p.w, "  %d of %d  %s\n", len(sup.Sources), rep.SucceededCount, sup.Citation)
		}
	}
}

func (p *Printer) levelStyle(l consensus.Level) lipgloss.Style {
	switch l {
	case consensus.LevelHigh:
		return p.s.Success.Bold(true)
	case consensus.LevelLow:
		return p.s.Warning.Bold(true)
	default:
		return p.s.Error.Bold(true)
	}
}

func (p *Printer) printResponses(results []consensus.SourceResult, rep *consensus.Report) {
	p.section("MODEL RESPONSES")

	// Succeeded results line up with rep.Sources in order.
	next := 0
	for _, r := range results {
		if !r.Succeeded {
			fmt.Fprintf(p.w, "\n%s\n%s\n", p.s.Source.Render("--- "+r.SourceID+" ---"), p.s.Error.Render(r.ResponseText))
			continue
		}
		var cites *citation.Set
		if next < len(rep.Sources) {
			cites = rep.BySource[rep.Sources[next]]
		}
		next++

		fmt.Fprintf(p.w, "\n%s\n", p.s.Source.Render("--- "+r.SourceID+" ---"))
		fmt.Fprintln(p.w, Preview(r.ResponseText, ResponsePreview))
		if !cites.Empty() {
			fmt.Fprintf(p.w, "\n%s %s\n", p.s.Bold.Render("Citations found:"), strings.Join(cites.Items(), ", "))
		}
	}
}

func (p *Printer) printDiscrepancies(rep *consensus.Report) {
	p.section("DISCREPANCY WARNINGS")

	switch rep.Outcome() {
	case consensus.OutcomeTotalFailure:
		p.PrintError("No source answered. Nothing could be verified.")
		fmt.Fprintln(p.w, "   → Check API keys and connectivity, then retry")
		return
	case consensus.OutcomeFullAgreement:
		p.PrintSuccess("All sources cited the same cases.")
		return
	}

	if rep.Shared.Empty() {
		p.PrintWarning("WARNING: No shared citations found across models")
		fmt.Fprintln(p.w, "   → Manual verification strongly recommended")
	}

	if d := rep.Discrepancies(); len(d) > 0 && rep.SucceededCount > 1 {
		fmt.Fprintln(p.w)
		p.PrintWarning("Models cited different cases:")
		for _, disc := range d {
			fmt.Fprintf(p.w, "   %s: %s\n", disc.SourceID, strings.Join(disc.Citations, ", "))
		}
		fmt.Fprintln(p.w, "\n   → Manual verification recommended for these citations")
	}
}

// PrintAudit prints the audit banner for a persisted record.
func (p *Printer) PrintAudit(res *output.Result) {
	p.section("AUDIT TRAIL SAVED")
	fmt.Fprintln(p.w, AuditNotice)
	fmt.Fprintf(p.w, "Timestamp: %s\n", res.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))

	names := make([]string, len(res.Results))
	for i, r := range res.Results {
		names[i] = r.SourceID
	}
	fmt.Fprintf(p.w, "Models queried: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(p.w, "Consensus level: %s\n", res.Consensus.Level.Display())
}

// PrintSummary prints a summary of the run.
func (p *Printer) PrintSummary(total, succeeded int, totalTime time.Duration) {
	fmt.Fprintf(p.w, "\n%s\n", p.s.Muted.Render("─── Summary ───"))
	fmt.Fprintf(p.w, "Sources queried: %d (%s, %s)\n",
		total,
		p.s.Success.Render(fmt.Sprintf("%d succeeded", succeeded)),
		p.s.Error.Render(fmt.Sprintf("%d failed", total-succeeded)))
	fmt.Fprintf(p.w, "Total time: %.1fs\n", totalTime.Seconds())
}

// Preview shortens s to max characters, appending "..." when cut.
func Preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// truncate shortens a single-line label to max characters.
func truncate(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

// IsTerminal checks if the given file is a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
