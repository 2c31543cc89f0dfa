// Package output defines the verification record shared by the CLI, the
// HTTP API and the audit sinks, and renders it as Markdown.
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/johnayoung/legal-consensus/internal/consensus"
)

// Result is the JSON output structure for one verification.
type Result struct {
	ID            uuid.UUID                `json:"id"`
	Timestamp     time.Time                `json:"timestamp"`
	Question      string                   `json:"question"`
	Prompt        string                   `json:"prompt"`
	Results       []consensus.SourceResult `json:"results"`
	Consensus     *consensus.Report        `json:"consensus"`
	Outcome       consensus.Outcome        `json:"outcome"`
	Duration      time.Duration            `json:"duration_ns"`
	Warnings      []string                 `json:"warnings,omitempty"`
	FailedSources []string                 `json:"failed_sources,omitempty"`

	// Audited is set once at least one audit sink stored the record.
	Audited bool `json:"audited"`
}

// New assembles a Result, stamping it with a fresh ID and the current time.
func New(question, prompt string, results []consensus.SourceResult, report *consensus.Report) *Result {
	return &Result{
		ID:            uuid.New(),
		Timestamp:     time.Now().UTC(),
		Question:      question,
		Prompt:        prompt,
		Results:       results,
		Consensus:     report,
		Outcome:       report.Outcome(),
		FailedSources: report.FailedSources,
	}
}

// Markdown renders r as a standalone report document.
func Markdown(r *Result) string {
	var b strings.Builder
	rep := r.Consensus

	fmt.Fprintf(&b, "# Legal Citation Verification\n\n")
	fmt.Fprintf(&b, "- **ID:** %s\n", r.ID)
	fmt.Fprintf(&b, "- **Timestamp:** %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Consensus level:** %s\n", rep.Level.Display())
	fmt.Fprintf(&b, "- **Sources answered:** %d of %d\n\n", rep.SucceededCount, len(r.Results))

	fmt.Fprintf(&b, "## Question\n\n%s\n\n", r.Question)

	b.WriteString("## Shared Citations\n\n")
	if rep.Shared.Empty() {
		b.WriteString("_None._\n\n")
	} else {
		for _, c := range rep.Shared.Items() {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	if len(rep.Support) > 0 {
		b.WriteString("## Citation Support\n\n| Citation | Sources |\n|---|---|\n")
		for _, s := range rep.Support {
			fmt.Fprintf(&b, "| %s | %s |\n", s.Citation, strings.Join(s.Sources, ", "))
		}
		b.WriteString("\n")
	}

	if d := rep.Discrepancies(); len(d) > 0 {
		b.WriteString("## Discrepancies\n\n")
		for _, disc := range d {
			fmt.Fprintf(&b, "- **%s** alone cited: %s\n", disc.SourceID, strings.Join(disc.Citations, "; "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Responses\n\n")
	for _, res := range r.Results {
		status := "answered"
		if !res.Succeeded {
			status = "failed"
		}
		fmt.Fprintf(&b, "### %s (%s)\n\n%s\n\n", res.SourceID, status, res.ResponseText)
	}

	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	return b.String()
}
