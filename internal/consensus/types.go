package consensus

import (
	"strings"
	"time"
)

// Level is the coarse cross-source agreement classification.
type Level string

const (
	// LevelNone means no source answered at all.
	LevelNone Level = "none"
	// LevelLow means sources answered but no citation was cited by all of them.
	LevelLow Level = "low"
	// LevelHigh means at least one citation was cited by every answering source.
	LevelHigh Level = "high"
)

// Display returns the upper-case label shown to users.
func (l Level) Display() string {
	return strings.ToUpper(string(l))
}

// SourceResult is one source's outcome for one question.
// When Succeeded is false, ResponseText holds a human-readable error and the
// result takes no part in citation extraction or consensus math.
type SourceResult struct {
	SourceID     string        `json:"source_id"`
	ResponseText string        `json:"response_text"`
	Succeeded    bool          `json:"succeeded"`
	Provider     string        `json:"provider,omitempty"`
	Model        string        `json:"model,omitempty"`
	Latency      time.Duration `json:"latency_ns,omitempty"`
}

// Success builds a succeeded result.
func Success(sourceID, text string) SourceResult {
	return SourceResult{SourceID: sourceID, ResponseText: text, Succeeded: true}
}

// Failure builds a failed result carrying err as its message.
func Failure(sourceID string, err error) SourceResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return SourceResult{SourceID: sourceID, ResponseText: "Error: " + msg}
}

// LengthStats summarizes response lengths (in characters) across succeeded
// sources. It is an auxiliary quality signal and never affects Level.
type LengthStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
}

// Support lists which succeeded sources produced a citation.
type Support struct {
	Citation string   `json:"citation"`
	Sources  []string `json:"sources"`
}

// Discrepancy is a source together with the citations only it produced
// (its extracted set minus the shared set).
type Discrepancy struct {
	SourceID  string   `json:"source_id"`
	Citations []string `json:"citations"`
}

// Outcome distinguishes the situations a caller has to present differently.
type Outcome string

const (
	// OutcomeTotalFailure: every source failed.
	OutcomeTotalFailure Outcome = "total_failure"
	// OutcomeNoCitations: sources answered but no citation was found anywhere.
	OutcomeNoCitations Outcome = "no_citations"
	// OutcomeNoCorroboration: citations were found but none is shared by all sources.
	OutcomeNoCorroboration Outcome = "no_corroboration"
	// OutcomePartialAgreement: some citations are shared, some sources add their own.
	OutcomePartialAgreement Outcome = "partial_agreement"
	// OutcomeFullAgreement: every source produced exactly the shared set.
	OutcomeFullAgreement Outcome = "full_agreement"
)
