package consensus

import "github.com/johnayoung/legal-consensus/internal/citation"

// Report is the read-only result of one analysis pass.
type Report struct {
	Level          Level                    `json:"consensus_level"`
	Shared         *citation.Set            `json:"shared_citations"`
	BySource       map[string]*citation.Set `json:"citations_by_source"`
	UniqueBySource map[string]*citation.Set `json:"unique_by_source"`
	SucceededCount int                      `json:"succeeded_count"`

	// Sources lists succeeded source IDs in input order.
	Sources       []string    `json:"sources"`
	FailedSources []string    `json:"failed_sources,omitempty"`
	Support       []Support   `json:"support"`
	Lengths       LengthStats `json:"response_lengths"`
}

// Discrepancies returns, in source order, every succeeded source that
// produced citations outside the shared set.
func (r *Report) Discrepancies() []Discrepancy {
	var out []Discrepancy
	for _, id := range r.Sources {
		unique := r.UniqueBySource[id]
		if unique.Empty() {
			continue
		}
		out = append(out, Discrepancy{SourceID: id, Citations: unique.Items()})
	}
	return out
}

// AllCitations returns the union of every source's citations.
func (r *Report) AllCitations() *citation.Set {
	all := citation.NewSet()
	for _, id := range r.Sources {
		for _, c := range r.BySource[id].Items() {
			all.Add(c)
		}
	}
	return all
}

// Outcome classifies the report for presentation.
func (r *Report) Outcome() Outcome {
	switch {
	case r.SucceededCount == 0:
		return OutcomeTotalFailure
	case r.AllCitations().Empty():
		return OutcomeNoCitations
	case r.Shared.Empty():
		return OutcomeNoCorroboration
	case len(r.Discrepancies()) == 0:
		return OutcomeFullAgreement
	default:
		return OutcomePartialAgreement
	}
}

// Corroborated reports whether c was produced by every succeeded source.
func (r *Report) Corroborated(c string) bool {
	return r.Shared.Contains(c)
}
