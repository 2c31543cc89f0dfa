// Package consensus computes cross-source agreement over extracted citations.
//
// Analysis is a pure function of its input: no I/O, no shared state.
// Failed sources only reduce the number of sources taking part.
package consensus

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/johnayoung/legal-consensus/internal/citation"
)

// Analyzer derives a Report from a set of source results using a pluggable
// citation extractor.
type Analyzer struct {
	extractor citation.Extractor
}

// NewAnalyzer creates an analyzer. A nil extractor selects citation.Default().
func NewAnalyzer(extractor citation.Extractor) *Analyzer {
	if extractor == nil {
		extractor = citation.Default()
	}
	return &Analyzer{extractor: extractor}
}

// Analyze runs the default analyzer over results.
func Analyze(results []SourceResult) *Report {
	return NewAnalyzer(nil).Analyze(results)
}

// Extractor returns the extractor in use.
func (a *Analyzer) Extractor() citation.Extractor {
	return a.extractor
}

// Analyze computes the consensus report for results.
//
// Shared citations are the intersection over succeeded sources only. A
// single succeeded source shares its whole set with itself. With no
// succeeded source the level is LevelNone and every set is empty.
func (a *Analyzer) Analyze(results []SourceResult) *Report {
	r := &Report{
		Level:          LevelNone,
		Shared:         citation.NewSet(),
		BySource:       make(map[string]*citation.Set),
		UniqueBySource: make(map[string]*citation.Set),
		Sources:        []string{},
		Support:        []Support{},
	}

	used := make(map[string]bool)
	var lengths []int
	for i, res := range results {
		id := sourceKey(res.SourceID, i, used)
		if !res.Succeeded {
			r.FailedSources = append(r.FailedSources, id)
			continue
		}
		r.Sources = append(r.Sources, id)
		r.BySource[id] = a.extractor.Extract(res.ResponseText)
		lengths = append(lengths, utf8.RuneCountInString(res.ResponseText))
	}

	r.SucceededCount = len(r.Sources)
	if r.SucceededCount == 0 {
		return r
	}

	shared := r.BySource[r.Sources[0]].Clone()
	for _, id := range r.Sources[1:] {
		shared = shared.Intersect(r.BySource[id])
	}
	r.Shared = shared

	if shared.Empty() {
		r.Level = LevelLow
	} else {
		r.Level = LevelHigh
	}

	for _, id := range r.Sources {
		r.UniqueBySource[id] = r.BySource[id].Difference(shared)
	}

	r.Support = support(r.Sources, r.BySource)
	r.Lengths = lengthStats(lengths)
	return r
}

// sourceKey returns a stable key for a result that is not yet in used, and
// marks it used. Blank IDs are named by position and taken IDs get the
// lowest free "#n" suffix.
func sourceKey(id string, pos int, used map[string]bool) string {
	if id == "" {
		id = fmt.Sprintf("source %d", pos+1)
	}
	key := id
	for n := 2; used[key]; n++ {
		key = fmt.Sprintf("%s #%d", id, n)
	}
	used[key] = true
	return key
}

func support(sources []string, bySource map[string]*citation.Set) []Support {
	var out []Support
	index := make(map[string]int)
	for _, id := range sources {
		for _, c := range bySource[id].Items() {
			i, ok := index[c]
			if !ok {
				i = len(out)
				index[c] = i
				out = append(out, Support{Citation: c})
			}
			out[i].Sources = append(out[i].Sources, id)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Sources) > len(out[j].Sources)
	})
	if out == nil {
		out = []Support{}
	}
	return out
}

func lengthStats(lengths []int) LengthStats {
	if len(lengths) == 0 {
		return LengthStats{}
	}
	st := LengthStats{Min: lengths[0], Max: lengths[0]}
	var sum float64
	for _, l := range lengths {
		sum += float64(l)
		st.Min = min(st.Min, l)
		st.Max = max(st.Max, l)
	}
	st.Mean = sum / float64(len(lengths))
	for _, l := range lengths {
		d := float64(l) - st.Mean
		st.Variance += d * d
	}
	st.Variance /= float64(len(lengths))
	return st
}
