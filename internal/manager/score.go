package manager

import "sort"

// FactorScores ranks the batch's combined scores cross-sectionally onto a
// 0-100 scale for the signal composer. Ranking keeps the scale meaningful
// under either normalization method; ties resolve by instrument id.
func (r *BatchResult) FactorScores() map[string]float64 {
	type entry struct {
		inst string
		val  float64
	}
	entries := make([]entry, 0, len(r.Scores))
	for inst, sc := range r.Scores {
		entries = append(entries, entry{inst, sc.Combined})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].val != entries[j].val {
			return entries[i].val < entries[j].val
		}
		return entries[i].inst < entries[j].inst
	})

	out := make(map[string]float64, len(entries))
	n := float64(len(entries))
	for i, e := range entries {
		out[e.inst] = float64(i+1) / n * 100
	}
	return out
}

// TopContributors names the instrument's n highest normalized sub-scores,
// for entry-reason text.
func (r *BatchResult) TopContributors(instrument string, n int) []string {
	sc, ok := r.Scores[instrument]
	if !ok {
		return nil
	}

	type entry struct {
		name string
		val  float64
	}
	entries := make([]entry, 0, len(sc.SubScores))
	for name, v := range sc.SubScores {
		entries = append(entries, entry{name, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].val != entries[j].val {
			return entries[i].val > entries[j].val
		}
		return entries[i].name < entries[j].name
	})

	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].name
	}
	return out
}
