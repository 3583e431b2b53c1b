package factor

import (
	"fmt"
	"math"
	"sort"
)

// Normalization selects the cross-sectional normalization method.
type Normalization string

const (
	// NormRankPercentile maps raw values to (0,1] by cross-sectional rank.
	// Robust to the heavy tails of fundamental ratios; the default.
	NormRankPercentile Normalization = "rank"
	// NormZScore standardizes raw values to zero mean, unit variance.
	NormZScore Normalization = "zscore"
)

// ParseNormalization validates a configured normalization name.
func ParseNormalization(s string) (Normalization, error) {
	switch Normalization(s) {
	case NormRankPercentile, NormZScore:
		return Normalization(s), nil
	case "":
		return NormRankPercentile, nil
	default:
		return "", fmt.Errorf("unknown normalization %q", s)
	}
}

// Normalize computes cross-sectional normalized scores for one date's raw
// values. The input must come from a single date: normalization across dates
// would make scores incomparable and leak future information into backtests.
// Direction is applied here, so a lower-is-better factor's best instrument
// receives the highest normalized score. Nil entries stay nil.
func Normalize(values map[string]*float64, method Normalization, dir Direction) map[string]*float64 {
	out := make(map[string]*float64, len(values))
	valid := make(map[string]float64, len(values))
	for inst, v := range values {
		if v == nil {
			out[inst] = nil
			continue
		}
		valid[inst] = *v
	}
	if len(valid) == 0 {
		return out
	}

	var normalized map[string]float64
	switch method {
	case NormZScore:
		normalized = zscore(valid)
	default:
		normalized = rankPercentile(valid)
	}

	for inst, v := range normalized {
		score := v
		if dir == LowerIsBetter {
			switch method {
			case NormZScore:
				score = -v
			default:
				score = 1 - v + 1/float64(len(valid))
			}
		}
		s := score
		out[inst] = &s
	}
	return out
}

// rankPercentile maps values to (0,1] as rank/n with average ranks for ties.
// Invariant under any positive rescaling of the raw values.
func rankPercentile(valid map[string]float64) map[string]float64 {
	type entry struct {
		inst string
		val  float64
	}
	entries := make([]entry, 0, len(valid))
	for inst, v := range valid {
		entries = append(entries, entry{inst, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].val != entries[j].val {
			return entries[i].val < entries[j].val
		}
		return entries[i].inst < entries[j].inst
	})

	n := float64(len(entries))
	ranks := make(map[string]float64, len(entries))
	for i := 0; i < len(entries); {
		j := i
		for j < len(entries) && entries[j].val == entries[i].val {
			j++
		}
		// Average rank across the tie run, 1-based.
		avg := (float64(i+1) + float64(j)) / 2
		for k := i; k < j; k++ {
			ranks[entries[k].inst] = avg
		}
		i = j
	}

	out := make(map[string]float64, len(ranks))
	for inst, r := range ranks {
		out[inst] = r / n
	}
	return out
}

// zscore standardizes values to zero mean and unit variance. A degenerate
// cross-section (zero variance) normalizes to all zeros.
func zscore(valid map[string]float64) map[string]float64 {
	var sum float64
	for _, v := range valid {
		sum += v
	}
	mean := sum / float64(len(valid))

	var ss float64
	for _, v := range valid {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(valid)))

	out := make(map[string]float64, len(valid))
	for inst, v := range valid {
		if std == 0 {
			out[inst] = 0
			continue
		}
		out[inst] = (v - mean) / std
	}
	return out
}
