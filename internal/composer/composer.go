// Package composer merges composite factor scores with externally supplied
// thematic ("mainline") scores into a ranked, explainable signal list.
package composer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/TRQuant/TRQuantExt/internal/metrics"
)

// Config carries the composition weights and tiering thresholds. Thresholds
// are explicit configuration, never hard-coded business constants.
type Config struct {
	WeightFactor    float64 `yaml:"weight_factor"`
	WeightMainline  float64 `yaml:"weight_mainline"`
	// DefaultMainline substitutes for instruments the mainline collaborator
	// did not score (typically the neutral midpoint of its range).
	DefaultMainline float64 `yaml:"default_mainline"`
	StrongThreshold float64 `yaml:"strong_threshold"`
	WeakThreshold   float64 `yaml:"weak_threshold"`
	// MinScore drops signals below this combined score; zero keeps all.
	MinScore float64 `yaml:"min_score"`
}

// DefaultConfig returns equal-weight composition over a 0-100 score range.
func DefaultConfig() Config {
	return Config{
		WeightFactor:    0.5,
		WeightMainline:  0.5,
		DefaultMainline: 50,
		StrongThreshold: 75,
		WeakThreshold:   45,
	}
}

// Validate checks weights and threshold ordering.
func (c Config) Validate() error {
	if c.WeightFactor < 0 || c.WeightMainline < 0 {
		return fmt.Errorf("negative composition weight")
	}
	if c.WeightFactor+c.WeightMainline == 0 {
		return fmt.Errorf("composition weights sum to zero")
	}
	if c.WeakThreshold > c.StrongThreshold {
		return fmt.Errorf("weak threshold %.1f above strong threshold %.1f", c.WeakThreshold, c.StrongThreshold)
	}
	return nil
}

// InstrumentScore is the factor side of the composition for one instrument.
// TopFactors names the dominant contributing factors for the entry reason.
type InstrumentScore struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	FactorScore float64  `json:"factor_score"`
	TopFactors  []string `json:"top_factors,omitempty"`
}

// MainlineScore is the thematic side supplied by the mainline collaborator.
type MainlineScore struct {
	Theme string  `json:"theme"`
	Score float64 `json:"score"`
}

// StockSignal is the final composed entity. Immutable once produced; the
// caller owns any persistence.
type StockSignal struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	FactorScore   float64 `json:"factor_score"`
	MainlineScore float64 `json:"mainline_score"`
	CombinedScore float64 `json:"combined_score"`
	Mainline      string  `json:"mainline,omitempty"`
	// SignalStrength is one of "strong", "neutral", "weak".
	SignalStrength string `json:"signal_strength"`
	EntryReason    string `json:"entry_reason"`
}

// Compose combines factor and mainline scores into ranked signals. Output is
// sorted by combined score descending with ties broken by instrument code,
// then filtered by the minimum score and truncated to topN (topN <= 0 keeps
// all). Instruments without a mainline score use the configured default.
func Compose(scores []InstrumentScore, mainlines map[string]MainlineScore, cfg Config, topN int) ([]StockSignal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	wSum := cfg.WeightFactor + cfg.WeightMainline
	wf := cfg.WeightFactor / wSum
	wm := cfg.WeightMainline / wSum

	signals := make([]StockSignal, 0, len(scores))
	for _, sc := range scores {
		ml, hasML := mainlines[sc.Code]
		mlScore := cfg.DefaultMainline
		if hasML {
			mlScore = ml.Score
		}

		combined := wf*sc.FactorScore + wm*mlScore
		sig := StockSignal{
			Code:           sc.Code,
			Name:           sc.Name,
			FactorScore:    sc.FactorScore,
			MainlineScore:  mlScore,
			CombinedScore:  combined,
			SignalStrength: strength(combined, cfg),
		}
		if hasML {
			sig.Mainline = ml.Theme
		}
		sig.EntryReason = entryReason(sc, sig, hasML)
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		if signals[i].CombinedScore != signals[j].CombinedScore {
			return signals[i].CombinedScore > signals[j].CombinedScore
		}
		return signals[i].Code < signals[j].Code
	})

	if cfg.MinScore > 0 {
		kept := signals[:0]
		for _, sig := range signals {
			if sig.CombinedScore >= cfg.MinScore {
				kept = append(kept, sig)
			}
		}
		signals = kept
	}
	if topN > 0 && len(signals) > topN {
		signals = signals[:topN]
	}

	metrics.SignalsComposed.Observe(float64(len(signals)))
	log.Debug().Int("signals", len(signals)).Msg("signals composed")
	return signals, nil
}

func strength(combined float64, cfg Config) string {
	switch {
	case combined >= cfg.StrongThreshold:
		return "strong"
	case combined <= cfg.WeakThreshold:
		return "weak"
	default:
		return "neutral"
	}
}

// entryReason summarizes the dominant factors and mainline context so every
// signal is auditable without re-running the engine.
func entryReason(sc InstrumentScore, sig StockSignal, hasML bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "factor score %.1f", sig.FactorScore)
	if len(sc.TopFactors) > 0 {
		fmt.Fprintf(&b, " led by %s", strings.Join(sc.TopFactors, ", "))
	}
	if hasML {
		fmt.Fprintf(&b, "; mainline %q %.1f", sig.Mainline, sig.MainlineScore)
	} else {
		fmt.Fprintf(&b, "; no mainline coverage, neutral %.1f assumed", sig.MainlineScore)
	}
	return b.String()
}
