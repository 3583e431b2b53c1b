package advisor

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RuleEngine is the deterministic advisory path. Given well-formed input it
// always succeeds, which is what makes it a safe final stage of the attempt
// chain.
type RuleEngine struct{}

// NewRuleEngine creates the rule-based analyzer.
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

type horizonAdvice struct {
	marketView string
	position   string
	focus      string
}

var adviceByHorizon = map[Horizon]horizonAdvice{
	HorizonShort:  {"short-term setups, take profits quickly", "light position, probe entries", "momentum and money flow"},
	HorizonMedium: {"medium-term positioning, accumulate on dips", "half position", "balanced factor exposure"},
	HorizonLong:   {"long-term value, hold with patience", "staged accumulation", "value and growth"},
}

// Analyze ranks instruments by factor score, picks the top five, and sizes
// them equally. Output is fully determined by the request.
func (r *RuleEngine) Analyze(req Request) Result {
	advice, ok := adviceByHorizon[req.Horizon]
	if !ok {
		advice = adviceByHorizon[HorizonMedium]
	}

	ranked := append([]FactorScore(nil), req.FactorScores...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FactorScore != ranked[j].FactorScore {
			return ranked[i].FactorScore > ranked[j].FactorScore
		}
		return ranked[i].Code < ranked[j].Code
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	recs := make([]Recommendation, 0, len(ranked))
	for _, fs := range ranked {
		recs = append(recs, Recommendation{
			Code:         fs.Code,
			Name:         fs.Name,
			Reason:       fmt.Sprintf("factor score %.1f, mainline: %s", fs.FactorScore, fs.Mainline),
			TargetWeight: fmt.Sprintf("%.0f%%", 20/float64(len(ranked))),
		})
	}

	var mlNames []string
	for i, ml := range req.Mainlines {
		if i == 3 {
			break
		}
		mlNames = append(mlNames, ml.Name)
	}

	summary := fmt.Sprintf("Current mainlines: %s. Suggested %s", strings.Join(mlNames, ", "), advice.position)
	if len(recs) > 0 {
		summary += fmt.Sprintf(", watching %s", recs[0].Name)
	}
	summary += "."

	return Result{
		Summary:         summary,
		Recommendations: recs,
		RiskAssessment:  "Watch for market volatility; keep stop losses in place",
		MarketView:      advice.marketView,
		PositionAdvice:  advice.position,
		Confidence:      0.6,
		Reasoning:       fmt.Sprintf("Rule-based ranking: mainline scores plus composite factor scores, %s horizon weighted toward %s.", req.Horizon, advice.focus),
		Source:          "rules",
		Timestamp:       time.Now().UTC(),
	}
}
