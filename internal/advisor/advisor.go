// Package advisor turns top mainlines and factor scores into a structured
// recommendation, via an external model when configured and a deterministic
// rule engine otherwise. Both paths return the identical Result schema, so
// consumers never branch on which path served a request.
package advisor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TRQuant/TRQuantExt/internal/metrics"
)

// Horizon is the requested investment horizon.
type Horizon string

const (
	HorizonShort  Horizon = "short"
	HorizonMedium Horizon = "medium"
	HorizonLong   Horizon = "long"
)

// Mainline is one ranked theme with its strength score.
type Mainline struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FactorScore is one ranked instrument with its factor score and theme.
type FactorScore struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	FactorScore float64 `json:"factor_score"`
	Mainline    string  `json:"mainline,omitempty"`
}

// MarketContext is the optional market-regime record accompanying a request.
type MarketContext struct {
	Trend           string `json:"trend,omitempty"`
	Volume          string `json:"volume,omitempty"`
	CrossBorderFlow string `json:"cross_border_flow,omitempty"`
}

// Request is one advisory call's input.
type Request struct {
	Mainlines     []Mainline     `json:"mainlines"`
	FactorScores  []FactorScore  `json:"factor_scores"`
	MarketContext *MarketContext `json:"market_context,omitempty"`
	Horizon       Horizon        `json:"horizon"`
}

// Recommendation is one suggested instrument with its sizing.
type Recommendation struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Reason       string `json:"reason"`
	TargetWeight string `json:"target_weight"`
}

// Result is the advisory output schema, identical across the model and rule
// paths.
type Result struct {
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	RiskAssessment  string           `json:"risk_assessment"`
	MarketView      string           `json:"market_view"`
	PositionAdvice  string           `json:"position_advice"`
	Confidence      float64          `json:"confidence"`
	Reasoning       string           `json:"reasoning,omitempty"`
	// Source names the path that served the request: a model name or
	// "rules".
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is one external model path.
type Client interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Advisor tries each configured model client in order and falls back to the
// rule engine. The attempt list is explicit control flow: the rule path is
// a declared final stage, not an exception handler.
type Advisor struct {
	clients []Client
	rules   *RuleEngine
	timeout time.Duration
}

// New builds an advisor over an ordered client list. An empty list means
// every request is served by the rule engine.
func New(clients []Client, timeout time.Duration) *Advisor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Advisor{clients: clients, rules: NewRuleEngine(), timeout: timeout}
}

// Advise produces a recommendation for the request. Model-path failures are
// logged and absorbed; the rule engine always succeeds on well-formed input,
// so the call itself fails only on a cancelled context.
func (a *Advisor) Advise(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	prompt := BuildPrompt(req)
	for _, client := range a.clients {
		cctx, cancel := context.WithTimeout(ctx, a.timeout)
		raw, err := client.Complete(cctx, prompt)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("client", client.Name()).Msg("advisory model path failed")
			continue
		}
		res, err := parseModelResponse(raw)
		if err != nil {
			log.Warn().Err(err).Str("client", client.Name()).Msg("advisory response unparseable")
			continue
		}
		res.Source = client.Name()
		res.Timestamp = time.Now().UTC()
		return res, nil
	}

	if len(a.clients) > 0 {
		metrics.AdvisorFallbackTotal.Inc()
		log.Info().Msg("advisory served by rule engine fallback")
	}
	return a.rules.Analyze(req), nil
}
