package advisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient plays a fixed model response or failure.
type scriptedClient struct {
	name     string
	response string
	err      error
	calls    int
}

func (c *scriptedClient) Name() string { return c.name }

func (c *scriptedClient) Complete(_ context.Context, _ string) (string, error) {
	c.calls++
	return c.response, c.err
}

func sampleRequest() Request {
	return Request{
		Mainlines: []Mainline{
			{Name: "AI hardware", Score: 92},
			{Name: "new energy", Score: 85},
		},
		FactorScores: []FactorScore{
			{Code: "600000.XSHG", Name: "Bank A", FactorScore: 88, Mainline: "AI hardware"},
			{Code: "000001.XSHE", Name: "Bank B", FactorScore: 91, Mainline: "new energy"},
			{Code: "300750.XSHE", Name: "Battery Co", FactorScore: 76, Mainline: "new energy"},
		},
		Horizon: HorizonMedium,
	}
}

const wellFormedModelJSON = `Here is my analysis:
{
  "summary": "Favor new energy leaders.",
  "recommendations": [{"code": "000001.XSHE", "name": "Bank B", "reason": "top factor score", "target_weight": "10%"}],
  "risk_assessment": "Concentration risk in one theme",
  "market_view": "constructive",
  "position_advice": "half position",
  "confidence": 0.8
}
Hope this helps.`

func TestAdvise_ModelPathServes(t *testing.T) {
	client := &scriptedClient{name: "openai", response: wellFormedModelJSON}
	a := New([]Client{client}, 0)

	res, err := a.Advise(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, "openai", res.Source)
	assert.Equal(t, "Favor new energy leaders.", res.Summary)
	assert.InDelta(t, 0.8, res.Confidence, 1e-12)
	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "000001.XSHE", res.Recommendations[0].Code)
	assert.False(t, res.Timestamp.IsZero())
}

func TestAdvise_OrderedFallbackThroughChain(t *testing.T) {
	first := &scriptedClient{name: "openai", err: errors.New("rate limited")}
	second := &scriptedClient{name: "ollama", response: wellFormedModelJSON}
	a := New([]Client{first, second}, 0)

	res, err := a.Advise(context.Background(), sampleRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, "ollama", res.Source)
}

func TestAdvise_RuleFallbackWhenAllClientsFail(t *testing.T) {
	broken := &scriptedClient{name: "openai", err: errors.New("unreachable")}
	garbled := &scriptedClient{name: "ollama", response: "sorry, no JSON today"}
	a := New([]Client{broken, garbled}, 0)

	res, err := a.Advise(context.Background(), sampleRequest())
	require.NoError(t, err, "the rule engine terminates the chain, the call never fails")
	assert.Equal(t, "rules", res.Source)
}

func TestAdvise_NoClientsGoesStraightToRules(t *testing.T) {
	a := New(nil, 0)

	res, err := a.Advise(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "rules", res.Source)
}

func TestAdvise_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, 0).Advise(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRuleEngine_SchemaParityWithModelPath(t *testing.T) {
	req := sampleRequest()

	rules := NewRuleEngine().Analyze(req)
	model, err := parseModelResponse(wellFormedModelJSON)
	require.NoError(t, err)

	// Both paths must populate the same contract fields.
	for _, res := range []Result{rules, model} {
		assert.NotEmpty(t, res.Summary)
		assert.NotEmpty(t, res.Recommendations)
		assert.NotEmpty(t, res.RiskAssessment)
		assert.Greater(t, res.Confidence, 0.0)
	}
}

func TestRuleEngine_RanksTopFiveEqualWeight(t *testing.T) {
	req := Request{Horizon: HorizonShort}
	for i := 0; i < 8; i++ {
		req.FactorScores = append(req.FactorScores, FactorScore{
			Code:        string(rune('A' + i)),
			Name:        "inst",
			FactorScore: float64(i * 10),
		})
	}

	res := NewRuleEngine().Analyze(req)

	require.Len(t, res.Recommendations, 5)
	assert.Equal(t, "H", res.Recommendations[0].Code, "highest factor score first")
	for _, rec := range res.Recommendations {
		assert.Equal(t, "4%", rec.TargetWeight)
	}
}

func TestRuleEngine_Deterministic(t *testing.T) {
	req := sampleRequest()
	first := NewRuleEngine().Analyze(req)
	second := NewRuleEngine().Analyze(req)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Recommendations, second.Recommendations)
}

func TestRuleEngine_UnknownHorizonDefaultsToMedium(t *testing.T) {
	req := sampleRequest()
	req.Horizon = "fortnight"

	res := NewRuleEngine().Analyze(req)
	assert.Equal(t, adviceByHorizon[HorizonMedium].position, res.PositionAdvice)
}

func TestParseModelResponse(t *testing.T) {
	t.Run("clamps confidence", func(t *testing.T) {
		res, err := parseModelResponse(`{"summary": "s", "confidence": 1.7}`)
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.Confidence)
	})

	t.Run("keeps raw output as reasoning", func(t *testing.T) {
		raw := `prose before {"summary": "s", "confidence": 0.5} prose after`
		res, err := parseModelResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, res.Reasoning)
	})

	t.Run("rejects output without JSON", func(t *testing.T) {
		_, err := parseModelResponse("I cannot answer that")
		assert.Error(t, err)
	})
}

func TestBuildPrompt(t *testing.T) {
	req := sampleRequest()
	req.MarketContext = &MarketContext{Trend: "uptrend", Volume: "expanding", CrossBorderFlow: "net inflow"}

	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, "medium term")
	assert.Contains(t, prompt, "AI hardware")
	assert.Contains(t, prompt, "600000.XSHG")
	assert.Contains(t, prompt, "uptrend")
	assert.Contains(t, prompt, "Respond with JSON only")
}
