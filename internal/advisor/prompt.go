package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
)

var horizonDesc = map[Horizon]string{
	HorizonShort:  "short term (1-5 trading days)",
	HorizonMedium: "medium term (1-4 weeks)",
	HorizonLong:   "long term (1 month or more)",
}

// BuildPrompt renders the advisory request into the analyst prompt. The
// model is asked for JSON matching the Result schema so both serving paths
// stay contract-identical.
func BuildPrompt(req Request) string {
	horizon := horizonDesc[req.Horizon]
	if horizon == "" {
		horizon = horizonDesc[HorizonMedium]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are a professional quantitative investment analyst. Produce a %s analysis from the data below.\n\n", horizon)

	b.WriteString("## Current investment mainlines (ranked by score)\n")
	for i, ml := range topMainlines(req.Mainlines, 10) {
		fmt.Fprintf(&b, "%d. %s - score %.1f\n", i+1, ml.Name, ml.Score)
	}

	if len(req.FactorScores) > 0 {
		b.WriteString("\n## Candidate instruments by factor score (top 10)\n")
		for i, fs := range topFactorScores(req.FactorScores, 10) {
			fmt.Fprintf(&b, "%d. %s %s - factor score %.1f, mainline: %s\n", i+1, fs.Code, fs.Name, fs.FactorScore, fs.Mainline)
		}
	}

	if mc := req.MarketContext; mc != nil {
		b.WriteString("\n## Market context\n")
		fmt.Fprintf(&b, "- trend: %s\n- volume regime: %s\n- cross-border flow: %s\n", mc.Trend, mc.Volume, mc.CrossBorderFlow)
	}

	b.WriteString(`
## Requirements
1. Take the stated horizon.
2. Weigh mainline strength against per-instrument factor scores.
3. Recommend 3-5 instruments with reasons.
4. Assess the main risks.
5. Give position sizing advice (full / half / light).

Respond with JSON only:
{
  "summary": "one sentence",
  "recommendations": [{"code": "", "name": "", "reason": "", "target_weight": "N%"}],
  "risk_assessment": "",
  "market_view": "",
  "position_advice": "",
  "confidence": 0.0
}
`)
	return b.String()
}

func topMainlines(mls []Mainline, n int) []Mainline {
	if len(mls) > n {
		return mls[:n]
	}
	return mls
}

func topFactorScores(fss []FactorScore, n int) []FactorScore {
	if len(fss) > n {
		return fss[:n]
	}
	return fss
}

// parseModelResponse extracts the first JSON object from model output and
// decodes it into the Result schema. Models wrap JSON in prose often enough
// that plain Unmarshal on the raw text is not an option.
func parseModelResponse(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in model output")
	}

	var res Result
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return Result{}, fmt.Errorf("decode model output: %w", err)
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	res.Reasoning = raw
	return res, nil
}
