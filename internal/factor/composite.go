package factor

import (
	"context"
	"fmt"
	"time"

	"github.com/TRQuant/TRQuantExt/internal/marketdata"
)

// Composite combines sibling factors of one category into a single factor.
// Siblings are normalized cross-sectionally before weighting so components
// on different scales (a yield in percent, a ratio in units) contribute
// comparably. The composite itself is always higher-is-better: direction of
// each sibling is resolved during its normalization.
type Composite struct {
	name     string
	category Category
	parts    []Factor
	weights  []float64
	method   Normalization
}

// NewComposite builds a composite over sibling factors with the given
// weights. Weights must match the number of parts; they are renormalized per
// instrument over the siblings that produced a value.
func NewComposite(name string, category Category, parts []Factor, weights []float64, method Normalization) (*Composite, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("composite %s: no component factors", name)
	}
	if len(weights) != len(parts) {
		return nil, fmt.Errorf("composite %s: %d weights for %d components", name, len(weights), len(parts))
	}
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("composite %s: negative weight for %s", name, parts[i].Name())
		}
	}
	return &Composite{name: name, category: category, parts: parts, weights: weights, method: method}, nil
}

func (c *Composite) Name() string         { return c.name }
func (c *Composite) Category() Category   { return c.category }
func (c *Composite) Direction() Direction { return HigherIsBetter }

// Fields is the union of the component factors' declared fields.
func (c *Composite) Fields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.parts {
		for _, f := range p.Fields() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// Compute runs every component, normalizes each cross-sectionally within the
// date, and produces the weighted mean of available normalized scores per
// instrument. An instrument gets nil only when no component had data for it.
func (c *Composite) Compute(ctx context.Context, date time.Time, universe []string, data *marketdata.Snapshot) (*Result, error) {
	if err := ValidateInput(universe, data, c.Fields()); err != nil {
		return nil, fmt.Errorf("factor %s: %w", c.name, err)
	}

	normalized := make([]map[string]*float64, len(c.parts))
	for i, p := range c.parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		partRes, err := p.Compute(ctx, date, universe, data)
		if err != nil {
			return nil, fmt.Errorf("factor %s: component %s: %w", c.name, p.Name(), err)
		}
		normalized[i] = Normalize(partRes.Values, c.method, p.Direction())
	}

	res := NewResult(c.name, date)
	for _, inst := range universe {
		var weighted, weightSum float64
		for i := range c.parts {
			v := normalized[i][inst]
			if v == nil {
				continue
			}
			weighted += c.weights[i] * *v
			weightSum += c.weights[i]
		}
		if weightSum == 0 {
			res.Values[inst] = nil
			continue
		}
		score := weighted / weightSum
		res.Values[inst] = &score
	}
	return res, nil
}
