package factor

import "github.com/TRQuant/TRQuantExt/internal/marketdata"

// Momentum factors derive from trailing return windows supplied by the
// market-data collaborator.

// NewPriceMomentumFactor builds the medium-window price momentum factor
// (60-day cumulative return).
func NewPriceMomentumFactor() Factor {
	return &fieldFactor{
		name:      "price_momentum",
		category:  CategoryMomentum,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldReturn60D},
		fn:        single(marketdata.FieldReturn60D),
	}
}

// NewReversalFactor builds the short-term reversal factor: recent 5-day
// losers tend to bounce, so lower is better.
func NewReversalFactor() Factor {
	return &fieldFactor{
		name:      "reversal",
		category:  CategoryMomentum,
		direction: LowerIsBetter,
		fields:    []string{marketdata.FieldReturn5D},
		fn:        single(marketdata.FieldReturn5D),
	}
}

// NewRelativeStrengthFactor builds the benchmark-relative strength factor
// (20-day return over the benchmark's 20-day return).
func NewRelativeStrengthFactor() Factor {
	return &fieldFactor{
		name:      "relative_strength",
		category:  CategoryMomentum,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldReturn20D, marketdata.FieldBenchReturn20D},
		fn: func(get func(string) (float64, bool)) (float64, bool) {
			r, ok := get(marketdata.FieldReturn20D)
			if !ok {
				return 0, false
			}
			b, ok := get(marketdata.FieldBenchReturn20D)
			if !ok {
				return 0, false
			}
			return r - b, true
		},
	}
}

// NewCompositeMomentumFactor combines the momentum factors on normalized
// outputs; reversal is direction-flipped during normalization.
func NewCompositeMomentumFactor(method Normalization) (Factor, error) {
	return NewComposite("composite_momentum", CategoryMomentum,
		[]Factor{NewPriceMomentumFactor(), NewReversalFactor(), NewRelativeStrengthFactor()},
		[]float64{0.45, 0.25, 0.3},
		method,
	)
}
