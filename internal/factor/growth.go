package factor

import "github.com/TRQuant/TRQuantExt/internal/marketdata"

// Growth factors measure year-over-year improvement in fundamentals.

// growthRate computes (current - previous) / |previous|, with no value when
// either period is missing or the base period is zero.
func growthRate(curField, prevField string) func(get func(string) (float64, bool)) (float64, bool) {
	return func(get func(string) (float64, bool)) (float64, bool) {
		cur, ok := get(curField)
		if !ok {
			return 0, false
		}
		prev, ok := get(prevField)
		if !ok || prev == 0 {
			return 0, false
		}
		base := prev
		if base < 0 {
			base = -base
		}
		return (cur - prev) / base, true
	}
}

// NewRevenueGrowthFactor builds the revenue growth factor.
func NewRevenueGrowthFactor() Factor {
	return &fieldFactor{
		name:      "revenue_growth",
		category:  CategoryGrowth,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldRevenueTTM, marketdata.FieldRevenueTTMPrev},
		fn:        growthRate(marketdata.FieldRevenueTTM, marketdata.FieldRevenueTTMPrev),
	}
}

// NewProfitGrowthFactor builds the net profit growth factor.
func NewProfitGrowthFactor() Factor {
	return &fieldFactor{
		name:      "profit_growth",
		category:  CategoryGrowth,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldNetProfitTTM, marketdata.FieldNetProfitTTMPrev},
		fn:        growthRate(marketdata.FieldNetProfitTTM, marketdata.FieldNetProfitTTMPrev),
	}
}

// NewROEChangeFactor builds the ROE improvement factor (current minus prior
// period, in percentage points).
func NewROEChangeFactor() Factor {
	return &fieldFactor{
		name:      "roe_change",
		category:  CategoryGrowth,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldROE, marketdata.FieldROEPrev},
		fn: func(get func(string) (float64, bool)) (float64, bool) {
			cur, ok := get(marketdata.FieldROE)
			if !ok {
				return 0, false
			}
			prev, ok := get(marketdata.FieldROEPrev)
			if !ok {
				return 0, false
			}
			return cur - prev, true
		},
	}
}

// NewCompositeGrowthFactor combines the growth factors on normalized outputs.
func NewCompositeGrowthFactor(method Normalization) (Factor, error) {
	return NewComposite("composite_growth", CategoryGrowth,
		[]Factor{NewRevenueGrowthFactor(), NewProfitGrowthFactor(), NewROEChangeFactor()},
		[]float64{0.35, 0.4, 0.25},
		method,
	)
}
