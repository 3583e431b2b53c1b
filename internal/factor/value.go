package factor

import "github.com/TRQuant/TRQuantExt/internal/marketdata"

// Value factors price fundamentals against market capitalization. All are
// yields: higher means cheaper.

// NewEPFactor builds the earnings yield factor (net profit / market cap).
func NewEPFactor() Factor {
	return &fieldFactor{
		name:      "ep",
		category:  CategoryValue,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldNetProfitTTM, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldNetProfitTTM, marketdata.FieldMarketCap),
	}
}

// NewBPFactor builds the book-to-price factor (total equity / market cap).
func NewBPFactor() Factor {
	return &fieldFactor{
		name:      "bp",
		category:  CategoryValue,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldTotalEquity, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldTotalEquity, marketdata.FieldMarketCap),
	}
}

// NewSPFactor builds the sales-to-price factor (revenue / market cap).
func NewSPFactor() Factor {
	return &fieldFactor{
		name:      "sp",
		category:  CategoryValue,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldRevenueTTM, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldRevenueTTM, marketdata.FieldMarketCap),
	}
}

// NewDividendYieldFactor builds the dividend yield factor.
func NewDividendYieldFactor() Factor {
	return &fieldFactor{
		name:      "dividend_yield",
		category:  CategoryValue,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldDividendTTM, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldDividendTTM, marketdata.FieldMarketCap),
	}
}

// NewCompositeValueFactor combines the value factors on normalized outputs.
// EP carries the most weight, matching its historically strongest IC in the
// A-share cross-section.
func NewCompositeValueFactor(method Normalization) (Factor, error) {
	return NewComposite("composite_value", CategoryValue,
		[]Factor{NewEPFactor(), NewBPFactor(), NewSPFactor(), NewDividendYieldFactor()},
		[]float64{0.4, 0.25, 0.2, 0.15},
		method,
	)
}
