package factor

import "github.com/TRQuant/TRQuantExt/internal/marketdata"

// Quality factors measure profitability and balance-sheet strength.

// NewROEFactor builds the return-on-equity factor.
func NewROEFactor() Factor {
	return &fieldFactor{
		name:      "roe",
		category:  CategoryQuality,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldROE},
		fn:        single(marketdata.FieldROE),
	}
}

// NewGrossMarginFactor builds the gross margin factor.
func NewGrossMarginFactor() Factor {
	return &fieldFactor{
		name:      "gross_margin",
		category:  CategoryQuality,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldGrossMargin},
		fn:        single(marketdata.FieldGrossMargin),
	}
}

// NewAssetTurnoverFactor builds the asset turnover factor
// (revenue / total assets).
func NewAssetTurnoverFactor() Factor {
	return &fieldFactor{
		name:      "asset_turnover",
		category:  CategoryQuality,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldRevenueTTM, marketdata.FieldTotalAssets},
		fn:        ratio(marketdata.FieldRevenueTTM, marketdata.FieldTotalAssets),
	}
}

// NewLeverageFactor builds the leverage factor (liabilities / assets).
// Lower leverage is the quality signal.
func NewLeverageFactor() Factor {
	return &fieldFactor{
		name:      "leverage",
		category:  CategoryQuality,
		direction: LowerIsBetter,
		fields:    []string{marketdata.FieldTotalLiabilities, marketdata.FieldTotalAssets},
		fn:        ratio(marketdata.FieldTotalLiabilities, marketdata.FieldTotalAssets),
	}
}

// NewCompositeQualityFactor combines the quality factors on normalized
// outputs; the leverage component is direction-flipped during normalization.
func NewCompositeQualityFactor(method Normalization) (Factor, error) {
	return NewComposite("composite_quality", CategoryQuality,
		[]Factor{NewROEFactor(), NewGrossMarginFactor(), NewAssetTurnoverFactor(), NewLeverageFactor()},
		[]float64{0.35, 0.25, 0.2, 0.2},
		method,
	)
}
