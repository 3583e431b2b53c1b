package factor

import "github.com/TRQuant/TRQuantExt/internal/marketdata"

// Flow factors track where money is moving. Net flows are scaled by market
// cap so large instruments do not dominate on absolute size.

// NewNorthboundFlowFactor builds the northbound (cross-border) net flow
// factor over the trailing 5 sessions.
func NewNorthboundFlowFactor() Factor {
	return &fieldFactor{
		name:      "northbound_flow",
		category:  CategoryFlow,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldNorthboundNet5D, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldNorthboundNet5D, marketdata.FieldMarketCap),
	}
}

// NewMainForceFlowFactor builds the main-force (large order) net flow factor
// over the trailing 5 sessions.
func NewMainForceFlowFactor() Factor {
	return &fieldFactor{
		name:      "main_force_flow",
		category:  CategoryFlow,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldMainForceNet5D, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldMainForceNet5D, marketdata.FieldMarketCap),
	}
}

// NewMarginBalanceFactor builds the margin balance change factor over the
// trailing 5 sessions.
func NewMarginBalanceFactor() Factor {
	return &fieldFactor{
		name:      "margin_balance",
		category:  CategoryFlow,
		direction: HigherIsBetter,
		fields:    []string{marketdata.FieldMarginBalChg5D, marketdata.FieldMarketCap},
		fn:        ratio(marketdata.FieldMarginBalChg5D, marketdata.FieldMarketCap),
	}
}

// NewCompositeFlowFactor combines the flow factors on normalized outputs.
func NewCompositeFlowFactor(method Normalization) (Factor, error) {
	return NewComposite("composite_flow", CategoryFlow,
		[]Factor{NewNorthboundFlowFactor(), NewMainForceFlowFactor(), NewMarginBalanceFactor()},
		[]float64{0.4, 0.4, 0.2},
		method,
	)
}
