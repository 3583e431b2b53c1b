package marketdata

import (
	"sort"
	"time"
)

// Well-known input field names supplied by the market-data collaborator.
// Fundamentals are trailing-twelve-month where applicable; returns are
// cumulative over the named window ending at the snapshot date.
const (
	FieldNetProfitTTM     = "net_profit_ttm"
	FieldNetProfitTTMPrev = "net_profit_ttm_prev"
	FieldRevenueTTM       = "revenue_ttm"
	FieldRevenueTTMPrev   = "revenue_ttm_prev"
	FieldTotalEquity      = "total_equity"
	FieldTotalAssets      = "total_assets"
	FieldTotalLiabilities = "total_liabilities"
	FieldMarketCap        = "market_cap"
	FieldDividendTTM      = "dividend_ttm"
	FieldROE              = "roe"
	FieldROEPrev          = "roe_prev"
	FieldGrossMargin      = "gross_margin"
	FieldReturn5D         = "return_5d"
	FieldReturn20D        = "return_20d"
	FieldReturn60D        = "return_60d"
	FieldBenchReturn20D   = "benchmark_return_20d"
	FieldNorthboundNet5D  = "northbound_net_5d"
	FieldMainForceNet5D   = "main_force_net_5d"
	FieldMarginBalChg5D   = "margin_balance_chg_5d"
)

// Snapshot holds raw per-instrument field values for a single trade date.
// Absence of a value is represented by absence from the map, never by a
// sentinel number; callers must check the ok return of Value.
type Snapshot struct {
	Date   time.Time                     `json:"date"`
	Fields map[string]map[string]float64 `json:"fields"` // field -> instrument -> value
}

// NewSnapshot creates an empty snapshot for a trade date.
func NewSnapshot(date time.Time) *Snapshot {
	return &Snapshot{
		Date:   date,
		Fields: make(map[string]map[string]float64),
	}
}

// Set records a field value for an instrument.
func (s *Snapshot) Set(field, instrument string, value float64) {
	m, ok := s.Fields[field]
	if !ok {
		m = make(map[string]float64)
		s.Fields[field] = m
	}
	m[instrument] = value
}

// Value returns the field value for an instrument, with ok=false when the
// collaborator supplied no data for that pair.
func (s *Snapshot) Value(field, instrument string) (float64, bool) {
	m, ok := s.Fields[field]
	if !ok {
		return 0, false
	}
	v, ok := m[instrument]
	return v, ok
}

// HasField reports whether the field is present at all in this snapshot.
// A declared field that is entirely absent violates the factor input
// contract, as opposed to per-instrument gaps which are expected.
func (s *Snapshot) HasField(field string) bool {
	m, ok := s.Fields[field]
	return ok && len(m) > 0
}

// Instruments lists instruments carrying a value for the field, sorted.
func (s *Snapshot) Instruments(field string) []string {
	m := s.Fields[field]
	out := make([]string, 0, len(m))
	for inst := range m {
		out = append(out, inst)
	}
	sort.Strings(out)
	return out
}
