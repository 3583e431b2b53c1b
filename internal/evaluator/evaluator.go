// Package evaluator validates factors against realized forward returns. A
// factor earns its place in the live combination only after its Information
// Coefficient and quantile-group backtest clear the configured thresholds.
package evaluator

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/TRQuant/TRQuantExt/internal/factor"
)

// Config carries the evaluation thresholds and policies. Horizon and
// normalization are deliberate configuration, not hard-coded defaults.
type Config struct {
	// HorizonDays is the forward-return horizon the supplied returns were
	// realized over; recorded on results for auditability.
	HorizonDays int `yaml:"horizon_days"`
	// Groups is the default quantile group count for backtests.
	Groups int `yaml:"groups"`
	// MinPairsPerDate is the minimum number of valid (value, return) pairs
	// a date needs to contribute to the aggregate; thinner dates are
	// skipped and reported.
	MinPairsPerDate int `yaml:"min_pairs_per_date"`
	// MinDates is the minimum number of contributing dates for a result to
	// be conclusive.
	MinDates int `yaml:"min_dates"`
	// MinIR is the information ratio acceptance floor.
	MinIR float64 `yaml:"min_ir"`
	// MinSpreadWinRate is the acceptance floor on the fraction of dates
	// with a positive top-minus-bottom spread.
	MinSpreadWinRate float64 `yaml:"min_spread_win_rate"`
}

// HorizonDays maps a named horizon to its default forward-return window in
// trading days. Unknown names get the medium window.
func HorizonDays(horizon string) int {
	switch horizon {
	case "short":
		return 5
	case "long":
		return 60
	default:
		return 20
	}
}

// DefaultConfig returns the medium-horizon defaults.
func DefaultConfig() Config {
	return Config{
		HorizonDays:      20,
		Groups:           5,
		MinPairsPerDate:  10,
		MinDates:         12,
		MinIR:            0.3,
		MinSpreadWinRate: 0.55,
	}
}

// ForwardReturns maps date -> instrument -> realized forward return over the
// evaluation horizon.
type ForwardReturns map[time.Time]map[string]float64

// ICResult aggregates per-date rank correlations between factor values and
// forward returns.
type ICResult struct {
	FactorName   string      `json:"factor_name"`
	HorizonDays  int         `json:"horizon_days"`
	MeanIC       float64     `json:"mean_ic"`
	StdIC        float64     `json:"std_ic"`
	IR           float64     `json:"ir"`
	TStat        float64     `json:"t_stat"`
	WinRate      float64     `json:"win_rate"`
	Samples      int         `json:"samples"`
	SkippedDates []time.Time `json:"skipped_dates,omitempty"`
	// Inconclusive marks results backed by fewer dates than the configured
	// minimum; point estimates must not be trusted.
	Inconclusive bool `json:"inconclusive"`
}

// GroupBacktestResult summarizes a quantile-group backtest. GroupReturns is
// ordered weakest to strongest by factor ranking; the last entry is the top
// group.
type GroupBacktestResult struct {
	FactorName    string      `json:"factor_name"`
	HorizonDays   int         `json:"horizon_days"`
	Groups        int         `json:"groups"`
	GroupReturns  []float64   `json:"group_returns"`
	Spread        float64     `json:"spread"`
	SpreadWinRate float64     `json:"spread_win_rate"`
	Samples       int         `json:"samples"`
	SkippedDates  []time.Time `json:"skipped_dates,omitempty"`
	Inconclusive  bool        `json:"inconclusive"`
}

// Performance is the accept/reject verdict the manager's activation policy
// consumes. A rejected factor keeps its stats queryable for diagnosis.
type Performance struct {
	FactorName  string              `json:"factor_name"`
	IC          ICResult            `json:"ic"`
	Backtest    GroupBacktestResult `json:"backtest"`
	Accepted    bool                `json:"accepted"`
	Reasons     []string            `json:"reasons,omitempty"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

// Evaluator runs the statistical validation. It only reads the history it is
// handed and is safe to run concurrently with live computation.
type Evaluator struct {
	cfg Config
}

// New creates an evaluator with the given thresholds.
func New(cfg Config) *Evaluator {
	if cfg.Groups <= 0 {
		cfg.Groups = DefaultConfig().Groups
	}
	return &Evaluator{cfg: cfg}
}

// datePairs extracts the valid (value, forward return) pairs for one date,
// with factor values sign-adjusted so a predictive factor always produces
// positive statistics regardless of its declared direction. Pair order is
// fixed by instrument id for determinism.
func datePairs(res *factor.Result, dir factor.Direction, fwd map[string]float64) (vals, rets []float64, insts []string) {
	insts = make([]string, 0, len(res.Values))
	for inst, v := range res.Values {
		if v == nil {
			continue
		}
		if _, ok := fwd[inst]; !ok {
			continue
		}
		insts = append(insts, inst)
	}
	sort.Strings(insts)

	sign := 1.0
	if dir == factor.LowerIsBetter {
		sign = -1.0
	}
	vals = make([]float64, len(insts))
	rets = make([]float64, len(insts))
	for i, inst := range insts {
		vals[i] = sign * *res.Values[inst]
		rets[i] = fwd[inst]
	}
	return vals, rets, insts
}

// ComputeIC computes per-date Spearman correlations between factor values
// and realized forward returns, and aggregates them. Dates with fewer valid
// pairs than the configured minimum are excluded and reported as skipped.
func (e *Evaluator) ComputeIC(name string, dir factor.Direction, history []*factor.Result, fwd ForwardReturns) ICResult {
	out := ICResult{FactorName: name, HorizonDays: e.cfg.HorizonDays}

	var ics []float64
	for _, res := range history {
		vals, rets, _ := datePairs(res, dir, fwd[res.Date])
		if len(vals) < e.cfg.MinPairsPerDate {
			out.SkippedDates = append(out.SkippedDates, res.Date)
			continue
		}
		ic, ok := spearman(vals, rets)
		if !ok {
			out.SkippedDates = append(out.SkippedDates, res.Date)
			continue
		}
		ics = append(ics, ic)
	}

	out.Samples = len(ics)
	if out.Samples == 0 {
		out.Inconclusive = true
		return out
	}

	out.MeanIC = mean(ics)
	out.StdIC = stddev(ics, out.MeanIC)
	if out.StdIC > 0 {
		out.IR = out.MeanIC / out.StdIC
		out.TStat = out.MeanIC / (out.StdIC / math.Sqrt(float64(out.Samples)))
	}

	matches := 0
	for _, ic := range ics {
		if (ic >= 0) == (out.MeanIC >= 0) {
			matches++
		}
	}
	out.WinRate = float64(matches) / float64(out.Samples)

	if out.Samples < e.cfg.MinDates {
		out.Inconclusive = true
	}
	return out
}

// RunGroupBacktest ranks instruments by factor value on each date, partitions
// them into nGroups near-equal buckets (ties broken by instrument id), and
// tracks each bucket's mean forward return. Bucket boundaries are recomputed
// independently per date. nGroups <= 0 uses the configured default.
func (e *Evaluator) RunGroupBacktest(name string, dir factor.Direction, history []*factor.Result, fwd ForwardReturns, nGroups int) GroupBacktestResult {
	if nGroups <= 0 {
		nGroups = e.cfg.Groups
	}
	out := GroupBacktestResult{
		FactorName:  name,
		HorizonDays: e.cfg.HorizonDays,
		Groups:      nGroups,
	}

	groupSums := make([]float64, nGroups)
	var spreads []float64
	positive := 0

	for _, res := range history {
		vals, rets, insts := datePairs(res, dir, fwd[res.Date])
		if len(vals) < e.cfg.MinPairsPerDate || len(vals) < nGroups {
			out.SkippedDates = append(out.SkippedDates, res.Date)
			continue
		}

		// Ascending by sign-adjusted value; instrument id already breaks
		// ties via the sorted pair extraction, making assignment stable.
		order := make([]int, len(vals))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			if vals[order[a]] != vals[order[b]] {
				return vals[order[a]] < vals[order[b]]
			}
			return insts[order[a]] < insts[order[b]]
		})

		sums := make([]float64, nGroups)
		counts := make([]int, nGroups)
		for pos, idx := range order {
			g := pos * nGroups / len(order)
			sums[g] += rets[idx]
			counts[g]++
		}

		for g := 0; g < nGroups; g++ {
			groupSums[g] += sums[g] / float64(counts[g])
		}
		spread := sums[nGroups-1]/float64(counts[nGroups-1]) - sums[0]/float64(counts[0])
		spreads = append(spreads, spread)
		if spread > 0 {
			positive++
		}
	}

	out.Samples = len(spreads)
	if out.Samples == 0 {
		out.Inconclusive = true
		return out
	}

	out.GroupReturns = make([]float64, nGroups)
	for g := 0; g < nGroups; g++ {
		out.GroupReturns[g] = groupSums[g] / float64(out.Samples)
	}
	out.Spread = mean(spreads)
	out.SpreadWinRate = float64(positive) / float64(out.Samples)

	if out.Samples < e.cfg.MinDates {
		out.Inconclusive = true
	}
	return out
}

// Evaluate runs both analyses and folds them into an accept/reject verdict.
// A window with zero usable dates yields an explicit inconclusive rejection,
// never a confident zero statistic.
func (e *Evaluator) Evaluate(name string, dir factor.Direction, history []*factor.Result, fwd ForwardReturns) Performance {
	perf := Performance{
		FactorName:  name,
		IC:          e.ComputeIC(name, dir, history, fwd),
		EvaluatedAt: time.Now().UTC(),
	}
	perf.Backtest = e.RunGroupBacktest(name, dir, history, fwd, e.cfg.Groups)

	switch {
	case perf.IC.Inconclusive || perf.Backtest.Inconclusive:
		perf.Reasons = append(perf.Reasons, "insufficient sample: fewer valid dates than configured minimum")
	default:
		if perf.IC.IR < e.cfg.MinIR {
			perf.Reasons = append(perf.Reasons, "information ratio below threshold")
		}
		if perf.Backtest.SpreadWinRate < e.cfg.MinSpreadWinRate {
			perf.Reasons = append(perf.Reasons, "spread win rate below threshold")
		}
	}
	perf.Accepted = len(perf.Reasons) == 0

	log.Info().
		Str("factor", name).
		Float64("mean_ic", perf.IC.MeanIC).
		Float64("ir", perf.IC.IR).
		Float64("spread_win_rate", perf.Backtest.SpreadWinRate).
		Bool("accepted", perf.Accepted).
		Msg("factor evaluated")
	return perf
}
