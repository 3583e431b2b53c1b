// Package manager owns the factor registry and batch orchestration: it runs
// every active factor over a universe, normalizes the raw outputs
// cross-sectionally, and combines them into one composite score per
// instrument.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/TRQuant/TRQuantExt/internal/evaluator"
	"github.com/TRQuant/TRQuantExt/internal/factor"
	"github.com/TRQuant/TRQuantExt/internal/marketdata"
	"github.com/TRQuant/TRQuantExt/internal/metrics"
)

// ErrDuplicateFactor is returned when registering a factor whose name is
// already taken.
var ErrDuplicateFactor = errors.New("factor already registered")

// ErrNoActiveFactors is returned when a batch has no factor to run.
var ErrNoActiveFactors = errors.New("no active factors")

// Config controls orchestration behavior.
type Config struct {
	// Normalization is the cross-sectional method applied before
	// combination.
	Normalization factor.Normalization `yaml:"normalization"`
	// Workers caps concurrent factor computations; <= 0 means one worker
	// per factor.
	Workers int `yaml:"workers"`
}

// FactorFailure records one factor's isolated computation failure within a
// batch.
type FactorFailure struct {
	Factor string `json:"factor"`
	Error  string `json:"error"`
}

// CompositeScore is the per-instrument aggregate for one date: normalized,
// direction-adjusted sub-scores per factor and their weighted combination.
type CompositeScore struct {
	Instrument string             `json:"instrument"`
	SubScores  map[string]float64 `json:"sub_scores"`
	Combined   float64            `json:"combined"`
}

// BatchResult is the output of one ComputeAll run. Raw per-factor results
// are included so the caller can persist them.
type BatchResult struct {
	RunID    uuid.UUID                 `json:"run_id"`
	Date     time.Time                 `json:"date"`
	Scores   map[string]CompositeScore `json:"scores"`
	Raw      []*factor.Result          `json:"-"`
	Failures []FactorFailure           `json:"failures,omitempty"`
	Inactive []string                  `json:"inactive,omitempty"`
	Duration time.Duration             `json:"duration"`
}

// Manager is the factor registry and batch orchestrator. All methods are
// safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	cfg     Config
	factors map[string]factor.Factor
	order   []string
	weights map[string]float64
	perf    map[string]evaluator.Performance
	forced  map[string]bool
}

// New creates an empty manager.
func New(cfg Config) *Manager {
	if cfg.Normalization == "" {
		cfg.Normalization = factor.NormRankPercentile
	}
	return &Manager{
		cfg:     cfg,
		factors: make(map[string]factor.Factor),
		weights: make(map[string]float64),
		perf:    make(map[string]evaluator.Performance),
		forced:  make(map[string]bool),
	}
}

// Register adds a factor under its unique name with combination weight 1.
func (m *Manager) Register(f factor.Factor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := f.Name()
	if _, exists := m.factors[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFactor, name)
	}
	m.factors[name] = f
	m.order = append(m.order, name)
	m.weights[name] = 1
	return nil
}

// SetWeight overrides a registered factor's combination weight.
func (m *Manager) SetWeight(name string, w float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.factors[name]; !exists {
		return fmt.Errorf("unknown factor %s", name)
	}
	if w < 0 {
		return fmt.Errorf("negative weight for %s", name)
	}
	m.weights[name] = w
	return nil
}

// ForceEnable marks a factor active regardless of evaluation state.
func (m *Manager) ForceEnable(name string, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced[name] = on
}

// SetPerformance records an evaluator verdict; the activation policy reads
// the latest verdict per factor.
func (m *Manager) SetPerformance(perf evaluator.Performance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perf[perf.FactorName] = perf
}

// Performance returns the latest verdict for a factor, if any.
func (m *Manager) Performance(name string) (evaluator.Performance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.perf[name]
	return p, ok
}

// Factor returns a registered factor by name.
func (m *Manager) Factor(name string) (factor.Factor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.factors[name]
	return f, ok
}

// Factors lists registered factor names in registration order.
func (m *Manager) Factors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// isActive applies the activation policy: force-enabled factors are always
// active; otherwise a factor needs an accepting evaluation. Unevaluated
// factors stay inactive.
func (m *Manager) isActive(name string) bool {
	if m.forced[name] {
		return true
	}
	p, ok := m.perf[name]
	return ok && p.Accepted
}

// ActiveFactors lists the factors the activation policy currently admits,
// in registration order.
func (m *Manager) ActiveFactors() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for _, name := range m.order {
		if m.isActive(name) {
			out = append(out, name)
		}
	}
	return out
}

// RequiredFields is the union of input fields declared by the factors that
// would participate in a batch.
func (m *Manager) RequiredFields(activeOnly bool) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, name := range m.order {
		if activeOnly && !m.isActive(name) {
			continue
		}
		for _, f := range m.factors[name].Fields() {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}

// ComputeAll runs every active factor over the universe for one date,
// normalizes the raw outputs cross-sectionally, and combines them into
// composite scores. A single factor's failure is isolated as a diagnostic
// and excluded from the combination; the batch continues. Cancellation is
// honored between per-factor units of work.
func (m *Manager) ComputeAll(ctx context.Context, date time.Time, universe []string, data *marketdata.Snapshot, activeOnly bool) (*BatchResult, error) {
	if len(universe) == 0 {
		return nil, factor.ErrEmptyUniverse
	}

	m.mu.RLock()
	var runnable []factor.Factor
	var inactive []string
	for _, name := range m.order {
		if !activeOnly || m.isActive(name) {
			runnable = append(runnable, m.factors[name])
		} else {
			inactive = append(inactive, name)
		}
	}
	weights := make(map[string]float64, len(m.weights))
	for k, v := range m.weights {
		weights[k] = v
	}
	method := m.cfg.Normalization
	workers := m.cfg.Workers
	m.mu.RUnlock()

	if len(runnable) == 0 {
		return nil, ErrNoActiveFactors
	}

	start := time.Now()
	res := &BatchResult{
		RunID:    uuid.New(),
		Date:     date,
		Scores:   make(map[string]CompositeScore),
		Inactive: inactive,
	}

	// One slot per factor: goroutines never share mutable state beyond the
	// read-only snapshot.
	results := make([]*factor.Result, len(runnable))
	failures := make([]error, len(runnable))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, f := range runnable {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			metrics.FactorComputeTotal.WithLabelValues(f.Name()).Inc()
			r, err := f.Compute(gctx, date, universe, data)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				// Isolated per-factor failure: record and keep going.
				failures[i] = err
				metrics.FactorComputeFailures.WithLabelValues(f.Name()).Inc()
				return nil
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	normalized := make(map[string]map[string]*float64, len(runnable))
	for i, f := range runnable {
		if failures[i] != nil {
			log.Warn().Err(failures[i]).Str("factor", f.Name()).Msg("factor excluded from batch")
			res.Failures = append(res.Failures, FactorFailure{Factor: f.Name(), Error: failures[i].Error()})
			continue
		}
		res.Raw = append(res.Raw, results[i])
		normalized[f.Name()] = factor.Normalize(results[i].Values, method, f.Direction())
	}

	for _, inst := range universe {
		sub := make(map[string]float64)
		var weighted, weightSum float64
		for name, values := range normalized {
			v := values[inst]
			if v == nil {
				continue
			}
			sub[name] = *v
			weighted += weights[name] * *v
			weightSum += weights[name]
		}
		if weightSum == 0 {
			continue
		}
		res.Scores[inst] = CompositeScore{
			Instrument: inst,
			SubScores:  sub,
			Combined:   weighted / weightSum,
		}
	}

	res.Duration = time.Since(start)
	metrics.BatchDuration.Observe(res.Duration.Seconds())
	log.Info().
		Str("run_id", res.RunID.String()).
		Time("date", date).
		Int("universe", len(universe)).
		Int("factors", len(runnable)).
		Int("failures", len(res.Failures)).
		Dur("duration", res.Duration).
		Msg("factor batch computed")
	return res, nil
}
