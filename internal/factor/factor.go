package factor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TRQuant/TRQuantExt/internal/marketdata"
)

// Category classifies a factor by the data it derives from.
type Category string

const (
	CategoryValue    Category = "value"
	CategoryGrowth   Category = "growth"
	CategoryQuality  Category = "quality"
	CategoryMomentum Category = "momentum"
	CategoryFlow     Category = "flow"
)

// Direction declares how raw factor values order instruments.
type Direction int

const (
	// HigherIsBetter means larger raw values indicate stronger instruments.
	HigherIsBetter Direction = iota
	// LowerIsBetter means smaller raw values indicate stronger instruments
	// (e.g. leverage, short-term reversal).
	LowerIsBetter
)

// Input contract violations. Per-instrument data gaps are not errors; these
// fire only when the call itself is malformed.
var (
	ErrEmptyUniverse = errors.New("universe is empty")
	ErrMissingField  = errors.New("declared input field absent from snapshot")
	ErrNilSnapshot   = errors.New("input snapshot is nil")
)

// Factor is a named, deterministic transform from (date, universe, input
// data) to per-instrument scores. Implementations are stateless: identical
// inputs must produce identical output.
type Factor interface {
	Name() string
	Category() Category
	Direction() Direction
	// Fields lists the input fields the factor depends on. Every listed
	// field must be present in the snapshot (per-instrument gaps allowed).
	Fields() []string
	Compute(ctx context.Context, date time.Time, universe []string, data *marketdata.Snapshot) (*Result, error)
}

// Result is one factor's output for one date over a universe. Values maps
// instrument id to score; a nil entry means required inputs were missing for
// that instrument. Instruments outside the universe never appear.
type Result struct {
	FactorName string              `json:"factor_name"`
	Date       time.Time           `json:"date"`
	Values     map[string]*float64 `json:"values"`
	ComputedAt time.Time           `json:"computed_at"`
}

// NewResult creates an empty result for a factor and date.
func NewResult(name string, date time.Time) *Result {
	return &Result{
		FactorName: name,
		Date:       date,
		Values:     make(map[string]*float64),
		ComputedAt: time.Now().UTC(),
	}
}

// Valid returns the subset of instruments with a non-nil value.
func (r *Result) Valid() map[string]float64 {
	out := make(map[string]float64, len(r.Values))
	for inst, v := range r.Values {
		if v != nil {
			out[inst] = *v
		}
	}
	return out
}

// ValidateInput enforces the factor input contract: non-empty universe,
// non-nil snapshot, and every declared field present in the snapshot.
func ValidateInput(universe []string, data *marketdata.Snapshot, fields []string) error {
	if len(universe) == 0 {
		return ErrEmptyUniverse
	}
	if data == nil {
		return ErrNilSnapshot
	}
	for _, f := range fields {
		if !data.HasField(f) {
			return fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}
	return nil
}

// fieldFactor is the shared implementation behind the concrete single-name
// factors: a pure function over the declared fields of one instrument.
type fieldFactor struct {
	name      string
	category  Category
	direction Direction
	fields    []string
	fn        func(get func(field string) (float64, bool)) (float64, bool)
}

func (f *fieldFactor) Name() string         { return f.name }
func (f *fieldFactor) Category() Category   { return f.category }
func (f *fieldFactor) Direction() Direction { return f.direction }
func (f *fieldFactor) Fields() []string     { return append([]string(nil), f.fields...) }

func (f *fieldFactor) Compute(ctx context.Context, date time.Time, universe []string, data *marketdata.Snapshot) (*Result, error) {
	if err := ValidateInput(universe, data, f.fields); err != nil {
		return nil, fmt.Errorf("factor %s: %w", f.name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := NewResult(f.name, date)
	for _, inst := range universe {
		get := func(field string) (float64, bool) {
			return data.Value(field, inst)
		}
		if v, ok := f.fn(get); ok {
			value := v
			res.Values[inst] = &value
		} else {
			res.Values[inst] = nil
		}
	}
	return res, nil
}

// ratio builds the common two-field ratio computation, yielding no value when
// either side is missing or the denominator is zero.
func ratio(numField, denField string) func(get func(string) (float64, bool)) (float64, bool) {
	return func(get func(string) (float64, bool)) (float64, bool) {
		num, ok := get(numField)
		if !ok {
			return 0, false
		}
		den, ok := get(denField)
		if !ok || den == 0 {
			return 0, false
		}
		return num / den, true
	}
}

// single builds a pass-through computation over one field.
func single(field string) func(get func(string) (float64, bool)) (float64, bool) {
	return func(get func(string) (float64, bool)) (float64, bool) {
		return get(field)
	}
}
