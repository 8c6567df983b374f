// Package index implements the weighted composite index engine: raw factor
// tables are normalized to a reference entity, combined with a weight set,
// and optionally rebased so the reference reads exactly 100.
package index

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Base is the value the reference entity takes after normalization.
const Base = 100.0

// Entity identifies a tracked country or region, e.g. "KR".
type Entity string

// Factor names one measured quantity, e.g. "labor_cost".
type Factor string

// Table holds one value per entity.
type Table map[Entity]float64

// FactorTables holds one table per factor.
type FactorTables map[Factor]Table

// Entities returns the table's entities in sorted order.
func (t Table) Entities() []Entity {
	out := make([]Entity, 0, len(t))
	for e := range t {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a shallow copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for e, v := range t {
		out[e] = v
	}
	return out
}

// Factors returns the factor names in sorted order.
func (ft FactorTables) Factors() []Factor {
	out := make([]Factor, 0, len(ft))
	for f := range ft {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Options configures an Engine.
type Options struct {
	// Tolerance is the accepted distance of a weight sum from 1.0.
	// Zero selects DefaultTolerance.
	Tolerance float64
	// StrictWeightSum turns a weight sum outside tolerance into an error.
	// When false the violation is logged and the combination proceeds.
	StrictWeightSum bool
}

// Engine combines normalized factor tables. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	tolerance float64
	strict    bool
	logger    *slog.Logger
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{tolerance: tol, strict: opts.StrictWeightSum, logger: logger}
}

// Tolerance returns the weight-sum tolerance in effect.
func (e *Engine) Tolerance() float64 { return e.tolerance }

// Strict reports whether weight-sum violations are fatal.
func (e *Engine) Strict() bool { return e.strict }

// Normalize rescales raw so that raw[ref] maps to exactly 100 and every
// other entity keeps its proportion to the reference.
func Normalize(raw Table, ref Entity) (Table, error) {
	return anchor("normalize", raw, ref)
}

// Rebase re-anchors an already combined index so the reference reads 100
// again. It fails the same way Normalize does.
func Rebase(idx Table, ref Entity) (Table, error) {
	return anchor("rebase", idx, ref)
}

func anchor(op string, t Table, ref Entity) (Table, error) {
	refVal, ok := t[ref]
	if !ok {
		return nil, &Error{Op: op, Kind: ErrMissingReference, Entity: ref}
	}
	for _, e := range t.Entities() {
		if v := t[e]; math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &Error{Op: op, Kind: ErrNonFiniteValue, Entity: e}
		}
	}
	if refVal == 0 {
		return nil, &Error{Op: op, Kind: ErrDivisionByZero, Entity: ref}
	}

	out := make(Table, len(t))
	for e, v := range t {
		out[e] = v / refVal * Base
	}
	out[ref] = Base
	return out, nil
}

// Combine computes, for every entity, the weighted sum of its normalized
// factor values. The factor names of normalized and weights must match
// exactly, and every entity must appear in every factor table.
func (e *Engine) Combine(normalized FactorTables, weights Weights) (Table, error) {
	if err := e.checkWeights(normalized, weights); err != nil {
		return nil, err
	}

	factors := weights.Factors()
	entities := coveredEntities(normalized)
	for _, ent := range entities {
		for _, f := range factors {
			if _, ok := normalized[f][ent]; !ok {
				return nil, &Error{Op: "combine", Kind: ErrIncompleteFactorCoverage, Entity: ent, Factor: f}
			}
		}
	}

	out := make(Table, len(entities))
	for _, ent := range entities {
		var total float64
		for _, f := range factors {
			v := normalized[f][ent]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &Error{Op: "combine", Kind: ErrNonFiniteValue, Entity: ent, Factor: f}
			}
			total += weights[f] * v
		}
		out[ent] = total
	}
	return out, nil
}

func (e *Engine) checkWeights(normalized FactorTables, weights Weights) error {
	if len(normalized) == 0 && len(weights) == 0 {
		return &Error{Op: "combine", Kind: ErrWeightKeyMismatch, Detail: "no factors"}
	}
	for _, f := range normalized.Factors() {
		if _, ok := weights[f]; !ok {
			return &Error{Op: "combine", Kind: ErrWeightKeyMismatch, Factor: f, Detail: "factor has no weight"}
		}
	}
	for _, f := range weights.Factors() {
		if _, ok := normalized[f]; !ok {
			return &Error{Op: "combine", Kind: ErrWeightKeyMismatch, Factor: f, Detail: "weight has no factor table"}
		}
		v := weights[f]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &Error{Op: "combine", Kind: ErrNonFiniteValue, Factor: f, Detail: "weight"}
		}
		if v < 0 {
			return &Error{Op: "combine", Kind: ErrNegativeWeight, Factor: f, Detail: fmt.Sprintf("%f", v)}
		}
	}

	sum := weights.Sum()
	if math.Abs(sum-1.0) <= e.tolerance {
		return nil
	}
	if e.strict {
		return &Error{
			Op:     "combine",
			Kind:   ErrWeightSumInvariant,
			Detail: fmt.Sprintf("weights sum to %.6f, must sum to 1.0", sum),
		}
	}
	e.logger.Warn("weight sum outside tolerance, continuing",
		"sum", sum,
		"tolerance", e.tolerance,
	)
	return nil
}

func coveredEntities(ft FactorTables) []Entity {
	seen := make(map[Entity]struct{})
	for _, t := range ft {
		for ent := range t {
			seen[ent] = struct{}{}
		}
	}
	out := make([]Entity, 0, len(seen))
	for ent := range seen {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
