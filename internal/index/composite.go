package index

import (
	"errors"
	"fmt"
	"sort"
)

// Composite describes one named weighted index: which factors feed it, how
// much each counts, and which entity anchors it.
type Composite struct {
	Name      string
	Reference Entity
	Weights   Weights
	// Rebase re-anchors the combined index to the reference after
	// aggregation.
	Rebase bool
}

// FactorResult captures one factor's contribution to an entity's composite.
type FactorResult struct {
	Name     Factor  `json:"name"`
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// Result is the full output of one composite computation.
type Result struct {
	Name       string       `json:"name"`
	Reference  Entity       `json:"reference"`
	Weights    Weights      `json:"weights"`
	Normalized FactorTables `json:"normalized"`
	// Combined is the weighted sum before any rebase.
	Combined Table `json:"combined"`
	Index    Table `json:"index"`
	Rebased  bool  `json:"rebased"`
}

// Compute normalizes every raw factor table to the composite's reference,
// combines them with its weights, and rebases when asked to.
func (e *Engine) Compute(c Composite, raw FactorTables) (*Result, error) {
	normalized := make(FactorTables, len(raw))
	for _, f := range raw.Factors() {
		n, err := Normalize(raw[f], c.Reference)
		if err != nil {
			var ie *Error
			if errors.As(err, &ie) && ie.Factor == "" {
				ie.Factor = f
			}
			return nil, fmt.Errorf("composite %s: %w", c.Name, err)
		}
		normalized[f] = n
	}

	combined, err := e.Combine(normalized, c.Weights)
	if err != nil {
		return nil, fmt.Errorf("composite %s: %w", c.Name, err)
	}

	final := combined
	if c.Rebase {
		final, err = Rebase(combined, c.Reference)
		if err != nil {
			return nil, fmt.Errorf("composite %s: %w", c.Name, err)
		}
	}

	return &Result{
		Name:       c.Name,
		Reference:  c.Reference,
		Weights:    c.Weights,
		Normalized: normalized,
		Combined:   combined,
		Index:      final,
		Rebased:    c.Rebase,
	}, nil
}

// Breakdown lists the per-factor contributions to one entity's combined
// value, in factor name order.
func (r *Result) Breakdown(ent Entity) ([]FactorResult, error) {
	if _, ok := r.Combined[ent]; !ok {
		return nil, &Error{Op: "breakdown", Kind: ErrUnknownEntity, Entity: ent}
	}
	factors := r.Weights.Factors()
	out := make([]FactorResult, 0, len(factors))
	for _, f := range factors {
		score := r.Normalized[f][ent]
		out = append(out, FactorResult{
			Name:     f,
			Score:    score,
			Weight:   r.Weights[f],
			Weighted: score * r.Weights[f],
		})
	}
	return out, nil
}

// Ranked returns the entities ordered by ascending index value, ties broken
// by entity code.
func (r *Result) Ranked() []Entity {
	out := r.Index.Entities()
	sort.SliceStable(out, func(i, j int) bool {
		return r.Index[out[i]] < r.Index[out[j]]
	})
	return out
}
