// Package entity holds the fixed reference set of tracked countries and
// regions. A Registry is built once at startup and shared read-only.
package entity

import (
	"fmt"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// Info describes one tracked entity.
type Info struct {
	Code index.Entity `json:"code" yaml:"code"`
	Name string       `json:"name" yaml:"name"`
}

// Registry is an immutable, ordered set of entities.
type Registry struct {
	order  []index.Entity
	byCode map[index.Entity]Info
}

// Defaults returns the sample entity set.
func Defaults() []Info {
	return []Info{
		{Code: "KR", Name: "South Korea"},
		{Code: "JP", Name: "Japan"},
		{Code: "CN", Name: "China"},
		{Code: "IN", Name: "India"},
		{Code: "TH", Name: "Thailand"},
		{Code: "VN", Name: "Vietnam"},
		{Code: "TW", Name: "Taiwan"},
		{Code: "EU", Name: "European Union"},
		{Code: "MX", Name: "Mexico"},
	}
}

// NewRegistry builds a Registry, rejecting empty and duplicate codes.
func NewRegistry(infos []Info) (*Registry, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("entity registry: no entities")
	}
	r := &Registry{
		order:  make([]index.Entity, 0, len(infos)),
		byCode: make(map[index.Entity]Info, len(infos)),
	}
	for _, in := range infos {
		if in.Code == "" {
			return nil, fmt.Errorf("entity registry: empty code")
		}
		if _, dup := r.byCode[in.Code]; dup {
			return nil, fmt.Errorf("entity registry: duplicate code %s", in.Code)
		}
		if in.Name == "" {
			in.Name = string(in.Code)
		}
		r.order = append(r.order, in.Code)
		r.byCode[in.Code] = in
	}
	return r, nil
}

// MustDefault returns a Registry over Defaults.
func MustDefault() *Registry {
	r, err := NewRegistry(Defaults())
	if err != nil {
		panic(err)
	}
	return r
}

// Codes returns the entity codes in registration order.
func (r *Registry) Codes() []index.Entity {
	out := make([]index.Entity, len(r.order))
	copy(out, r.order)
	return out
}

// All returns every entity in registration order.
func (r *Registry) All() []Info {
	out := make([]Info, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, r.byCode[c])
	}
	return out
}

// Lookup returns the entity with the given code.
func (r *Registry) Lookup(code index.Entity) (Info, bool) {
	in, ok := r.byCode[code]
	return in, ok
}

// Name returns the display name for code, or the code itself when unknown.
func (r *Registry) Name(code index.Entity) string {
	if in, ok := r.byCode[code]; ok {
		return in.Name
	}
	return string(code)
}

// Len returns the number of entities.
func (r *Registry) Len() int { return len(r.order) }

// Check verifies that every entity in t is registered and that t covers the
// whole registry.
func (r *Registry) Check(factor index.Factor, t index.Table) error {
	for _, e := range t.Entities() {
		if _, ok := r.byCode[e]; !ok {
			return &index.Error{Op: "check table", Kind: index.ErrUnknownEntity, Entity: e, Factor: factor}
		}
	}
	for _, c := range r.order {
		if _, ok := t[c]; !ok {
			return &index.Error{Op: "check table", Kind: index.ErrIncompleteFactorCoverage, Entity: c, Factor: factor}
		}
	}
	return nil
}

// Restrict returns a copy of t limited to registered entities.
func (r *Registry) Restrict(t index.Table) index.Table {
	out := make(index.Table, len(r.order))
	for _, c := range r.order {
		if v, ok := t[c]; ok {
			out[c] = v
		}
	}
	return out
}
