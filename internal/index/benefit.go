package index

import "math"

// EffectiveRate applies a signed trade-benefit percentage to a base tariff
// rate. A positive benefit is a discount (100 removes the tariff entirely);
// a negative benefit is a punitive surcharge that amplifies the rate.
//
//	effective = base * (1 - benefit/100)
func EffectiveRate(base, benefitPct float64) float64 {
	return base * (1 - benefitPct/100)
}

// ApplyTradeBenefit computes the effective tariff rate for every entity in
// base. Entities without a benefit entry get no adjustment.
func ApplyTradeBenefit(base, benefitPct Table) (Table, error) {
	out := make(Table, len(base))
	for _, e := range base.Entities() {
		rate := base[e]
		if math.IsNaN(rate) || math.IsInf(rate, 0) {
			return nil, &Error{Op: "trade benefit", Kind: ErrNonFiniteValue, Entity: e, Factor: "tariff_rate"}
		}
		b := benefitPct[e]
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, &Error{Op: "trade benefit", Kind: ErrNonFiniteValue, Entity: e, Factor: "trade_benefit"}
		}
		out[e] = EffectiveRate(rate, b)
	}
	return out, nil
}

// TariffMultiplier turns percentage rates into price multipliers
// (1 + rate/100). Unlike the rates themselves the multipliers are never zero
// for non-negative rates, so they can be normalized against a duty-free
// reference.
func TariffMultiplier(rates Table) Table {
	out := make(Table, len(rates))
	for e, r := range rates {
		out[e] = 1 + r/100
	}
	return out
}
