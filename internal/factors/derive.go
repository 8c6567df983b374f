package factors

import (
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// Derivation computes one factor from other factor tables.
type Derivation struct {
	Inputs  []index.Factor
	Compute func(in []index.Table) (index.Table, error)
}

// Derivations returns the derived manufacturing factors keyed by name.
func Derivations() map[index.Factor]Derivation {
	return map[index.Factor]Derivation{
		LaborCost: {
			Inputs:  []index.Factor{HourlyWage, SocialBenefitsPct},
			Compute: func(in []index.Table) (index.Table, error) { return TotalLaborCost(in[0], in[1]) },
		},
		UtilityCost: {
			Inputs:  []index.Factor{ElectricityCost, WaterCost, GasCost},
			Compute: func(in []index.Table) (index.Table, error) { return UtilityIndex(in[0], in[1], in[2]) },
		},
		LogisticsCost: {
			Inputs:  []index.Factor{LogisticsPerformance, LocalTransportCost},
			Compute: func(in []index.Table) (index.Table, error) { return LogisticsIndex(in[0], in[1]) },
		},
		FXInflationRisk: {
			Inputs:  []index.Factor{FXVolatility, InflationRate},
			Compute: func(in []index.Table) (index.Table, error) { return FXInflationIndex(in[0], in[1]) },
		},
	}
}

// TotalLaborCost is the hourly wage loaded with social insurance and
// benefits: wage * (1 + benefits%/100).
func TotalLaborCost(wage, socialPct index.Table) (index.Table, error) {
	return zip(LaborCost, []index.Factor{HourlyWage, SocialBenefitsPct}, []index.Table{wage, socialPct},
		func(v []float64) (float64, error) {
			return v[0] * (1 + v[1]/100), nil
		})
}

// UtilityIndex weights electricity 60%, water 10% and gas 30%, scaled by 100.
func UtilityIndex(electricity, water, gas index.Table) (index.Table, error) {
	return zip(UtilityCost, []index.Factor{ElectricityCost, WaterCost, GasCost}, []index.Table{electricity, water, gas},
		func(v []float64) (float64, error) {
			return (v[0]*0.6 + v[1]*0.1 + v[2]*0.3) * 100, nil
		})
}

// LogisticsIndex combines the inverse logistics performance index (LPI,
// higher is better) at 60% with local transport cost per km at 40%, scaled
// by 20.
func LogisticsIndex(lpi, transport index.Table) (index.Table, error) {
	return zip(LogisticsCost, []index.Factor{LogisticsPerformance, LocalTransportCost}, []index.Table{lpi, transport},
		func(v []float64) (float64, error) {
			if v[0] == 0 {
				return 0, index.ErrDivisionByZero
			}
			return ((5/v[0])*0.6 + v[1]*0.4) * 20, nil
		})
}

// FXInflationIndex averages FX volatility and inflation, scaled by 2.
func FXInflationIndex(volatility, inflation index.Table) (index.Table, error) {
	return zip(FXInflationRisk, []index.Factor{FXVolatility, InflationRate}, []index.Table{volatility, inflation},
		func(v []float64) (float64, error) {
			return (v[0]*0.5 + v[1]*0.5) * 2, nil
		})
}

// zip applies fn entity by entity. Every input must cover the entities of
// the first input.
func zip(out index.Factor, names []index.Factor, tables []index.Table, fn func([]float64) (float64, error)) (index.Table, error) {
	result := make(index.Table, len(tables[0]))
	vals := make([]float64, len(tables))
	for _, e := range tables[0].Entities() {
		for i, t := range tables {
			v, ok := t[e]
			if !ok {
				return nil, &index.Error{Op: "derive " + string(out), Kind: index.ErrIncompleteFactorCoverage, Entity: e, Factor: names[i]}
			}
			vals[i] = v
		}
		v, err := fn(vals)
		if err != nil {
			return nil, &index.Error{Op: "derive " + string(out), Kind: err, Entity: e}
		}
		result[e] = v
	}
	return result, nil
}
