// Package factors names the raw factors the service knows about, derives
// composite sub-indices from primitive observations, and carries the sample
// tables used when no live data source is configured.
package factors

import (
	"strings"

	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// Manufacturing cost factors.
const (
	CorporateTax    index.Factor = "corporate_tax"
	InterestRate    index.Factor = "interest_rate"
	LaborCost       index.Factor = "labor_cost"
	LandCost        index.Factor = "land_cost"
	UtilityCost     index.Factor = "utility_cost"
	LogisticsCost   index.Factor = "logistics_cost"
	FXInflationRisk index.Factor = "fx_inflation_risk"
)

// Primitive observations that feed derived manufacturing factors.
const (
	HourlyWage           index.Factor = "hourly_wage"
	SocialBenefitsPct    index.Factor = "social_benefits_pct"
	ElectricityCost      index.Factor = "electricity_cost"
	WaterCost            index.Factor = "water_cost"
	GasCost              index.Factor = "gas_cost"
	LogisticsPerformance index.Factor = "logistics_performance"
	LocalTransportCost   index.Factor = "local_transport_cost"
	FXVolatility         index.Factor = "fx_volatility"
	InflationRate        index.Factor = "inflation_rate"
)

// Export price factors.
const (
	FreightCost  index.Factor = "freight_cost"
	TariffRate   index.Factor = "tariff_rate"
	TradeBenefit index.Factor = "trade_benefit"
)

// Components of the export price composite.
const (
	ExportManufacturing index.Factor = "manufacturing"
	ExportFreight       index.Factor = "freight"
	ExportTariff        index.Factor = "tariff"
)

const hsTariffPrefix = "hs_tariff_"

// Manufacturing lists the seven manufacturing cost factors.
func Manufacturing() []index.Factor {
	return []index.Factor{
		CorporateTax, InterestRate, LaborCost, LandCost,
		UtilityCost, LogisticsCost, FXInflationRisk,
	}
}

// HSTariff returns the factor holding tariff rates for one HS code.
func HSTariff(hsCode string) index.Factor {
	return index.Factor(hsTariffPrefix + hsCode)
}

// HSCode extracts the HS code from an HS tariff factor name.
func HSCode(f index.Factor) (string, bool) {
	s := string(f)
	if !strings.HasPrefix(s, hsTariffPrefix) {
		return "", false
	}
	return strings.TrimPrefix(s, hsTariffPrefix), true
}

// Raw lists every directly observed factor: primitive manufacturing inputs,
// the manufacturing factors that are observed rather than derived, export
// inputs, and the tariff schedule of each HS code given.
func Raw(hsCodes ...string) []index.Factor {
	out := []index.Factor{
		CorporateTax, InterestRate, LandCost,
		HourlyWage, SocialBenefitsPct,
		ElectricityCost, WaterCost, GasCost,
		LogisticsPerformance, LocalTransportCost,
		FXVolatility, InflationRate,
		FreightCost, TariffRate, TradeBenefit,
	}
	for _, code := range hsCodes {
		out = append(out, HSTariff(code))
	}
	return out
}
