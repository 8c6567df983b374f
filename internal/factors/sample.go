package factors

import (
	"github.com/MikeSquared-Agency/TariffIndex/internal/index"
)

// HS codes with sample tariff schedules.
const (
	HSDCMotors = "8501.31"
	HSFans     = "8414.59"
)

// SampleCollectionDate is the nominal collection date of the sample tables.
const SampleCollectionDate = "2025-06-30"

// Sample returns the built-in sample observations: primitive manufacturing
// inputs, directly observed manufacturing factors, export inputs and HS
// tariff schedules. Derived factors are not included; see Derivations.
func Sample() index.FactorTables {
	return index.FactorTables{
		CorporateTax: {
			"KR": 25.0, "JP": 30.62, "CN": 25.0, "IN": 25.17, "TH": 20.0,
			"VN": 20.0, "TW": 20.0, "EU": 21.7, "MX": 30.0,
		},
		InterestRate: {
			"KR": 3.5, "JP": 0.1, "CN": 3.45, "IN": 6.5, "TH": 2.5,
			"VN": 4.5, "TW": 1.875, "EU": 3.75, "MX": 11.0,
		},
		LandCost: {
			"KR": 12.0, "JP": 18.0, "CN": 8.5, "IN": 4.0, "TH": 5.0,
			"VN": 4.5, "TW": 10.0, "EU": 15.0, "MX": 6.0,
		},
		HourlyWage: {
			"KR": 25.0, "JP": 28.0, "CN": 8.5, "IN": 3.0, "TH": 5.5,
			"VN": 3.2, "TW": 15.0, "EU": 35.0, "MX": 6.0,
		},
		SocialBenefitsPct: {
			"KR": 25.0, "JP": 30.0, "CN": 40.0, "IN": 20.0, "TH": 15.0,
			"VN": 22.0, "TW": 20.0, "EU": 35.0, "MX": 30.0,
		},
		ElectricityCost: {
			"KR": 0.11, "JP": 0.17, "CN": 0.09, "IN": 0.10, "TH": 0.12,
			"VN": 0.08, "TW": 0.10, "EU": 0.18, "MX": 0.12,
		},
		WaterCost: {
			"KR": 0.70, "JP": 1.20, "CN": 0.50, "IN": 0.40, "TH": 0.45,
			"VN": 0.35, "TW": 0.65, "EU": 1.50, "MX": 0.60,
		},
		GasCost: {
			"KR": 12.0, "JP": 14.0, "CN": 9.0, "IN": 8.0, "TH": 10.0,
			"VN": 9.5, "TW": 11.0, "EU": 15.0, "MX": 7.0,
		},
		LogisticsPerformance: {
			"KR": 3.8, "JP": 4.0, "CN": 3.6, "IN": 3.2, "TH": 3.4,
			"VN": 3.3, "TW": 3.7, "EU": 4.1, "MX": 3.1,
		},
		LocalTransportCost: {
			"KR": 1.8, "JP": 2.2, "CN": 1.2, "IN": 0.9, "TH": 1.0,
			"VN": 0.8, "TW": 1.5, "EU": 2.5, "MX": 1.1,
		},
		FXVolatility: {
			"KR": 8.0, "JP": 7.5, "CN": 3.0, "IN": 6.0, "TH": 5.0,
			"VN": 4.5, "TW": 4.0, "EU": 6.5, "MX": 10.0,
		},
		InflationRate: {
			"KR": 2.5, "JP": 1.0, "CN": 2.8, "IN": 4.5, "TH": 2.0,
			"VN": 3.5, "TW": 1.8, "EU": 2.2, "MX": 4.0,
		},
		FreightCost: {
			"KR": 4500, "JP": 4800, "CN": 5200, "IN": 6500, "TH": 6000,
			"VN": 5800, "TW": 4600, "EU": 5500, "MX": 3200,
		},
		TariffRate: {
			"KR": 0, "JP": 27.5, "CN": 52.5, "IN": 27.5, "TH": 27.5,
			"VN": 27.5, "TW": 27.5, "EU": 27.5, "MX": 0,
		},
		// CN's base rate already carries the 25% special tariff, so no
		// surcharge is layered on top.
		TradeBenefit: {
			"KR": 100, "JP": 0, "CN": 0, "IN": 0, "TH": 0,
			"VN": 0, "TW": 0, "EU": 100, "MX": 100,
		},
		HSTariff(HSDCMotors): {
			"KR": 0, "JP": 2.8, "CN": 27.5, "IN": 2.5, "TH": 2.5,
			"VN": 2.5, "TW": 2.8, "EU": 0, "MX": 0,
		},
		HSTariff(HSFans): {
			"KR": 0, "JP": 2.3, "CN": 27.3, "IN": 2.3, "TH": 2.3,
			"VN": 2.3, "TW": 2.3, "EU": 0, "MX": 0,
		},
	}
}
