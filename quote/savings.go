package quote

import (
	"fmt"

	"github.com/angas/solarquote-go/calc"
)

type Savings struct {
	SolarProductionKWh float64 `json:"solar_production_kwh"`
	Solar              float64 `json:"solar"`
	Battery            float64 `json:"battery"`
	Total              float64 `json:"total"`
	Monthly            float64 `json:"monthly"`
}

// YearOneSavings values the first year of solar production at the client's unit price
// plus the avoided grid fee, and the battery at its arbitrage value.
func YearOneSavings(s SystemSizing, profile EnergyProfile, t Technical) Savings {
	production := s.SolarKW * t.SolarYieldKWhPerKW
	solar := calc.SelfConsumptionValue(production, profile.UnitPrice(), t.GridFeeSave)
	battery := calc.ArbitrageValue(s.BatteryKWh, t.BatteryCyclesPerYear, t.ArbitrageSpread, t.RoundTripEfficiency)
	total := solar + battery

	return Savings{
		SolarProductionKWh: production,
		Solar:              solar,
		Battery:            battery,
		Total:              total,
		Monthly:            total / 12,
	}
}

// Payback is the number of years of year-one savings needed to cover the investment.
func Payback(netInvestment, yearOneSavings float64) (float64, error) {
	if yearOneSavings <= 0 {
		return 0, fmt.Errorf("%w: year one savings %.2f", ErrNoPayback, yearOneSavings)
	}
	years := netInvestment / yearOneSavings
	if !finite(years) {
		return 0, fmt.Errorf("%w: %.2f over %.2f is not a number of years", ErrNoPayback, netInvestment, yearOneSavings)
	}
	return years, nil
}
