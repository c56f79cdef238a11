package calc

// SelfConsumptionValue is what kWh produced and used on site saves: the energy price
// plus the variable grid fee that is no longer paid.
func SelfConsumptionValue(kWh, unitPrice, gridFeeSave float64) float64 {
	return kWh * (unitPrice + gridFeeSave)
}

// ArbitrageValue is the yearly value of charging a battery of the given capacity at low
// prices and discharging it at high prices.
func ArbitrageValue(capacityKWh, cyclesPerYear, spread, roundTripEfficiency float64) float64 {
	return capacityKWh * cyclesPerYear * spread * roundTripEfficiency
}
