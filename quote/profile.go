package quote

import (
	"fmt"

	"github.com/angas/solarquote-go/types/maybe"
)

// Largest monthly usage and bill a quote is made for.
const (
	MaxMonthlyUsageKWh = 1e7
	MaxMonthlyBill     = 1e8
)

// ProfileInput is what the client told us. Either value may be missing, zero,
// negative and non finite values count as missing.
type ProfileInput struct {
	MonthlyUsageKWh maybe.Maybe[float64] `json:"monthly_usage_kwh"`
	MonthlyBill     maybe.Maybe[float64] `json:"monthly_bill"`
}

// EnergyProfile has both values strictly positive.
type EnergyProfile struct {
	MonthlyUsageKWh float64 `json:"monthly_usage_kwh"`
	MonthlyBill     float64 `json:"monthly_bill"`
	UsageDerived    bool    `json:"usage_derived"` // Usage was computed from the bill
	BillDerived     bool    `json:"bill_derived"`  // Bill was computed from the usage
}

// UnitPrice is the client's effective price per kWh.
func (p EnergyProfile) UnitPrice() float64 {
	return p.MonthlyBill / p.MonthlyUsageKWh
}

func (p EnergyProfile) AnnualUsageKWh() float64 {
	return p.MonthlyUsageKWh * 12
}

func (p EnergyProfile) AnnualBill() float64 {
	return p.MonthlyBill * 12
}

// Normalize fills in a missing usage or bill using the fallback unit price.
func Normalize(in ProfileInput, fallbackUnitPrice float64) (EnergyProfile, error) {
	usage := positive(in.MonthlyUsageKWh)
	bill := positive(in.MonthlyBill)
	if v, ok := usage.Get(); ok && v > MaxMonthlyUsageKWh {
		return EnergyProfile{}, fmt.Errorf("%w: monthly usage %g above %g kWh", ErrInsufficientInput, v, MaxMonthlyUsageKWh)
	}
	if v, ok := bill.Get(); ok && v > MaxMonthlyBill {
		return EnergyProfile{}, fmt.Errorf("%w: monthly bill %g above %g", ErrInsufficientInput, v, MaxMonthlyBill)
	}

	switch {
	case usage.IsValid() && bill.IsValid():
		return EnergyProfile{MonthlyUsageKWh: usage.Value(), MonthlyBill: bill.Value()}, nil
	case usage.IsValid():
		return EnergyProfile{
			MonthlyUsageKWh: usage.Value(),
			MonthlyBill:     usage.Value() * fallbackUnitPrice,
			BillDerived:     true,
		}, nil
	case bill.IsValid():
		derived := bill.Value() / fallbackUnitPrice
		if derived > MaxMonthlyUsageKWh {
			return EnergyProfile{}, fmt.Errorf("%w: bill %g gives usage above %g kWh", ErrInsufficientInput, bill.Value(), MaxMonthlyUsageKWh)
		}
		return EnergyProfile{
			MonthlyUsageKWh: derived,
			MonthlyBill:     bill.Value(),
			UsageDerived:    true,
		}, nil
	default:
		return EnergyProfile{}, fmt.Errorf("%w: both usage and bill are missing", ErrInsufficientInput)
	}
}

func positive(m maybe.Maybe[float64]) maybe.Maybe[float64] {
	if v, ok := m.Get(); ok {
		if !finite(v) {
			return maybe.None[float64]()
		}
		return maybe.Positive(v)
	}
	return m
}
