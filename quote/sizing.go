package quote

import (
	"errors"
	"fmt"
)

type SystemSizing struct {
	SolarKW    float64 `json:"solar_kw"`
	BatteryKWh float64 `json:"battery_kwh"`
}

// SizingPolicy maps monthly usage (kWh, > 0) to a system size. Implementations are
// monotone non-decreasing in usage and never return zero solar capacity.
type SizingPolicy interface {
	Name() string
	Size(monthlyUsageKWh float64) SystemSizing
	Validate() error
}

const (
	PolicyFlat      = "flat"
	PolicyPiecewise = "piecewise"
	PolicySegmented = "segmented"
)

// FlatRule covers a fixed share of the yearly usage with solar.
type FlatRule struct {
	Coverage      float64 // Share of yearly usage produced by solar, 0.4 = 40%
	YieldKWhPerKW float64 // Yearly production per installed kW
	MinKW         float64 // Smallest system ever proposed
	BatteryRatio  float64 // Battery kWh per solar kW
}

func (f FlatRule) Name() string { return PolicyFlat }

func (f FlatRule) Size(monthlyUsageKWh float64) SystemSizing {
	solar := max(f.MinKW, monthlyUsageKWh*12*f.Coverage/f.YieldKWhPerKW)
	return withBattery(solar, f.BatteryRatio)
}

func (f FlatRule) Validate() error {
	if f.Coverage <= 0 {
		return errors.New("flat sizing coverage must be > 0")
	}
	if f.YieldKWhPerKW <= 0 {
		return errors.New("flat sizing yield must be > 0")
	}
	if f.MinKW <= 0 {
		return errors.New("flat sizing min kW must be > 0")
	}
	return validateRatio(f.BatteryRatio)
}

// PiecewiseLinear returns FloorKW up to FloorUsageKWh, then follows the line through
// (FloorUsageKWh, FloorKW) and (AnchorUsageKWh, AnchorKW) without an upper cap.
type PiecewiseLinear struct {
	FloorUsageKWh  float64
	FloorKW        float64
	AnchorUsageKWh float64
	AnchorKW       float64
	BatteryRatio   float64
}

func (p PiecewiseLinear) Name() string { return PolicyPiecewise }

func (p PiecewiseLinear) Size(monthlyUsageKWh float64) SystemSizing {
	if monthlyUsageKWh <= p.FloorUsageKWh {
		return withBattery(p.FloorKW, p.BatteryRatio)
	}
	slope := (p.AnchorKW - p.FloorKW) / (p.AnchorUsageKWh - p.FloorUsageKWh)
	return withBattery(p.FloorKW+(monthlyUsageKWh-p.FloorUsageKWh)*slope, p.BatteryRatio)
}

func (p PiecewiseLinear) Validate() error {
	if p.FloorKW <= 0 {
		return errors.New("piecewise sizing floor kW must be > 0")
	}
	if p.FloorUsageKWh < 0 || p.AnchorUsageKWh <= p.FloorUsageKWh {
		return fmt.Errorf("piecewise sizing anchor usage %.0f must be above floor usage %.0f", p.AnchorUsageKWh, p.FloorUsageKWh)
	}
	if p.AnchorKW < p.FloorKW {
		return fmt.Errorf("piecewise sizing anchor kW %.1f is below floor kW %.1f", p.AnchorKW, p.FloorKW)
	}
	return validateRatio(p.BatteryRatio)
}

// Segmented proposes a small bundle for low usage, a large one for high usage and
// blends linearly in between.
type Segmented struct {
	LowUsageKWh  float64
	LowKW        float64
	HighUsageKWh float64
	HighKW       float64
	BatteryRatio float64
}

func (s Segmented) Name() string { return PolicySegmented }

func (s Segmented) Size(monthlyUsageKWh float64) SystemSizing {
	switch {
	case monthlyUsageKWh <= s.LowUsageKWh:
		return withBattery(s.LowKW, s.BatteryRatio)
	case monthlyUsageKWh >= s.HighUsageKWh:
		return withBattery(s.HighKW, s.BatteryRatio)
	default:
		share := (monthlyUsageKWh - s.LowUsageKWh) / (s.HighUsageKWh - s.LowUsageKWh)
		return withBattery(s.LowKW+share*(s.HighKW-s.LowKW), s.BatteryRatio)
	}
}

func (s Segmented) Validate() error {
	if s.LowKW <= 0 {
		return errors.New("segmented sizing low kW must be > 0")
	}
	if s.LowUsageKWh < 0 || s.HighUsageKWh <= s.LowUsageKWh {
		return fmt.Errorf("segmented sizing high usage %.0f must be above low usage %.0f", s.HighUsageKWh, s.LowUsageKWh)
	}
	if s.HighKW < s.LowKW {
		return fmt.Errorf("segmented sizing high kW %.1f is below low kW %.1f", s.HighKW, s.LowKW)
	}
	return validateRatio(s.BatteryRatio)
}

func withBattery(solarKW, ratio float64) SystemSizing {
	return SystemSizing{SolarKW: solarKW, BatteryKWh: solarKW * ratio}
}

func validateRatio(ratio float64) error {
	if ratio < 0 {
		return fmt.Errorf("battery ratio %.2f must be >= 0", ratio)
	}
	return nil
}
