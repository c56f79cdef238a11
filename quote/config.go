package quote

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Technical holds the flat physical and economic assumptions.
type Technical struct {
	FallbackUnitPrice    float64 // €/kWh used when usage or bill is missing
	SolarYieldKWhPerKW   float64 // Yearly production per installed kW
	GridFeeSave          float64 // Variable grid fee avoided per self-consumed kWh
	BatteryCyclesPerYear float64
	ArbitrageSpread      float64 // €/kWh between charging and discharging
	RoundTripEfficiency  float64 // 0..1
	Degradation          float64 // Yearly loss of production, 0.005 = 0.5%
	Inflation            float64 // Yearly increase of energy prices
}

type ProjectionSettings struct {
	Years        int     // Horizon of the projection
	DiscountRate float64 // For the net present value
}

// Config is everything a calculation depends on. It is validated once when loaded and
// never modified afterwards.
type Config struct {
	Technical     Technical
	Sizing        SizingPolicy
	Pricing       Pricing
	Grant         GrantPolicy
	Projection    ProjectionSettings
	VATMultiplier float64 // Used when the request doesn't carry one
}

const (
	maxProjectionYears      = 50
	maxPrivateGrantFraction = 0.5
)

func (c Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) validate() error {
	t := c.Technical
	if t.FallbackUnitPrice <= 0 {
		return errors.New("fallback unit price must be > 0")
	}
	if t.SolarYieldKWhPerKW < 0 || t.GridFeeSave < 0 || t.BatteryCyclesPerYear < 0 || t.ArbitrageSpread < 0 {
		return errors.New("yield, grid fee, battery cycles and arbitrage spread must be >= 0")
	}
	if t.RoundTripEfficiency < 0 || t.RoundTripEfficiency > 1 {
		return fmt.Errorf("round trip efficiency %g must be within [0, 1]", t.RoundTripEfficiency)
	}
	if t.Degradation < 0 || t.Degradation >= 1 {
		return fmt.Errorf("degradation %g must be within [0, 1)", t.Degradation)
	}
	if t.Inflation <= -1 {
		return fmt.Errorf("inflation %g must be above -1", t.Inflation)
	}

	if c.Sizing == nil {
		return errors.New("no sizing policy")
	}
	if err := c.Sizing.Validate(); err != nil {
		return err
	}
	if err := c.Pricing.Validate(); err != nil {
		return fmt.Errorf("pricing %q: %w", c.Pricing.Name, err)
	}

	if c.Grant.MaxPrivateFraction < 0 || c.Grant.MaxPrivateFraction > maxPrivateGrantFraction {
		return fmt.Errorf("max private grant fraction %g must be within [0, %g]", c.Grant.MaxPrivateFraction, maxPrivateGrantFraction)
	}
	if c.Grant.Basis != GrantAfterVAT && c.Grant.Basis != GrantBeforeVAT {
		return fmt.Errorf("unknown grant basis %q", c.Grant.Basis)
	}

	if c.Projection.Years < 1 || c.Projection.Years > maxProjectionYears {
		return fmt.Errorf("projection years %d must be within [1, %d]", c.Projection.Years, maxProjectionYears)
	}
	if c.Projection.DiscountRate <= -1 {
		return fmt.Errorf("discount rate %g must be above -1", c.Projection.DiscountRate)
	}
	if c.VATMultiplier < 1 {
		return fmt.Errorf("VAT multiplier %g must be >= 1", c.VATMultiplier)
	}
	return nil
}

// clone copies the tier slices so the stored config can't be changed through the
// caller's slices.
func (c Config) clone() Config {
	c.Pricing.Tiers = slices.Clone(c.Pricing.Tiers)
	c.Pricing.BatteryTiers = slices.Clone(c.Pricing.BatteryTiers)
	return c
}

// DefaultTechnical are the standard sales assumptions plus a modest
// inflation and panel degradation.
func DefaultTechnical() Technical {
	return Technical{
		FallbackUnitPrice:    0.16,
		SolarYieldKWhPerKW:   1000,
		GridFeeSave:          0.045,
		BatteryCyclesPerYear: 280,
		ArbitrageSpread:      0.08,
		RoundTripEfficiency:  0.85,
		Degradation:          0.005,
		Inflation:            0.03,
	}
}

// SizingPreset returns one of the named sizing policies with its default parameters.
func SizingPreset(name string, t Technical) (SizingPolicy, bool) {
	switch name {
	case PolicyFlat:
		return FlatRule{Coverage: 0.4, YieldKWhPerKW: t.SolarYieldKWhPerKW, MinKW: 1, BatteryRatio: 1.5}, true
	case PolicyPiecewise:
		return PiecewiseLinear{FloorUsageKWh: 600, FloorKW: 6, AnchorUsageKWh: 9000, AnchorKW: 50, BatteryRatio: 1.4}, true
	case PolicySegmented:
		return Segmented{LowUsageKWh: 500, LowKW: 5, HighUsageKWh: 5000, HighKW: 40, BatteryRatio: 2.0}, true
	default:
		return nil, false
	}
}

const (
	PricingStandard = "standard"
	PricingSplit    = "split"
)

// PricingPreset returns one of the built in tier tables. "standard" prices battery
// capacity in the solar tier, "split" prices it on its own kWh breakpoints.
func PricingPreset(name string) (Pricing, bool) {
	switch name {
	case PricingStandard:
		return Pricing{
			Name: PricingStandard,
			Tiers: []PricingTier{
				{UpperBoundKW: 15, SolarPricePerKW: 1100, BatteryPricePerKWh: 500},
				{UpperBoundKW: 40, SolarPricePerKW: 900, BatteryPricePerKWh: 380},
				{UpperBoundKW: math.Inf(1), SolarPricePerKW: 750, BatteryPricePerKWh: 245},
			},
		}, true
	case PricingSplit:
		return Pricing{
			Name: PricingSplit,
			Tiers: []PricingTier{
				{UpperBoundKW: 15, SolarPricePerKW: 1100},
				{UpperBoundKW: 40, SolarPricePerKW: 900},
				{UpperBoundKW: math.Inf(1), SolarPricePerKW: 750},
			},
			BatteryTiers: []BatteryTier{
				{UpperBoundKWh: 20, PricePerKWh: 500},
				{UpperBoundKWh: 100, PricePerKWh: 380},
				{UpperBoundKWh: math.Inf(1), PricePerKWh: 245},
			},
		}, true
	default:
		return Pricing{}, false
	}
}

func DefaultConfig() Config {
	t := DefaultTechnical()
	sizing, _ := SizingPreset(PolicyFlat, t)
	pricing, _ := PricingPreset(PricingStandard)
	return Config{
		Technical:     t,
		Sizing:        sizing,
		Pricing:       pricing,
		Grant:         GrantPolicy{MaxPrivateFraction: 0.5, Basis: GrantAfterVAT},
		Projection:    ProjectionSettings{Years: 25, DiscountRate: 0.05},
		VATMultiplier: 1.21,
	}
}
