package quote

import (
	"errors"
	"fmt"
	"math"

	"github.com/angas/solarquote-go/slice"
)

// PricingTier applies to systems with solar capacity below UpperBoundKW (exclusive).
type PricingTier struct {
	UpperBoundKW       float64 `json:"upper_bound_kw"`
	SolarPricePerKW    float64 `json:"solar_price_per_kw"`
	BatteryPricePerKWh float64 `json:"battery_price_per_kwh"`
}

// BatteryTier prices battery capacity on its own breakpoints (kWh, exclusive).
type BatteryTier struct {
	UpperBoundKWh float64 `json:"upper_bound_kwh"`
	PricePerKWh   float64 `json:"price_per_kwh"`
}

// Pricing is an ordered tier table. When BatteryTiers is empty the battery price
// comes from the solar tier.
type Pricing struct {
	Name         string
	Tiers        []PricingTier
	BatteryTiers []BatteryTier
}

// GrantBasis decides whether the grant is computed on the VAT inclusive cost or on
// the cost before VAT.
type GrantBasis string

const (
	GrantAfterVAT  GrantBasis = "after_vat"
	GrantBeforeVAT GrantBasis = "before_vat"
)

type GrantPolicy struct {
	MaxPrivateFraction float64    // Private grants never exceed this share of the cost, 0.5
	Basis              GrantBasis // Cost the grant is computed from
}

type CostBreakdown struct {
	Tier               int     `json:"tier"` // Index of the applied solar tier
	SolarPricePerKW    float64 `json:"solar_price_per_kw"`
	BatteryPricePerKWh float64 `json:"battery_price_per_kwh"`
	SolarCost          float64 `json:"solar_cost"`
	BatteryCost        float64 `json:"battery_cost"`
	BaseCost           float64 `json:"base_cost"` // Before VAT
	VATMultiplier      float64 `json:"vat_multiplier"`
	VATAmount          float64 `json:"vat_amount"`
	GrossCost          float64 `json:"gross_cost"`
	GrantAmount        float64 `json:"grant_amount"`
	NetInvestment      float64 `json:"net_investment"`
}

// Tier returns the first tier whose bound is above solarKW, the last tier otherwise.
func (p Pricing) Tier(solarKW float64) (PricingTier, int) {
	tier, i := slice.FindIndex(p.Tiers, func(t PricingTier) bool { return solarKW < t.UpperBoundKW })
	if i < 0 {
		i = len(p.Tiers) - 1
		tier = p.Tiers[i]
	}
	return tier, i
}

func (p Pricing) batteryPrice(batteryKWh float64, tier PricingTier) float64 {
	if len(p.BatteryTiers) == 0 {
		return tier.BatteryPricePerKWh
	}
	bt, i := slice.FindIndex(p.BatteryTiers, func(t BatteryTier) bool { return batteryKWh < t.UpperBoundKWh })
	if i < 0 {
		bt = p.BatteryTiers[len(p.BatteryTiers)-1]
	}
	return bt.PricePerKWh
}

// Validate checks that the tiers are contiguous, only the last one is unbounded and
// that unit prices never rise with capacity.
func (p Pricing) Validate() error {
	if len(p.Tiers) == 0 {
		return errors.New("pricing needs at least one tier")
	}
	bounds := slice.Map(p.Tiers, func(t PricingTier) float64 { return t.UpperBoundKW })
	if err := validateBounds(bounds); err != nil {
		return fmt.Errorf("solar tiers: %w", err)
	}
	if !slice.All(p.Tiers, func(t PricingTier) bool { return t.SolarPricePerKW >= 0 && t.BatteryPricePerKWh >= 0 }) {
		return errors.New("solar tiers: prices must be >= 0")
	}
	if !slice.AllPairs(p.Tiers, func(prev, next PricingTier) bool {
		return next.SolarPricePerKW <= prev.SolarPricePerKW && next.BatteryPricePerKWh <= prev.BatteryPricePerKWh
	}) {
		return errors.New("solar tiers: prices must not increase with capacity")
	}

	if len(p.BatteryTiers) == 0 {
		return nil
	}
	bounds = slice.Map(p.BatteryTiers, func(t BatteryTier) float64 { return t.UpperBoundKWh })
	if err := validateBounds(bounds); err != nil {
		return fmt.Errorf("battery tiers: %w", err)
	}
	if !slice.All(p.BatteryTiers, func(t BatteryTier) bool { return t.PricePerKWh >= 0 }) {
		return errors.New("battery tiers: prices must be >= 0")
	}
	if !slice.AllPairs(p.BatteryTiers, func(prev, next BatteryTier) bool { return next.PricePerKWh <= prev.PricePerKWh }) {
		return errors.New("battery tiers: prices must not increase with capacity")
	}
	return nil
}

func validateBounds(bounds []float64) error {
	last := len(bounds) - 1
	if !math.IsInf(bounds[last], 1) {
		return errors.New("last tier must be unbounded")
	}
	for i, b := range bounds[:last] {
		if math.IsInf(b, 1) || b <= 0 {
			return fmt.Errorf("tier %d: bound must be a positive number", i)
		}
	}
	if !slice.AllPairs(bounds, func(prev, next float64) bool { return next > prev }) {
		return errors.New("tier bounds must be strictly increasing")
	}
	return nil
}

// Price turns a system size into its cost, VAT and grant for the given terms.
func Price(s SystemSizing, p Pricing, g GrantPolicy, terms FinancingTerms) CostBreakdown {
	tier, i := p.Tier(s.SolarKW)
	batteryPrice := p.batteryPrice(s.BatteryKWh, tier)

	c := CostBreakdown{
		Tier:               i,
		SolarPricePerKW:    tier.SolarPricePerKW,
		BatteryPricePerKWh: batteryPrice,
		SolarCost:          s.SolarKW * tier.SolarPricePerKW,
		BatteryCost:        s.BatteryKWh * batteryPrice,
		VATMultiplier:      1.0,
	}
	c.BaseCost = c.SolarCost + c.BatteryCost

	if !terms.IsBusiness {
		c.VATMultiplier = terms.VATMultiplier.ValueOrDefault(1.0)
	}
	c.GrossCost = c.BaseCost * c.VATMultiplier
	c.VATAmount = c.GrossCost - c.BaseCost

	grantBase := c.GrossCost
	if g.Basis == GrantBeforeVAT {
		grantBase = c.BaseCost
	}

	if terms.IsBusiness {
		c.GrantAmount = grantBase * terms.GrantFraction
	} else {
		c.GrantAmount = min(terms.FixedGrantAmount, grantBase*g.MaxPrivateFraction)
	}
	c.GrantAmount = min(max(c.GrantAmount, 0), c.GrossCost)
	c.NetInvestment = c.GrossCost - c.GrantAmount

	return c
}
