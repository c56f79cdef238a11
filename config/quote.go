package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/viper"

	"github.com/angas/solarquote-go/quote"
)

type AppConfigTechnical struct {
	FallbackUnitPrice    float64 `mapstructure:"fallback_unit_price"`     // €/kWh when usage or bill is missing
	SolarYieldKWhPerKW   float64 `mapstructure:"solar_yield_kwh_per_kw"`  // Yearly production per installed kW
	GridFeeSave          float64 `mapstructure:"grid_fee_save"`           // €/kWh of grid fee avoided
	BatteryCyclesPerYear float64 `mapstructure:"battery_cycles_per_year"` // Full cycles per year
	ArbitrageSpread      float64 `mapstructure:"arbitrage_spread"`        // €/kWh between cheap and expensive hours
	RoundTripEfficiency  float64 `mapstructure:"round_trip_efficiency"`   // 0..1
	Degradation          float64 `mapstructure:"degradation"`             // Yearly loss of production
	Inflation            float64 `mapstructure:"inflation"`               // Yearly increase of energy prices
}

type AppConfigFlatSizing struct {
	Coverage     float64 `mapstructure:"coverage"`
	MinKW        float64 `mapstructure:"min_kw"`
	BatteryRatio float64 `mapstructure:"battery_ratio"`
}

type AppConfigPiecewiseSizing struct {
	FloorUsageKWh  float64 `mapstructure:"floor_usage_kwh"`
	FloorKW        float64 `mapstructure:"floor_kw"`
	AnchorUsageKWh float64 `mapstructure:"anchor_usage_kwh"`
	AnchorKW       float64 `mapstructure:"anchor_kw"`
	BatteryRatio   float64 `mapstructure:"battery_ratio"`
}

type AppConfigSegmentedSizing struct {
	LowUsageKWh  float64 `mapstructure:"low_usage_kwh"`
	LowKW        float64 `mapstructure:"low_kw"`
	HighUsageKWh float64 `mapstructure:"high_usage_kwh"`
	HighKW       float64 `mapstructure:"high_kw"`
	BatteryRatio float64 `mapstructure:"battery_ratio"`
}

type AppConfigSizing struct {
	Policy    string                   `mapstructure:"policy"` // "flat", "piecewise" or "segmented"
	Flat      AppConfigFlatSizing      `mapstructure:"flat"`
	Piecewise AppConfigPiecewiseSizing `mapstructure:"piecewise"`
	Segmented AppConfigSegmentedSizing `mapstructure:"segmented"`
}

type AppConfigTier struct {
	// Exclusive upper bound in kW, the last tier has none (or .inf)
	UpperBoundKW       *float64 `mapstructure:"upper_bound_kw"`
	SolarPricePerKW    float64  `mapstructure:"solar_price_per_kw"`
	BatteryPricePerKWh float64  `mapstructure:"battery_price_per_kwh"`
}

type AppConfigBatteryTier struct {
	UpperBoundKWh *float64 `mapstructure:"upper_bound_kwh"`
	PricePerKWh   float64  `mapstructure:"price_per_kwh"`
}

type AppConfigPricingTable struct {
	Tiers        []AppConfigTier        `mapstructure:"tiers"`
	BatteryTiers []AppConfigBatteryTier `mapstructure:"battery_tiers"`
}

type AppConfigPricing struct {
	// Selected table, either one of Tables or a built in one ("standard", "split")
	Table  string                           `mapstructure:"table"`
	Tables map[string]AppConfigPricingTable `mapstructure:"tables"`
}

type AppConfigGrant struct {
	MaxPrivateFraction float64 `mapstructure:"max_private_fraction"`
	Basis              string  `mapstructure:"basis"` // "after_vat" or "before_vat"
}

type AppConfigProjection struct {
	Years        int     `mapstructure:"years"`
	DiscountRate float64 `mapstructure:"discount_rate"`
}

type AppConfigQuote struct {
	Technical     AppConfigTechnical  `mapstructure:"technical"`
	Sizing        AppConfigSizing     `mapstructure:"sizing"`
	Pricing       AppConfigPricing    `mapstructure:"pricing"`
	Grant         AppConfigGrant      `mapstructure:"grant"`
	Projection    AppConfigProjection `mapstructure:"projection"`
	VATMultiplier float64             `mapstructure:"vat_multiplier"`
}

func setQuoteDefaults(v *viper.Viper) {
	d := quote.DefaultConfig()
	t := d.Technical
	v.SetDefault("quote.technical.fallback_unit_price", t.FallbackUnitPrice)
	v.SetDefault("quote.technical.solar_yield_kwh_per_kw", t.SolarYieldKWhPerKW)
	v.SetDefault("quote.technical.grid_fee_save", t.GridFeeSave)
	v.SetDefault("quote.technical.battery_cycles_per_year", t.BatteryCyclesPerYear)
	v.SetDefault("quote.technical.arbitrage_spread", t.ArbitrageSpread)
	v.SetDefault("quote.technical.round_trip_efficiency", t.RoundTripEfficiency)
	v.SetDefault("quote.technical.degradation", t.Degradation)
	v.SetDefault("quote.technical.inflation", t.Inflation)

	v.SetDefault("quote.sizing.policy", quote.PolicyFlat)
	if flat, ok := mustPreset(quote.PolicyFlat, t).(quote.FlatRule); ok {
		v.SetDefault("quote.sizing.flat.coverage", flat.Coverage)
		v.SetDefault("quote.sizing.flat.min_kw", flat.MinKW)
		v.SetDefault("quote.sizing.flat.battery_ratio", flat.BatteryRatio)
	}
	if pw, ok := mustPreset(quote.PolicyPiecewise, t).(quote.PiecewiseLinear); ok {
		v.SetDefault("quote.sizing.piecewise.floor_usage_kwh", pw.FloorUsageKWh)
		v.SetDefault("quote.sizing.piecewise.floor_kw", pw.FloorKW)
		v.SetDefault("quote.sizing.piecewise.anchor_usage_kwh", pw.AnchorUsageKWh)
		v.SetDefault("quote.sizing.piecewise.anchor_kw", pw.AnchorKW)
		v.SetDefault("quote.sizing.piecewise.battery_ratio", pw.BatteryRatio)
	}
	if seg, ok := mustPreset(quote.PolicySegmented, t).(quote.Segmented); ok {
		v.SetDefault("quote.sizing.segmented.low_usage_kwh", seg.LowUsageKWh)
		v.SetDefault("quote.sizing.segmented.low_kw", seg.LowKW)
		v.SetDefault("quote.sizing.segmented.high_usage_kwh", seg.HighUsageKWh)
		v.SetDefault("quote.sizing.segmented.high_kw", seg.HighKW)
		v.SetDefault("quote.sizing.segmented.battery_ratio", seg.BatteryRatio)
	}

	v.SetDefault("quote.pricing.table", d.Pricing.Name)
	v.SetDefault("quote.grant.max_private_fraction", d.Grant.MaxPrivateFraction)
	v.SetDefault("quote.grant.basis", string(d.Grant.Basis))
	v.SetDefault("quote.projection.years", d.Projection.Years)
	v.SetDefault("quote.projection.discount_rate", d.Projection.DiscountRate)
	v.SetDefault("quote.vat_multiplier", d.VATMultiplier)
}

func mustPreset(name string, t quote.Technical) quote.SizingPolicy {
	p, ok := quote.SizingPreset(name, t)
	if !ok {
		panic(fmt.Sprintf("no sizing preset %q", name))
	}
	return p
}

// TableNames lists the configured and built in pricing tables.
func (q AppConfigQuote) TableNames() []string {
	names := []string{quote.PricingStandard, quote.PricingSplit}
	for name := range q.Pricing.Tables {
		if _, builtIn := quote.PricingPreset(name); !builtIn {
			names = append(names, name)
		}
	}
	sort.Strings(names[2:])
	return names
}

// EngineConfig turns the quote section into a validated engine configuration.
func (q AppConfigQuote) EngineConfig() (quote.Config, error) {
	t := quote.Technical{
		FallbackUnitPrice:    q.Technical.FallbackUnitPrice,
		SolarYieldKWhPerKW:   q.Technical.SolarYieldKWhPerKW,
		GridFeeSave:          q.Technical.GridFeeSave,
		BatteryCyclesPerYear: q.Technical.BatteryCyclesPerYear,
		ArbitrageSpread:      q.Technical.ArbitrageSpread,
		RoundTripEfficiency:  q.Technical.RoundTripEfficiency,
		Degradation:          q.Technical.Degradation,
		Inflation:            q.Technical.Inflation,
	}

	sizing, err := q.Sizing.policy(t)
	if err != nil {
		return quote.Config{}, err
	}

	pricing, err := q.Pricing.pricing()
	if err != nil {
		return quote.Config{}, err
	}

	c := quote.Config{
		Technical: t,
		Sizing:    sizing,
		Pricing:   pricing,
		Grant: quote.GrantPolicy{
			MaxPrivateFraction: q.Grant.MaxPrivateFraction,
			Basis:              quote.GrantBasis(q.Grant.Basis),
		},
		Projection: quote.ProjectionSettings{
			Years:        q.Projection.Years,
			DiscountRate: q.Projection.DiscountRate,
		},
		VATMultiplier: q.VATMultiplier,
	}
	if err := c.Validate(); err != nil {
		return quote.Config{}, err
	}
	return c, nil
}

func (s AppConfigSizing) policy(t quote.Technical) (quote.SizingPolicy, error) {
	switch s.Policy {
	case quote.PolicyFlat:
		return quote.FlatRule{
			Coverage:      s.Flat.Coverage,
			YieldKWhPerKW: t.SolarYieldKWhPerKW,
			MinKW:         s.Flat.MinKW,
			BatteryRatio:  s.Flat.BatteryRatio,
		}, nil
	case quote.PolicyPiecewise:
		return quote.PiecewiseLinear{
			FloorUsageKWh:  s.Piecewise.FloorUsageKWh,
			FloorKW:        s.Piecewise.FloorKW,
			AnchorUsageKWh: s.Piecewise.AnchorUsageKWh,
			AnchorKW:       s.Piecewise.AnchorKW,
			BatteryRatio:   s.Piecewise.BatteryRatio,
		}, nil
	case quote.PolicySegmented:
		return quote.Segmented{
			LowUsageKWh:  s.Segmented.LowUsageKWh,
			LowKW:        s.Segmented.LowKW,
			HighUsageKWh: s.Segmented.HighUsageKWh,
			HighKW:       s.Segmented.HighKW,
			BatteryRatio: s.Segmented.BatteryRatio,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown sizing policy %q", quote.ErrInvalidConfig, s.Policy)
	}
}

func (p AppConfigPricing) pricing() (quote.Pricing, error) {
	if table, ok := p.Tables[p.Table]; ok {
		return table.pricing(p.Table), nil
	}
	if builtIn, ok := quote.PricingPreset(p.Table); ok {
		return builtIn, nil
	}
	return quote.Pricing{}, fmt.Errorf("%w: unknown pricing table %q", quote.ErrInvalidConfig, p.Table)
}

func (t AppConfigPricingTable) pricing(name string) quote.Pricing {
	p := quote.Pricing{Name: name}
	for _, tier := range t.Tiers {
		p.Tiers = append(p.Tiers, quote.PricingTier{
			UpperBoundKW:       bound(tier.UpperBoundKW),
			SolarPricePerKW:    tier.SolarPricePerKW,
			BatteryPricePerKWh: tier.BatteryPricePerKWh,
		})
	}
	for _, tier := range t.BatteryTiers {
		p.BatteryTiers = append(p.BatteryTiers, quote.BatteryTier{
			UpperBoundKWh: bound(tier.UpperBoundKWh),
			PricePerKWh:   tier.PricePerKWh,
		})
	}
	return p
}

func bound(b *float64) float64 {
	if b == nil {
		return math.Inf(1)
	}
	return *b
}
