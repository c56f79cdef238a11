package quote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angas/solarquote-go/types/maybe"
)

var inf = math.Inf(1)

func standardPricing(t *testing.T) Pricing {
	t.Helper()
	p, ok := PricingPreset(PricingStandard)
	require.True(t, ok)
	return p
}

func TestPricingTierLookup(t *testing.T) {
	p := standardPricing(t)

	tests := []struct {
		solarKW float64
		index   int
		price   float64
	}{
		{1, 0, 1100},
		{14.99, 0, 1100},
		{15, 1, 900}, // Upper bound is exclusive
		{39.9, 1, 900},
		{40, 2, 750},
		{1000, 2, 750},
	}

	for _, tt := range tests {
		tier, i := p.Tier(tt.solarKW)
		if i != tt.index || tier.SolarPricePerKW != tt.price {
			t.Errorf("%.2f kW: got tier %d at %.0f, wanted tier %d at %.0f", tt.solarKW, i, tier.SolarPricePerKW, tt.index, tt.price)
		}
	}
}

func TestPricingPresetsAreValid(t *testing.T) {
	for _, name := range []string{PricingStandard, PricingSplit} {
		p, ok := PricingPreset(name)
		require.True(t, ok, name)
		assert.NoError(t, p.Validate(), name)
		assert.True(t, slicesNonIncreasing(p), name)
	}

	_, ok := PricingPreset("nope")
	assert.False(t, ok)
}

func slicesNonIncreasing(p Pricing) bool {
	for i := 1; i < len(p.Tiers); i++ {
		if p.Tiers[i].SolarPricePerKW > p.Tiers[i-1].SolarPricePerKW {
			return false
		}
	}
	return true
}

func TestPricingValidate(t *testing.T) {
	tests := []struct {
		name    string
		pricing Pricing
	}{
		{"empty", Pricing{}},
		{"last tier bounded", Pricing{Tiers: []PricingTier{{UpperBoundKW: 15, SolarPricePerKW: 1000}}}},
		{"unbounded in the middle", Pricing{Tiers: []PricingTier{
			{UpperBoundKW: inf, SolarPricePerKW: 1000},
			{UpperBoundKW: inf, SolarPricePerKW: 900},
		}}},
		{"bounds not increasing", Pricing{Tiers: []PricingTier{
			{UpperBoundKW: 40, SolarPricePerKW: 1000},
			{UpperBoundKW: 15, SolarPricePerKW: 900},
			{UpperBoundKW: inf, SolarPricePerKW: 800},
		}}},
		{"solar price rising", Pricing{Tiers: []PricingTier{
			{UpperBoundKW: 15, SolarPricePerKW: 900},
			{UpperBoundKW: inf, SolarPricePerKW: 1000},
		}}},
		{"battery price rising", Pricing{Tiers: []PricingTier{
			{UpperBoundKW: 15, SolarPricePerKW: 900, BatteryPricePerKWh: 200},
			{UpperBoundKW: inf, SolarPricePerKW: 800, BatteryPricePerKWh: 300},
		}}},
		{"negative price", Pricing{Tiers: []PricingTier{{UpperBoundKW: inf, SolarPricePerKW: -1}}}},
		{"battery tiers bounded", Pricing{
			Tiers:        []PricingTier{{UpperBoundKW: inf, SolarPricePerKW: 800}},
			BatteryTiers: []BatteryTier{{UpperBoundKWh: 20, PricePerKWh: 500}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.pricing.Validate())
		})
	}
}

func TestPriceBusiness(t *testing.T) {
	s := SystemSizing{SolarKW: 91.2, BatteryKWh: 136.8}
	terms := FinancingTerms{IsBusiness: true, GrantFraction: 0.3, VATMultiplier: maybe.Some(1.21)}

	c := Price(s, standardPricing(t), GrantPolicy{MaxPrivateFraction: 0.5, Basis: GrantAfterVAT}, terms)

	assert.Equal(t, 2, c.Tier)
	assert.InDelta(t, 68400.0, c.SolarCost, 1e-9)
	assert.InDelta(t, 33516.0, c.BatteryCost, 1e-9)
	assert.Equal(t, 1.0, c.VATMultiplier, "no VAT for business clients")
	assert.InDelta(t, 101916.0, c.GrossCost, 1e-9)
	assert.InDelta(t, 30574.8, c.GrantAmount, 1e-9)
	assert.InDelta(t, 71341.2, c.NetInvestment, 1e-9)
}

func TestPriceSplitBatteryTiers(t *testing.T) {
	p, _ := PricingPreset(PricingSplit)
	s := SystemSizing{SolarKW: 10, BatteryKWh: 30}

	c := Price(s, p, GrantPolicy{MaxPrivateFraction: 0.5}, FinancingTerms{IsBusiness: true})

	assert.Equal(t, 1100.0, c.SolarPricePerKW)
	assert.Equal(t, 380.0, c.BatteryPricePerKWh, "battery priced on its own kWh breakpoints")
	assert.InDelta(t, 10*1100.0+30*380.0, c.GrossCost, 1e-9)
}

func TestPrivateGrantCap(t *testing.T) {
	s := SystemSizing{SolarKW: 10, BatteryKWh: 15}
	p := standardPricing(t)
	base := 10*1100.0 + 15*500.0

	tests := []struct {
		name  string
		fixed float64
		basis GrantBasis
		want  float64
	}{
		{"small grant", 1000, GrantAfterVAT, 1000},
		{"capped at half gross", 1e6, GrantAfterVAT, base * 1.21 * 0.5},
		{"capped at half base", 1e6, GrantBeforeVAT, base * 0.5},
		{"no grant", 0, GrantAfterVAT, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := FinancingTerms{FixedGrantAmount: tt.fixed, VATMultiplier: maybe.Some(1.21)}
			c := Price(s, p, GrantPolicy{MaxPrivateFraction: 0.5, Basis: tt.basis}, terms)

			assert.InDelta(t, base*1.21, c.GrossCost, 1e-9)
			assert.InDelta(t, base*0.21, c.VATAmount, 1e-9)
			assert.InDelta(t, tt.want, c.GrantAmount, 1e-9)
			assert.LessOrEqual(t, c.GrantAmount, 0.5*c.GrossCost)
			assert.InDelta(t, c.GrossCost-c.GrantAmount, c.NetInvestment, 1e-9)
		})
	}
}

func TestGrantNeverExceedsGross(t *testing.T) {
	p := standardPricing(t)
	for _, fraction := range []float64{0, 0.1, 0.3, 0.6} {
		for _, kw := range []float64{1, 14, 15, 39, 40, 200} {
			s := SystemSizing{SolarKW: kw, BatteryKWh: kw * 1.5}
			c := Price(s, p, GrantPolicy{MaxPrivateFraction: 0.5}, FinancingTerms{IsBusiness: true, GrantFraction: fraction})
			if c.GrantAmount < 0 || c.GrantAmount > c.GrossCost || c.NetInvestment < 0 {
				t.Errorf("%.0f kW, fraction %.1f: grant %.2f, gross %.2f, net %.2f", kw, fraction, c.GrantAmount, c.GrossCost, c.NetInvestment)
			}
		}
	}
}
