package quote

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatInput(mode FinancingMode) ProjectionInput {
	return ProjectionInput{
		AnnualBill:     1200,
		YearOneSavings: 600,
		NetInvestment:  3000,
		Loan:           LoanSchedule{AnnualPayment: 500},
		Terms:          FinancingTerms{Mode: mode, TermYears: 2},
	}
}

func TestProjectLoan(t *testing.T) {
	p := Project(flatInput(ModeLoan), Technical{}, 5)

	require.Len(t, p.Years, 6)
	assert.Equal(t, YearFlow{}, p.Years[0], "loan financed projection starts at zero")

	want := []struct {
		loan, without, with float64
	}{
		{500, 1200, 1100},
		{500, 2400, 2200},
		{0, 3600, 2800},
		{0, 4800, 3400},
		{0, 6000, 4000},
	}
	for i, w := range want {
		y := p.Years[i+1]
		assert.Equal(t, i+1, y.Year)
		assert.Equal(t, w.loan, y.LoanCost, "year %d", y.Year)
		assert.Equal(t, w.without, y.CumulativeWithoutSystem, "year %d", y.Year)
		assert.Equal(t, w.with, y.CumulativeWithSystem, "year %d", y.Year)
	}

	assert.Equal(t, []float64{-3000, 100, 100, 600, 600, 600}, p.CashFlows)
	assert.Equal(t, 1, p.BreakEvenYear().Value())
}

func TestProjectEquity(t *testing.T) {
	p := Project(flatInput(ModeEquity), Technical{}, 5)

	assert.Equal(t, 3000.0, p.Years[0].CumulativeWithSystem, "equity seeds with the investment")
	for _, y := range p.Years {
		assert.Equal(t, 0.0, y.LoanCost)
	}
	assert.Equal(t, 6000.0, p.Years[5].CumulativeWithSystem)
	assert.Equal(t, 6000.0, p.Years[5].CumulativeWithoutSystem)

	be, ok := p.BreakEvenYear().Get()
	require.True(t, ok)
	assert.Equal(t, 5, be)

	p = Project(flatInput(ModeEquity), Technical{}, 4)
	assert.False(t, p.BreakEvenYear().IsValid())
}

func TestProjectCompounding(t *testing.T) {
	p := Project(flatInput(ModeEquity), Technical{Inflation: 0.1, Degradation: 0.01}, 3)

	// Year one shows the year-one figures, compounding starts in year two.
	assert.Equal(t, 1200.0, p.Years[1].AnnualBill)
	assert.Equal(t, 600.0, p.Years[1].AnnualSaving)
	assert.InDelta(t, 1320.0, p.Years[2].AnnualBill, 1e-9)
	assert.InDelta(t, 600*1.1*0.99, p.Years[2].AnnualSaving, 1e-9)
	assert.InDelta(t, 1200*1.21, p.Years[3].AnnualBill, 1e-9)
	assert.InDelta(t, 600*1.21*0.99*0.99, p.Years[3].AnnualSaving, 1e-9)
	assert.InDelta(t, 1200+1320+1452, p.Years[3].CumulativeWithoutSystem, 1e-9)
}

func TestProjectionNPVAndIRR(t *testing.T) {
	p := Projection{CashFlows: []float64{-100, 110}}
	assert.InDelta(t, 0.0, p.NPV(0.1), 1e-9)

	irr, err := p.IRR()
	require.NoError(t, err)
	assert.InDelta(t, 0.1, irr, 1e-8)

	_, err = Projection{CashFlows: []float64{-100, -10, -10}}.IRR()
	assert.ErrorIs(t, err, ErrNonConvergentIRR)
}

func TestPayback(t *testing.T) {
	years, err := Payback(71341.2, 21588.672)
	require.NoError(t, err)
	assert.InDelta(t, 3.30457, years, 1e-5)

	for _, savings := range []float64{0, -1, math.NaN()} {
		_, err := Payback(1000, savings)
		assert.ErrorIs(t, err, ErrNoPayback)
	}

	_, err = Payback(math.Inf(1), 1000)
	assert.ErrorIs(t, err, ErrNoPayback)
	_, err = Payback(1e308, 1e-10)
	assert.ErrorIs(t, err, ErrNoPayback)
}
