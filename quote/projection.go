package quote

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/angas/solarquote-go/calc"
	"github.com/angas/solarquote-go/types/maybe"
)

// YearFlow is one row of the projection. Year 0 only carries the starting point,
// year y >= 1 is the y:th year after installation and compounds inflation and
// degradation y-1 times, so year 1 shows the year-one figures.
type YearFlow struct {
	Year                    int     `json:"year"`
	AnnualBill              float64 `json:"annual_bill"`
	AnnualSaving            float64 `json:"annual_saving"`
	LoanCost                float64 `json:"loan_cost"`
	CumulativeWithoutSystem float64 `json:"cumulative_without_system"`
	CumulativeWithSystem    float64 `json:"cumulative_with_system"`
}

// NetCashFlow is what the system earns the client in this year.
func (y YearFlow) NetCashFlow() float64 {
	return y.AnnualSaving - y.LoanCost
}

type Projection struct {
	Years     []YearFlow `json:"years"`
	CashFlows []float64  `json:"cash_flows"` // -net investment followed by each year's net cash flow
}

type ProjectionInput struct {
	AnnualBill     float64
	YearOneSavings float64
	NetInvestment  float64
	Loan           LoanSchedule
	Terms          FinancingTerms
}

// Project folds the yearly bills, savings and loan payments over the horizon into the
// running "without system" and "with system" totals.
func Project(in ProjectionInput, t Technical, years int) Projection {
	bills := make([]float64, years)
	savings := make([]float64, years)
	loanCosts := make([]float64, years)
	withCosts := make([]float64, years)
	netFlows := make([]float64, years+1)

	netFlows[0] = -in.NetInvestment
	for k := range years {
		inflation := calc.Growth(t.Inflation, k)
		bills[k] = in.AnnualBill * inflation
		savings[k] = in.YearOneSavings * inflation * calc.Growth(-t.Degradation, k)
		if in.Terms.Mode == ModeLoan && k < in.Terms.TermYears {
			loanCosts[k] = in.Loan.AnnualPayment
		}
		withCosts[k] = bills[k] - savings[k] + loanCosts[k]
		netFlows[k+1] = savings[k] - loanCosts[k]
	}

	seed := 0.0
	if in.Terms.Mode == ModeEquity {
		seed = in.NetInvestment
	}

	cumWithout := floats.CumSum(make([]float64, years), bills)
	cumWith := floats.CumSum(make([]float64, years), withCosts)
	floats.AddConst(seed, cumWith)

	rows := make([]YearFlow, years+1)
	rows[0] = YearFlow{Year: 0, CumulativeWithSystem: seed}
	for k := range years {
		rows[k+1] = YearFlow{
			Year:                    k + 1,
			AnnualBill:              bills[k],
			AnnualSaving:            savings[k],
			LoanCost:                loanCosts[k],
			CumulativeWithoutSystem: cumWithout[k],
			CumulativeWithSystem:    cumWith[k],
		}
	}

	return Projection{Years: rows, CashFlows: netFlows}
}

// BreakEvenYear is the first year where having the system has cost no more than not
// having it.
func (p Projection) BreakEvenYear() maybe.Maybe[int] {
	for _, y := range p.Years[1:] {
		if y.CumulativeWithSystem <= y.CumulativeWithoutSystem {
			return maybe.Some(y.Year)
		}
	}
	return maybe.None[int]()
}

func (p Projection) NPV(discountRate float64) float64 {
	return calc.NPV(discountRate, p.CashFlows)
}

func (p Projection) IRR() (float64, error) {
	irr, err := calc.IRR(p.CashFlows)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNonConvergentIRR, err)
	}
	return irr, nil
}
