package quote

import (
	"errors"
	"fmt"

	"github.com/angas/solarquote-go/types/maybe"
)

// Quote is the complete result for one client. Payback, IRR and BreakEvenYear are
// missing when they don't exist for the client's numbers.
type Quote struct {
	Profile       EnergyProfile        `json:"profile"`
	Financing     FinancingTerms       `json:"financing"`
	SizingPolicy  string               `json:"sizing_policy"`
	PricingTable  string               `json:"pricing_table"`
	Sizing        SystemSizing         `json:"sizing"`
	Cost          CostBreakdown        `json:"cost"`
	Loan          LoanSchedule         `json:"loan"`
	LoanYears     []LoanYear           `json:"loan_years,omitempty"`
	Savings       Savings              `json:"savings"`
	Payback       maybe.Maybe[float64] `json:"payback_years"`
	Projection    Projection           `json:"projection"`
	DiscountRate  float64              `json:"discount_rate"`
	NPV           float64              `json:"npv"`
	IRR           maybe.Maybe[float64] `json:"irr"`
	BreakEvenYear maybe.Maybe[int]     `json:"break_even_year"`

	paybackErr error
	irrErr     error
}

// PaybackYears returns ErrNoPayback when year-one savings are not positive.
func (q Quote) PaybackYears() (float64, error) {
	if v, ok := q.Payback.Get(); ok {
		return v, nil
	}
	if q.paybackErr != nil {
		return 0, q.paybackErr
	}
	return 0, ErrNoPayback
}

// InternalRate returns ErrNonConvergentIRR when the cash flows have no root.
func (q Quote) InternalRate() (float64, error) {
	if v, ok := q.IRR.Get(); ok {
		return v, nil
	}
	if q.irrErr != nil {
		return 0, q.irrErr
	}
	return 0, ErrNonConvergentIRR
}

// Warnings are the soft errors of the quote, for adapters that list them to the user.
func (q Quote) Warnings() []error {
	var warnings []error
	if _, err := q.PaybackYears(); err != nil {
		warnings = append(warnings, err)
	}
	if _, err := q.InternalRate(); err != nil {
		warnings = append(warnings, err)
	}
	return warnings
}

// Calculate runs the whole pipeline for one client. cfg must have been validated.
// Only missing input and invalid financing terms fail the call, a missing payback or
// IRR is reported on the quote.
func Calculate(profile ProfileInput, financing FinancingTerms, cfg Config) (Quote, error) {
	if err := financing.Validate(); err != nil {
		return Quote{}, err
	}
	if !financing.VATMultiplier.IsValid() {
		financing.VATMultiplier = maybe.Some(cfg.VATMultiplier)
	}

	p, err := Normalize(profile, cfg.Technical.FallbackUnitPrice)
	if err != nil {
		return Quote{}, err
	}

	q := Quote{
		Profile:      p,
		Financing:    financing,
		SizingPolicy: cfg.Sizing.Name(),
		PricingTable: cfg.Pricing.Name,
		DiscountRate: cfg.Projection.DiscountRate,
	}

	q.Sizing = cfg.Sizing.Size(p.MonthlyUsageKWh)
	q.Cost = Price(q.Sizing, cfg.Pricing, cfg.Grant, financing)
	q.Loan = Amortize(q.Cost.NetInvestment, financing)
	q.LoanYears = q.Loan.Schedule(q.Cost.NetInvestment, financing.InterestRate)
	q.Savings = YearOneSavings(q.Sizing, p, cfg.Technical)

	if payback, err := Payback(q.Cost.NetInvestment, q.Savings.Total); err != nil {
		q.paybackErr = err
	} else {
		q.Payback = maybe.Some(payback)
	}

	q.Projection = Project(ProjectionInput{
		AnnualBill:     p.AnnualBill(),
		YearOneSavings: q.Savings.Total,
		NetInvestment:  q.Cost.NetInvestment,
		Loan:           q.Loan,
		Terms:          financing,
	}, cfg.Technical, cfg.Projection.Years)

	q.NPV = q.Projection.NPV(cfg.Projection.DiscountRate)
	if irr, err := q.Projection.IRR(); err != nil {
		q.irrErr = err
	} else {
		q.IRR = maybe.Some(irr)
	}
	q.BreakEvenYear = q.Projection.BreakEvenYear()

	return q, nil
}

// Outcome classifies a Calculate result for logs and metrics.
func Outcome(q Quote, err error) string {
	switch {
	case err != nil:
		return ErrorCode(err)
	case !q.Payback.IsValid():
		return CodeNoPayback
	case !q.IRR.IsValid():
		return CodeNonConvergentIRR
	default:
		return "ok"
	}
}

// checkQuote guards the invariants every quote must hold.
func checkQuote(q Quote) error {
	c := q.Cost
	if c.GrantAmount < 0 || c.GrantAmount > c.GrossCost {
		return fmt.Errorf("grant %.2f outside [0, %.2f]", c.GrantAmount, c.GrossCost)
	}
	if c.NetInvestment < 0 {
		return errors.New("negative net investment")
	}
	if q.Sizing.SolarKW <= 0 {
		return errors.New("no solar capacity")
	}
	for _, v := range []struct {
		name  string
		value float64
	}{
		{"gross cost", c.GrossCost},
		{"net investment", c.NetInvestment},
		{"monthly payment", q.Loan.MonthlyPayment},
		{"year one savings", q.Savings.Total},
		{"NPV", q.NPV},
	} {
		if !finite(v.value) {
			return fmt.Errorf("%s is %g", v.name, v.value)
		}
	}
	return nil
}
