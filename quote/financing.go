package quote

import (
	"fmt"
	"math"
	"strings"

	"github.com/angas/solarquote-go/calc"
	"github.com/angas/solarquote-go/types/maybe"
)

type FinancingMode int

const (
	ModeLoan   FinancingMode = iota // Net investment is paid back in monthly installments
	ModeEquity                      // Net investment is paid up front
	modeCount
)

// Grant fractions above this are never offered to business clients.
const MaxGrantFraction = 0.6

// Limits on loan terms and VAT.
const (
	MaxTermYears     = 40
	MaxInterestRate  = 1.0
	MaxVATMultiplier = 2.0
)

func (m FinancingMode) String() string {
	switch m {
	case ModeLoan:
		return "loan"
	case ModeEquity:
		return "equity"
	default:
		return "unknown"
	}
}

func (m FinancingMode) IsValid() bool {
	return m >= ModeLoan && m < modeCount
}

func ParseFinancingMode(s string) (FinancingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loan", "":
		return ModeLoan, nil
	case "equity", "cash", "self":
		return ModeEquity, nil
	default:
		return 0, fmt.Errorf("%w: unknown financing mode %q", ErrInvalidFinancingTerm, s)
	}
}

func (m FinancingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *FinancingMode) UnmarshalText(text []byte) error {
	mode, err := ParseFinancingMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// FinancingTerms describe how the client pays. InterestRate and GrantFraction are
// fractions (0.05 = 5%). InterestRate and TermYears are ignored for equity.
// A missing VATMultiplier is taken from the configuration.
type FinancingTerms struct {
	Mode             FinancingMode        `json:"mode"`
	InterestRate     float64              `json:"interest_rate"`
	TermYears        int                  `json:"term_years"`
	GrantFraction    float64              `json:"grant_fraction"`     // Business clients
	FixedGrantAmount float64              `json:"fixed_grant_amount"` // Private clients
	IsBusiness       bool                 `json:"is_business"`
	VATMultiplier    maybe.Maybe[float64] `json:"vat_multiplier"`
}

// Validate rejects terms the financing engine can't work with.
func (f FinancingTerms) Validate() error {
	if !f.Mode.IsValid() {
		return fmt.Errorf("%w: unknown financing mode %d", ErrInvalidFinancingTerm, f.Mode)
	}
	vat, hasVAT := f.VATMultiplier.Get()
	if !finite(f.InterestRate) || !finite(f.GrantFraction) || !finite(f.FixedGrantAmount) || (hasVAT && !finite(vat)) {
		return fmt.Errorf("%w: rate, grant and VAT must be finite numbers", ErrInvalidFinancingTerm)
	}
	if f.Mode == ModeLoan {
		if f.TermYears < 1 || f.TermYears > MaxTermYears {
			return fmt.Errorf("%w: loan term must be within [1, %d] years, got %d", ErrInvalidFinancingTerm, MaxTermYears, f.TermYears)
		}
		if f.InterestRate < 0 || f.InterestRate > MaxInterestRate {
			return fmt.Errorf("%w: interest rate must be within [0, %g], got %g", ErrInvalidFinancingTerm, MaxInterestRate, f.InterestRate)
		}
	}
	if f.GrantFraction < 0 || f.GrantFraction > MaxGrantFraction {
		return fmt.Errorf("%w: grant fraction must be within [0, %g], got %g", ErrInvalidFinancingTerm, MaxGrantFraction, f.GrantFraction)
	}
	if f.FixedGrantAmount < 0 {
		return fmt.Errorf("%w: fixed grant amount must be >= 0, got %g", ErrInvalidFinancingTerm, f.FixedGrantAmount)
	}
	if hasVAT && (vat < 1 || vat > MaxVATMultiplier) {
		return fmt.Errorf("%w: VAT multiplier must be within [1, %g], got %g", ErrInvalidFinancingTerm, MaxVATMultiplier, vat)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LoanSchedule is all zero for equity financing.
type LoanSchedule struct {
	MonthlyPayment float64 `json:"monthly_payment"`
	AnnualPayment  float64 `json:"annual_payment"`
	TermMonths     int     `json:"term_months"`
	TotalPaid      float64 `json:"total_paid"`
	TotalInterest  float64 `json:"total_interest"`
}

// Amortize computes the fixed monthly payment for the net investment.
// Terms must have been validated.
func Amortize(netInvestment float64, terms FinancingTerms) LoanSchedule {
	if terms.Mode != ModeLoan || netInvestment <= 0 {
		return LoanSchedule{}
	}

	n := terms.TermYears * 12
	monthly := calc.AnnuityPayment(netInvestment, terms.InterestRate/12, n)
	total := monthly * float64(n)

	return LoanSchedule{
		MonthlyPayment: monthly,
		AnnualPayment:  monthly * 12,
		TermMonths:     n,
		TotalPaid:      total,
		TotalInterest:  total - netInvestment,
	}
}

// LoanYear is one year of the repayment plan.
type LoanYear struct {
	Year      int     `json:"year"`
	Interest  float64 `json:"interest"`
	Principal float64 `json:"principal"`
	Balance   float64 `json:"balance"` // Remaining at year end
}

// Schedule splits the payments of each loan year into interest and principal.
func (l LoanSchedule) Schedule(netInvestment, interestRate float64) []LoanYear {
	if l.TermMonths == 0 {
		return nil
	}

	r := interestRate / 12
	balance := netInvestment
	years := make([]LoanYear, 0, l.TermMonths/12)
	current := LoanYear{Year: 1}

	for month := 1; month <= l.TermMonths; month++ {
		interest := balance * r
		principal := l.MonthlyPayment - interest
		balance -= principal
		current.Interest += interest
		current.Principal += principal

		if month%12 == 0 || month == l.TermMonths {
			current.Balance = max(balance, 0)
			years = append(years, current)
			current = LoanYear{Year: current.Year + 1}
		}
	}

	return years
}
