package quote

import "errors"

var (
	ErrInsufficientInput    = errors.New("insufficient input, monthly usage or bill is required")
	ErrInvalidFinancingTerm = errors.New("invalid financing term")
	ErrNoPayback            = errors.New("no payback, projected savings are not positive")
	ErrNonConvergentIRR     = errors.New("internal rate of return does not converge")
	ErrInvalidConfig        = errors.New("invalid quote configuration")
)

// Error codes handed to adapters, stable across wording changes of the errors above.
const (
	CodeInsufficientInput    = "insufficient_input"
	CodeInvalidFinancingTerm = "invalid_financing_term"
	CodeNoPayback            = "no_payback"
	CodeNonConvergentIRR     = "non_convergent_irr"
	CodeInvalidConfig        = "invalid_config"
	CodeInternal             = "internal"
)

func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientInput):
		return CodeInsufficientInput
	case errors.Is(err, ErrInvalidFinancingTerm):
		return CodeInvalidFinancingTerm
	case errors.Is(err, ErrNoPayback):
		return CodeNoPayback
	case errors.Is(err, ErrNonConvergentIRR):
		return CodeNonConvergentIRR
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	default:
		return CodeInternal
	}
}

// IsInputError reports whether err was caused by the request rather than the system.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInsufficientInput) || errors.Is(err, ErrInvalidFinancingTerm)
}
