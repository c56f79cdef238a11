package www

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/angas/solarquote-go/convert"
	"github.com/angas/solarquote-go/quote"
	"github.com/angas/solarquote-go/types/maybe"
)

// ErrInvalidRequest is a request that couldn't be read at all.
var ErrInvalidRequest = errors.New("invalid request")

const CodeInvalidRequest = "invalid_request"

// QuoteForm holds the quote form as the visitor typed it. Rates and the grant are
// percentages, zero usage or bill means not given.
type QuoteForm struct {
	MonthlyUsageKWh float64
	MonthlyBill     float64
	Mode            string
	InterestRate    float64 // %
	TermYears       int
	Grant           float64 // % of the cost, business clients
	FixedGrant      float64 // €, private clients
	Business        bool
	VAT             float64 // Multiplier, zero for the configured default
}

func DefaultQuoteForm() QuoteForm {
	return QuoteForm{
		Mode:         quote.ModeLoan.String(),
		InterestRate: 5,
		TermYears:    7,
		Grant:        30,
	}
}

// QuoteRequest is the JSON body of POST /quote.
type QuoteRequest struct {
	Profile   quote.ProfileInput   `json:"profile"`
	Financing quote.FinancingTerms `json:"financing"`
}

// ParseQuoteForm reads the form fields from v. Missing fields keep their defaults.
func ParseQuoteForm(v url.Values) (QuoteForm, error) {
	f := DefaultQuoteForm()
	var errs []error

	number := func(key string, dst *float64) {
		s := strings.TrimSpace(v.Get(key))
		if s == "" {
			return
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil || !convert.Finite(n) {
			errs = append(errs, fmt.Errorf("%s: not a number: %q", key, s))
			return
		}
		*dst = n
	}

	number("monthly_usage", &f.MonthlyUsageKWh)
	number("monthly_bill", &f.MonthlyBill)
	number("interest_rate", &f.InterestRate)
	number("grant", &f.Grant)
	number("fixed_grant", &f.FixedGrant)
	number("vat", &f.VAT)

	if s := strings.TrimSpace(v.Get("term_years")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("term_years: not a whole number: %q", s))
		} else {
			f.TermYears = n
		}
	}
	if v.Has("mode") {
		f.Mode = v.Get("mode")
	}
	f.Business = checked(v.Get("business"))

	if len(errs) > 0 {
		return f, fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(errs...))
	}
	return f, nil
}

func checked(s string) bool {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// Values is the inverse of ParseQuoteForm.
func (f QuoteForm) Values() url.Values {
	v := url.Values{}
	fmtFloat := func(n float64) string { return strconv.FormatFloat(n, 'f', -1, 64) }
	if f.MonthlyUsageKWh > 0 {
		v.Set("monthly_usage", fmtFloat(f.MonthlyUsageKWh))
	}
	if f.MonthlyBill > 0 {
		v.Set("monthly_bill", fmtFloat(f.MonthlyBill))
	}
	v.Set("mode", f.Mode)
	v.Set("interest_rate", fmtFloat(f.InterestRate))
	v.Set("term_years", strconv.Itoa(f.TermYears))
	v.Set("grant", fmtFloat(f.Grant))
	v.Set("fixed_grant", fmtFloat(f.FixedGrant))
	if f.Business {
		v.Set("business", "on")
	}
	if f.VAT > 0 {
		v.Set("vat", fmtFloat(f.VAT))
	}
	return v
}

// Request converts the form into calculator input.
func (f QuoteForm) Request() (QuoteRequest, error) {
	mode, err := quote.ParseFinancingMode(f.Mode)
	if err != nil {
		return QuoteRequest{}, err
	}
	return QuoteRequest{
		Profile: quote.ProfileInput{
			MonthlyUsageKWh: maybe.Positive(f.MonthlyUsageKWh),
			MonthlyBill:     maybe.Positive(f.MonthlyBill),
		},
		Financing: quote.FinancingTerms{
			Mode:             mode,
			InterestRate:     convert.Fraction(f.InterestRate),
			TermYears:        f.TermYears,
			GrantFraction:    convert.Fraction(f.Grant),
			FixedGrantAmount: f.FixedGrant,
			IsBusiness:       f.Business,
			VATMultiplier:    maybe.Positive(f.VAT),
		},
	}, nil
}

// decodeMessage reads a websocket message. Form posts over the socket arrive as a flat
// JSON object of field values, anything that isn't a string or number is skipped.
func decodeMessage(msg []byte) (url.Values, error) {
	var fields map[string]any
	if err := json.Unmarshal(msg, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	v := url.Values{}
	for key, value := range fields {
		switch value := value.(type) {
		case string:
			v.Set(key, value)
		case float64:
			v.Set(key, strconv.FormatFloat(value, 'f', -1, 64))
		case bool:
			v.Set(key, strconv.FormatBool(value))
		}
	}
	return v, nil
}

func errorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return CodeInvalidRequest
	}
	return quote.ErrorCode(err)
}

func isClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || quote.IsInputError(err)
}
