package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/angas/solarquote-go/config"
	"github.com/angas/solarquote-go/convert"
	"github.com/angas/solarquote-go/quote"
	"github.com/angas/solarquote-go/types/maybe"
)

type options struct {
	cfgPath    string
	usage      float64
	bill       float64
	mode       string
	rate       float64 // %
	term       int
	grant      float64 // %
	fixedGrant float64
	business   bool
	vat        float64
	years      int
	table      string
	policy     string
	output     string
}

func newRootCmd() *cobra.Command {
	var o options

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Calculate a solar and battery quote",
		Long: "Sizes, prices and finances a solar and battery system for a client's monthly usage\n" +
			"and bill, and projects the savings over the years.",
		Example:      "  quote --usage 1500 --bill 250 --mode loan --rate 5 --term 7\n  quote --bill 3100 --business --grant 30 -o yaml",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.cfgPath, "config", "c", "", "configuration file (default config/config.yaml)")
	f.Float64Var(&o.usage, "usage", 0, "monthly usage in kWh")
	f.Float64Var(&o.bill, "bill", 0, "monthly electricity bill in €")
	f.StringVar(&o.mode, "mode", "loan", "financing mode: loan or equity")
	f.Float64Var(&o.rate, "rate", 5, "loan interest rate in %")
	f.IntVar(&o.term, "term", 7, "loan term in years")
	f.Float64Var(&o.grant, "grant", 0, "grant in % of the cost, business clients")
	f.Float64Var(&o.fixedGrant, "fixed-grant", 0, "fixed grant in €, private clients")
	f.BoolVar(&o.business, "business", false, "business client")
	f.Float64Var(&o.vat, "vat", 0, "VAT multiplier (default from configuration)")
	f.IntVar(&o.years, "years", 0, "projection horizon in years (default from configuration)")
	f.StringVar(&o.table, "table", "", "pricing table (default from configuration)")
	f.StringVar(&o.policy, "policy", "", "sizing policy: flat, piecewise or segmented")
	f.StringVarP(&o.output, "output", "o", "text", "output format: text, json or yaml")

	return cmd
}

func run(w io.Writer, o options) error {
	write, ok := writers[o.output]
	if !ok {
		return fmt.Errorf("unknown output format %q", o.output)
	}

	cfg, err := engineConfig(o)
	if err != nil {
		return err
	}

	if err := o.checkFinite(); err != nil {
		return err
	}
	terms, err := o.terms()
	if err != nil {
		return err
	}

	q, err := quote.Calculate(quote.ProfileInput{
		MonthlyUsageKWh: maybe.Positive(o.usage),
		MonthlyBill:     maybe.Positive(o.bill),
	}, terms, cfg)
	if err != nil {
		return fmt.Errorf("calculating quote: %w", err)
	}

	return write(w, q)
}

func engineConfig(o options) (quote.Config, error) {
	appCfg, err := config.Load(o.cfgPath)
	if err != nil {
		return quote.Config{}, err
	}
	if o.table != "" {
		appCfg.Quote.Pricing.Table = o.table
	}
	if o.policy != "" {
		appCfg.Quote.Sizing.Policy = o.policy
	}
	if o.years > 0 {
		appCfg.Quote.Projection.Years = o.years
	}
	return appCfg.Quote.EngineConfig()
}

// pflag parses "NaN" and "Inf" as floats.
func (o options) checkFinite() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"usage", o.usage}, {"bill", o.bill}, {"rate", o.rate},
		{"grant", o.grant}, {"fixed-grant", o.fixedGrant}, {"vat", o.vat},
	} {
		if !convert.Finite(f.value) {
			return fmt.Errorf("--%s must be a finite number, got %g", f.name, f.value)
		}
	}
	return nil
}

func (o options) terms() (quote.FinancingTerms, error) {
	mode, err := quote.ParseFinancingMode(o.mode)
	if err != nil {
		return quote.FinancingTerms{}, err
	}
	return quote.FinancingTerms{
		Mode:             mode,
		InterestRate:     convert.Fraction(o.rate),
		TermYears:        o.term,
		GrantFraction:    convert.Fraction(o.grant),
		FixedGrantAmount: o.fixedGrant,
		IsBusiness:       o.business,
		VATMultiplier:    maybe.Positive(o.vat),
	}, nil
}
