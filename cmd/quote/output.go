package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/angas/solarquote-go/convert"
	"github.com/angas/solarquote-go/quote"
)

var writers = map[string]func(io.Writer, quote.Quote) error{
	"text": writeText,
	"json": writeJSON,
	"yaml": writeYAML,
}

func writeJSON(w io.Writer, q quote.Quote) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(q)
}

// writeYAML goes through JSON so the keys and missing values match the JSON output.
func writeYAML(w io.Writer, q quote.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func euro(v float64) string {
	return "€ " + humanize.CommafWithDigits(convert.TwoDecimals(v), 2)
}

func writeText(w io.Writer, q quote.Quote) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	line := func(label, format string, a ...any) {
		fmt.Fprintf(tw, "%s\t"+format+"\n", append([]any{label}, a...)...)
	}

	line("Monthly usage", "%s kWh", humanize.Ftoa(convert.RoundFloat64(q.Profile.MonthlyUsageKWh, 1)))
	line("Monthly bill", "%s", euro(q.Profile.MonthlyBill))
	line("Solar", "%s kW (%s)", humanize.Ftoa(convert.RoundFloat64(q.Sizing.SolarKW, 2)), q.SizingPolicy)
	line("Battery", "%s kWh", humanize.Ftoa(convert.RoundFloat64(q.Sizing.BatteryKWh, 2)))
	line("Pricing", "%s, tier %d", q.PricingTable, q.Cost.Tier+1)
	line("Cost before VAT", "%s", euro(q.Cost.BaseCost))
	line("VAT", "%s", euro(q.Cost.VATAmount))
	line("Gross cost", "%s", euro(q.Cost.GrossCost))
	line("Grant", "%s", euro(q.Cost.GrantAmount))
	line("Net investment", "%s", euro(q.Cost.NetInvestment))
	if q.Loan.TermMonths > 0 {
		line("Monthly payment", "%s over %d months", euro(q.Loan.MonthlyPayment), q.Loan.TermMonths)
		line("Total interest", "%s", euro(q.Loan.TotalInterest))
	}
	line("Savings year one", "%s (%s / month)", euro(q.Savings.Total), euro(q.Savings.Monthly))

	if payback, err := q.PaybackYears(); err == nil {
		line("Payback", "%.1f years", payback)
	} else {
		line("Payback", "-")
	}
	line(fmt.Sprintf("NPV at %.1f %%", convert.Percent(q.DiscountRate, 1)), "%s", euro(q.NPV))
	if irr, err := q.InternalRate(); err == nil {
		line("IRR", "%.2f %%", convert.Percent(irr, 2))
	} else {
		line("IRR", "-")
	}
	if y, ok := q.BreakEvenYear.Get(); ok {
		line("Break even", "year %d", y)
	} else {
		line("Break even", "not within %d years", len(q.Projection.Years)-1)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "Year\tBill\tSaving\tLoan\tWithout system\tWith system\t")
	for _, y := range q.Projection.Years {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			y.Year,
			humanize.CommafWithDigits(convert.TwoDecimals(y.AnnualBill), 2),
			humanize.CommafWithDigits(convert.TwoDecimals(y.AnnualSaving), 2),
			humanize.CommafWithDigits(convert.TwoDecimals(y.LoanCost), 2),
			humanize.CommafWithDigits(convert.TwoDecimals(y.CumulativeWithoutSystem), 2),
			humanize.CommafWithDigits(convert.TwoDecimals(y.CumulativeWithSystem), 2))
	}

	for _, warning := range q.Warnings() {
		fmt.Fprintf(tw, "\nwarning: %s (%s)", warning, quote.ErrorCode(warning))
	}
	if len(q.Warnings()) > 0 {
		fmt.Fprintln(tw)
	}

	return tw.Flush()
}
