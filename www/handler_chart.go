package www

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/angas/solarquote-go/quote"
	"github.com/angas/solarquote-go/www/chartjs"
)

// NewChartHandler returns the cumulative cost with and without the system for the quote
// form in the query string.
func NewChartHandler(logger *slog.Logger, calc Calculator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := ParseQuoteForm(r.URL.Query())
		if err != nil {
			writeJSON(w, logger, http.StatusBadRequest, errorBody(err))
			return
		}

		q, err := calculateForm(calc, f)
		if err != nil {
			writeJSON(w, logger, statusFor(err), errorBody(err))
			return
		}

		writeJSON(w, logger, http.StatusOK, projectionChart(q))
	}
}

func projectionChart(q quote.Quote) chartjs.Chart {
	years := q.Projection.Years
	labels := make([]string, len(years))
	for i, y := range years {
		labels[i] = strconv.Itoa(y.Year)
	}

	chart := chartjs.NewChart("Cumulative cost", labels, chartjs.ColorRed, chartjs.ColorGreen)
	chart.Data.Datasets[0] = chart.Data.Datasets[0].WithLabel("Without system")
	chart.Data.Datasets[1] = chart.Data.Datasets[1].WithLabel("With system")
	chart.Options.Scales["YAxis1"] = chart.Options.Scales["YAxis1"].WithTitle("€")

	for i, y := range years {
		chart.Data.Datasets[0].Data[i] = chartjs.FixedFloat64(y.CumulativeWithoutSystem, 2)
		chart.Data.Datasets[1].Data[i] = chartjs.FixedFloat64(y.CumulativeWithSystem, 2)
	}

	return chart
}
