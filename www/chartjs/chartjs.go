package chartjs

import (
	"github.com/angas/solarquote-go/convert"
)

const ColorYellow = "#ffc107d4"
const ColorRed = "#f44336d4"
const ColorGreen = "#4caf50d4"

// NewChart is a line chart with one dataset per color, all on YAxis1 and with one
// point per label.
func NewChart(title string, labels []string, colors ...string) Chart {
	chart := Chart{
		Type: "line",
		Data: ChartData{
			Labels:   labels,
			Datasets: make([]ChartDataset, len(colors)),
		},
		Options: ChartOptions{
			Responsive:  true,
			Interaction: &ChartInteraction{Mode: "index", Intersect: false},
			Plugins: ChartPlugins{
				Legend: ChartLegend{Display: len(colors) > 1},
				Title:  ChartTitle{Display: false},
			},
			Scales: map[string]ChartScale{
				"YAxis1": {
					Type:     "linear",
					Display:  true,
					Position: "left",
					Title:    ChartScaleTitle{Display: true, Text: ""}},
			},
		},
	}

	for i, color := range colors {
		chart.Data.Datasets[i] = ChartDataset{
			Data:        make([]*float64, len(labels)),
			BorderWidth: 1,
			Tension:     0.2,
			Fill:        false,
			BorderColor: color,
			YAxisID:     "YAxis1",
		}
	}

	if title != "" {
		chart.Options.Plugins.Title = ChartTitle{Display: true, Text: title}
	}

	return chart
}

func (cd ChartDataset) WithLabel(label string) ChartDataset {
	cd.Label = label
	return cd
}

func (cs ChartScale) WithTitle(title string) ChartScale {
	cs.Title.Text = title
	return cs
}

func (cs ChartScale) WithMinAndMax(min, max float64) ChartScale {
	cs.Min = &min
	cs.Max = &max
	return cs
}

func FixedFloat64(num float64, precision int) *float64 {
	result := convert.RoundFloat64(num, precision)
	return &result
}
