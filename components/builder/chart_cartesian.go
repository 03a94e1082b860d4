package builder

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

type lineVariant struct {
	area    bool
	stacked bool
	step    bool
}

func buildLine(in chartInput) (Renderable, bool) {
	return lineChart(in, lineVariant{})
}

func buildArea(in chartInput) (Renderable, bool) {
	return lineChart(in, lineVariant{area: true})
}

func buildAreaStacked(in chartInput) (Renderable, bool) {
	return lineChart(in, lineVariant{area: true, stacked: true})
}

func buildStep(in chartInput) (Renderable, bool) {
	return lineChart(in, lineVariant{step: true})
}

func lineChart(in chartInput, v lineVariant) (Renderable, bool) {
	years := unionYears(in.series)
	chart := charts.NewLine()
	chart.SetGlobalOptions(in.cartesian(len(years), true)...)
	chart.SetXAxis(yearLabels(years))
	for _, s := range in.series {
		values := alignedValues(s, years)
		data := make([]opts.LineData, len(values))
		for i, value := range values {
			data[i] = opts.LineData{Value: value}
		}
		series := opts.LineChart{Smooth: opts.Bool(in.panel.Smooth && !v.step)}
		if v.stacked {
			series.Stack = "total"
		}
		if v.step {
			series.Step = "middle"
		}
		options := []charts.SeriesOpts{
			charts.WithLineChartOpts(series),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		}
		if v.area {
			opacity := float32(0.3)
			if v.stacked {
				opacity = 0.8
			}
			options = append(options, charts.WithAreaStyleOpts(opts.AreaStyle{Color: s.Color, Opacity: opts.Float(opacity)}))
		}
		chart.AddSeries(s.Name, data, options...)
	}
	return chart, true
}

type barVariant struct {
	horizontal bool
	stacked    bool
}

func buildBar(in chartInput) (Renderable, bool) {
	return barChart(in, barVariant{})
}

func buildBarGrouped(in chartInput) (Renderable, bool) {
	return barChart(in, barVariant{})
}

func buildBarHorizontal(in chartInput) (Renderable, bool) {
	return barChart(in, barVariant{horizontal: true})
}

func buildBarStacked(in chartInput) (Renderable, bool) {
	return barChart(in, barVariant{stacked: true})
}

func barChart(in chartInput, v barVariant) (Renderable, bool) {
	years := unionYears(in.series)
	chart := charts.NewBar()
	global := in.cartesian(len(years), !v.horizontal)
	if v.horizontal {
		global = append(global,
			charts.WithXAxisOpts(opts.XAxis{
				Name:      in.panel.AxisYLabel,
				Type:      "value",
				SplitLine: &opts.SplitLine{Show: opts.Bool(in.panel.ShowGrid)},
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name: in.panel.AxisXLabel,
				Type: "category",
			}),
		)
	}
	chart.SetGlobalOptions(global...)
	chart.SetXAxis(yearLabels(years))
	for _, s := range in.series {
		values := alignedValues(s, years)
		data := make([]opts.BarData, len(values))
		for i, value := range values {
			data[i] = opts.BarData{Value: value}
		}
		series := opts.BarChart{}
		if v.stacked {
			series.Stack = "total"
		}
		chart.AddSeries(s.Name, data,
			charts.WithBarChartOpts(series),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		)
	}
	if v.horizontal {
		chart.XYReversal()
	}
	return chart, true
}

// buildWaterfall plots year-over-year changes of the first series as
// increases and decreases floating on a transparent base.
func buildWaterfall(in chartInput) (Renderable, bool) {
	s := in.series[0]
	labels := make([]string, len(s.Points))
	base := make([]opts.BarData, len(s.Points))
	rises := make([]opts.BarData, len(s.Points))
	falls := make([]opts.BarData, len(s.Points))
	prev := 0.0
	for i, pt := range s.Points {
		labels[i] = yearLabels([]int{pt.Year})[0]
		switch delta := pt.Value - prev; {
		case i == 0:
			base[i] = opts.BarData{Value: 0}
			rises[i] = opts.BarData{Value: round2(pt.Value)}
			falls[i] = opts.BarData{Value: "-"}
		case delta >= 0:
			base[i] = opts.BarData{Value: round2(prev)}
			rises[i] = opts.BarData{Value: round2(delta)}
			falls[i] = opts.BarData{Value: "-"}
		default:
			base[i] = opts.BarData{Value: round2(prev + delta)}
			rises[i] = opts.BarData{Value: "-"}
			falls[i] = opts.BarData{Value: round2(-delta)}
		}
		prev = pt.Value
	}

	chart := charts.NewBar()
	global := in.cartesian(len(labels), true)
	global = append(global, charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}))
	chart.SetGlobalOptions(global...)
	chart.SetXAxis(labels)
	stack := charts.WithBarChartOpts(opts.BarChart{Stack: "waterfall"})
	chart.AddSeries("Base", base, stack,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "transparent", BorderColor: "transparent"}))
	chart.AddSeries("Hausse", rises, stack,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}))
	chart.AddSeries("Baisse", falls, stack,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: in.panel.Color(1)}))
	return chart, true
}
