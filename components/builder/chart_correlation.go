package builder

import (
	"fmt"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	minBubbleSize = 8
	maxBubbleSize = 40
	scatterSize   = 10
	radarPoints   = 8
)

func buildScatter(in chartInput) (Renderable, bool) {
	return scatterChart(in, false)
}

func buildBubble(in chartInput) (Renderable, bool) {
	return scatterChart(in, true)
}

// scatterChart crosses the first two series on their common years, one point
// per year. A lone series is plotted against the year instead.
func scatterChart(in chartInput, bubble bool) (Renderable, bool) {
	p := in.panel
	first := in.series[0]
	xName, yName := p.AxisXLabel, p.AxisYLabel

	var data []opts.ScatterData
	if len(in.series) >= 2 {
		second := in.series[1]
		xs := valuesByYear(first)
		for _, pt := range second.Points {
			x, ok := xs[pt.Year]
			if !ok {
				continue
			}
			size := scatterSize
			if bubble {
				size = bubbleSize(pt.Value)
			}
			data = append(data, opts.ScatterData{
				Name:       fmt.Sprint(pt.Year),
				Value:      []float64{x, pt.Value},
				SymbolSize: size,
			})
		}
		if xName == "" {
			xName = first.Name
		}
		if yName == "" {
			yName = second.Name
		}
	} else {
		for _, pt := range first.Points {
			data = append(data, opts.ScatterData{
				Name:       fmt.Sprint(pt.Year),
				Value:      []float64{float64(pt.Year), pt.Value},
				SymbolSize: scatterSize,
			})
		}
		if xName == "" {
			xName = "Année"
		}
		if yName == "" {
			yName = first.Name
		}
	}
	if len(data) == 0 {
		return nil, false
	}

	chart := charts.NewScatter()
	global := in.globals("item")
	global = append(global,
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{Left: "60", Right: "30", Top: "50", Bottom: "35", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "value",
			Name:      xName,
			Scale:     opts.Bool(true),
			SplitLine: &opts.SplitLine{Show: opts.Bool(p.ShowGrid)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "value",
			Name:      yName,
			Scale:     opts.Bool(true),
			SplitLine: &opts.SplitLine{Show: opts.Bool(p.ShowGrid)},
		}),
	)
	chart.SetGlobalOptions(global...)
	name := first.Name
	if len(in.series) >= 2 {
		name = first.Name + " × " + in.series[1].Name
	}
	options := []charts.SeriesOpts{charts.WithItemStyleOpts(opts.ItemStyle{Color: first.Color})}
	if len(in.series) >= 2 {
		options = append(options, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", FontSize: 9, Formatter: "{b}"}))
	}
	chart.AddSeries(name, data, options...)
	return chart, true
}

func bubbleSize(v float64) int {
	size := math.Abs(v) / 10
	return int(math.Max(minBubbleSize, math.Min(maxBubbleSize, size)))
}

// buildHeatmap lays years on x and series on y. Each row is normalized to
// 0..1 against its own range so indicators of different scales compare.
func buildHeatmap(in chartInput) (Renderable, bool) {
	years := unionYears(in.series)
	index := make(map[int]int, len(years))
	for i, y := range years {
		index[y] = i
	}
	names := make([]string, len(in.series))
	var data []opts.HeatMapData
	for row, s := range in.series {
		names[row] = s.Name
		lo, hi := s.Points[0].Value, s.Points[0].Value
		for _, pt := range s.Points {
			lo = math.Min(lo, pt.Value)
			hi = math.Max(hi, pt.Value)
		}
		span := hi - lo
		if span == 0 {
			span = 1
		}
		for _, pt := range s.Points {
			data = append(data, opts.HeatMapData{Value: [3]any{index[pt.Year], row, round2((pt.Value - lo) / span)}})
		}
	}

	chart := charts.NewHeatMap()
	global := in.globals("item")
	global = append(global,
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{Left: "120", Right: "30", Top: "50", Bottom: "60"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: yearLabels(years), SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: names, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Orient:     "horizontal",
			Left:       "center",
			Bottom:     "5",
			InRange:    &opts.VisualMapInRange{Color: []string{"#f8f9fb", in.panel.Color(0)}},
		}),
	)
	chart.SetGlobalOptions(global...)
	chart.AddSeries(in.panel.DisplayTitle(), data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(false)}))
	return chart, true
}

// buildRadar uses the last eight years of the first series as axes, scaled to
// 1.2 times its largest magnitude.
func buildRadar(in chartInput) (Renderable, bool) {
	axes := lastPoints(in.series[0].Points, radarPoints)
	peak := 0.0
	for _, pt := range axes {
		peak = math.Max(peak, math.Abs(pt.Value))
	}
	if peak == 0 {
		peak = 1
	}
	indicators := make([]*opts.Indicator, len(axes))
	for i, pt := range axes {
		indicators[i] = &opts.Indicator{Name: fmt.Sprint(pt.Year), Max: float32(peak * 1.2)}
	}

	chart := charts.NewRadar()
	global := in.globals("item")
	global = append(global, charts.WithRadarComponentOpts(opts.RadarComponent{Indicator: indicators, Shape: "polygon"}))
	chart.SetGlobalOptions(global...)
	for _, s := range in.series {
		values := make([]float64, 0, radarPoints)
		for _, pt := range lastPoints(s.Points, radarPoints) {
			values = append(values, pt.Value)
		}
		chart.AddSeries(s.Name, []opts.RadarData{{Name: s.Name, Value: values}},
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
			charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: opts.Float(0.15)}),
		)
	}
	return chart, true
}
