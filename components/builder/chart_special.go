package builder

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	candleWindow = 4
	sankeyYears  = 5
)

// buildGauge shows the latest value of the first series on a dial spanning
// 0.8 times its minimum to 1.2 times its maximum.
func buildGauge(in chartInput) (Renderable, bool) {
	s := in.series[0]
	last := lastPoint(s)
	lo, hi := last.Value, last.Value
	for _, pt := range s.Points {
		lo = math.Min(lo, pt.Value)
		hi = math.Max(hi, pt.Value)
	}
	dialMin := int(math.Floor(lo * 0.8))
	dialMax := int(math.Ceil(hi * 1.2))
	if dialMax <= dialMin {
		dialMax = dialMin + 1
	}

	chart := charts.NewGauge()
	global := in.globals("item")
	global = append(global, charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}))
	chart.SetGlobalOptions(global...)
	chart.AddSeries(s.Name,
		[]opts.GaugeData{{Name: fmt.Sprint(last.Year), Value: round2(last.Value)}},
		charts.WithSeriesOpts(func(series *charts.SingleSeries) {
			series.Min = dialMin
			series.Max = dialMax
		}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
	)
	return chart, true
}

// buildBoxplot summarizes every series as min, quartiles and max.
func buildBoxplot(in chartInput) (Renderable, bool) {
	names := make([]string, len(in.series))
	data := make([]opts.BoxPlotData, len(in.series))
	for i, s := range in.series {
		names[i] = s.Name
		data[i] = opts.BoxPlotData{Name: s.Name, Value: fiveNumber(s.Values())}
	}

	chart := charts.NewBoxPlot()
	global := in.globals("item")
	rotate := 0.0
	if len(names) > 4 {
		rotate = 30
	}
	global = append(global,
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithGridOpts(opts.Grid{Left: "60", Right: "30", Top: "50", Bottom: "35", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: in.panel.AxisXLabel, AxisLabel: &opts.AxisLabel{Rotate: rotate}}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "value",
			Name:      in.panel.AxisYLabel,
			SplitLine: &opts.SplitLine{Show: opts.Bool(in.panel.ShowGrid)},
		}),
	)
	chart.SetGlobalOptions(global...)
	chart.SetXAxis(names)
	chart.AddSeries(in.panel.DisplayTitle(), data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: in.panel.Color(0), BorderColor: in.panel.Color(1)}),
	)
	return chart, true
}

// fiveNumber returns [min, q1, median, q3, max] using lower-index quantiles.
func fiveNumber(values []float64) []float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	at := func(q float64) float64 {
		return sorted[int(math.Floor(float64(n)*q))]
	}
	return []float64{sorted[0], at(0.25), at(0.5), at(0.75), sorted[n-1]}
}

// buildCandlestick derives open/close/low/high candles from a rolling window
// of four yearly values of the first series, labelled by the window's last
// year. Fewer than four values leave nothing to draw.
func buildCandlestick(in chartInput) (Renderable, bool) {
	s := in.series[0]
	if len(s.Points) < candleWindow {
		return nil, false
	}
	var (
		labels []string
		data   []opts.KlineData
	)
	for i := candleWindow - 1; i < len(s.Points); i++ {
		window := s.Points[i-candleWindow+1 : i+1]
		lo, hi := window[0].Value, window[0].Value
		for _, pt := range window {
			lo = math.Min(lo, pt.Value)
			hi = math.Max(hi, pt.Value)
		}
		labels = append(labels, fmt.Sprint(s.Points[i].Year))
		data = append(data, opts.KlineData{Value: []float64{window[0].Value, window[len(window)-1].Value, lo, hi}})
	}

	chart := charts.NewKLine()
	global := in.cartesian(len(labels), true)
	global = append(global, charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}))
	chart.SetGlobalOptions(global...)
	chart.SetXAxis(labels)
	up, down := in.panel.Color(0), in.panel.Color(1)
	chart.AddSeries(s.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{
		Color:        up,
		Color0:       down,
		BorderColor:  up,
		BorderColor0: down,
	}))
	return chart, true
}

// buildSankey links the last five years of the first series to the same years
// of the second. With a single series it falls back to a line chart.
func buildSankey(in chartInput) (Renderable, bool) {
	if len(in.series) < 2 {
		return buildLine(in)
	}
	from, to := in.series[0], in.series[1]
	targets := valuesByYear(to)
	var (
		nodes []opts.SankeyNode
		links []opts.SankeyLink
	)
	seen := map[string]struct{}{}
	addNode := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		nodes = append(nodes, opts.SankeyNode{Name: name})
	}
	for _, pt := range lastPoints(from.Points, sankeyYears) {
		source := fmt.Sprintf("%s %d", from.Name, pt.Year)
		target := fmt.Sprintf("%s %d", to.Name, pt.Year)
		if source == target {
			target += " ›"
		}
		value := pt.Value
		if v, ok := targets[pt.Year]; ok && v != 0 {
			value = v
		}
		addNode(source)
		addNode(target)
		links = append(links, opts.SankeyLink{Source: source, Target: target, Value: float32(math.Abs(value))})
	}

	chart := charts.NewSankey()
	global := in.globals("item")
	global = append(global, charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}))
	chart.SetGlobalOptions(global...)
	chart.AddSeries(in.panel.DisplayTitle(), nodes, links,
		charts.WithLabelOpts(opts.Label{
			Show:       opts.Bool(true),
			FontFamily: in.panel.FontFamily,
			FontSize:   float32(in.panel.FontSize - 2),
		}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: "gradient", Curveness: 0.5}),
	)
	return chart, true
}
