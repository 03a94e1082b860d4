package builder

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// itemGlobals is globals for per-item charts, whose legend lists slices and
// is therefore shown even for a single series.
func (in chartInput) itemGlobals() []charts.GlobalOpts {
	out := in.globals("item")
	if in.panel.ShowLegend {
		out = append(out, charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Type:      "scroll",
			Bottom:    "0",
			TextStyle: &opts.TextStyle{FontFamily: in.panel.FontFamily, FontSize: in.panel.FontSize - 1},
		}))
	}
	return out
}

func buildPie(in chartInput) (Renderable, bool) {
	return pieChart(in, "70%")
}

func buildDonut(in chartInput) (Renderable, bool) {
	return pieChart(in, []string{"40%", "70%"})
}

func pieChart(in chartInput, radius any) (Renderable, bool) {
	labels, values := proportions(in.series, 10)
	data := make([]opts.PieData, len(labels))
	for i := range labels {
		data[i] = opts.PieData{Name: labels[i], Value: round2(values[i])}
	}
	chart := charts.NewPie()
	chart.SetGlobalOptions(in.itemGlobals()...)
	chart.AddSeries(in.panel.DisplayTitle(), data,
		charts.WithPieChartOpts(opts.PieChart{Radius: radius, Center: []string{"50%", "50%"}}),
		charts.WithLabelOpts(in.labelOpts(true)),
	)
	return chart, true
}

// buildPolarBar draws the last ten years of the first series as a rose
// diagram, one sector per year with its radius proportional to the value.
func buildPolarBar(in chartInput) (Renderable, bool) {
	s := in.series[0]
	points := lastPoints(s.Points, 10)
	data := make([]opts.PieData, len(points))
	for i, pt := range points {
		data[i] = opts.PieData{
			Name:      fmt.Sprint(pt.Year),
			Value:     round2(math.Abs(pt.Value)),
			ItemStyle: &opts.ItemStyle{Color: in.panel.Color(i)},
		}
	}
	chart := charts.NewPie()
	chart.SetGlobalOptions(in.globals("item")...)
	chart.AddSeries(s.Name, data,
		charts.WithPieChartOpts(opts.PieChart{RoseType: "area", Radius: []string{"15%", "75%"}}),
		charts.WithLabelOpts(in.labelOpts(true)),
	)
	return chart, true
}

// treemapScale keeps two decimals of precision in TreeMapNode's integer value.
const treemapScale = 100

func buildTreemap(in chartInput) (Renderable, bool) {
	labels, values := proportions(in.series, 10)
	nodes := make([]opts.TreeMapNode, len(labels))
	for i := range labels {
		nodes[i] = opts.TreeMapNode{
			Name:  fmt.Sprintf("%s\n%s", labels[i], formatValue(values[i])),
			Value: int(math.Round(values[i] * treemapScale)),
		}
	}
	chart := charts.NewTreeMap()
	chart.SetGlobalOptions(in.globals("item")...)
	chart.AddSeries(in.panel.DisplayTitle(), nodes,
		charts.WithTreeMapOpts(opts.TreeMapChart{Roam: opts.Bool(false)}),
		charts.WithLabelOpts(opts.Label{
			Show:       opts.Bool(true),
			FontFamily: in.panel.FontFamily,
			FontSize:   float32(in.panel.FontSize - 1),
		}),
	)
	return chart, true
}

func buildSunburst(in chartInput) (Renderable, bool) {
	data := make([]opts.SunBurstData, 0, len(in.series))
	for _, s := range in.series {
		points := lastPoints(s.Points, 5)
		children := make([]*opts.SunBurstData, len(points))
		for i, pt := range points {
			children[i] = &opts.SunBurstData{Name: fmt.Sprint(pt.Year), Value: round2(math.Abs(pt.Value))}
		}
		data = append(data, opts.SunBurstData{
			Name:      s.Name,
			ItemStyle: &opts.ItemStyle{Color: s.Color},
			Children:  children,
		})
	}
	chart := charts.NewSunburst()
	chart.SetGlobalOptions(in.globals("item")...)
	chart.AddSeries(in.panel.DisplayTitle(), data,
		charts.WithSeriesOpts(func(s *charts.SingleSeries) {
			s.Radius = []string{"15%", "80%"}
		}),
		charts.WithLabelOpts(opts.Label{
			Show:       opts.Bool(true),
			FontFamily: in.panel.FontFamily,
			FontSize:   float32(in.panel.FontSize - 2),
		}),
	)
	return chart, true
}

func buildFunnel(in chartInput) (Renderable, bool) {
	labels, values := proportions(in.series, 8)
	data := make([]opts.FunnelData, len(labels))
	for i := range labels {
		data[i] = opts.FunnelData{Name: labels[i], Value: round2(values[i])}
	}
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Value.(float64) > data[j].Value.(float64)
	})
	chart := charts.NewFunnel()
	chart.SetGlobalOptions(in.itemGlobals()...)
	chart.AddSeries(in.panel.DisplayTitle(), data, charts.WithLabelOpts(in.labelOpts(true)))
	return chart, true
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
