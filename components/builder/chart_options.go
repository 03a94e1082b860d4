package builder

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// zoomThreshold is the number of categories above which cartesian charts get
// a data zoom slider.
const zoomThreshold = 8

// ChartStyle carries the host-level rendering settings shared by every chart.
type ChartStyle struct {
	Theme      string `json:"theme"`
	AssetsHost string `json:"assets_host"`
	Height     string `json:"height"`
	NodeID     string `json:"node_id"`
}

// chartInput is what each chart builder works from: the panel, its visible
// series (never empty) and the host style.
type chartInput struct {
	panel  Panel
	series []SeriesView
	style  ChartStyle
}

type chartBuilder func(in chartInput) (Renderable, bool)

var chartBuilders = [chartTypeCount]chartBuilder{
	ChartLine:          buildLine,
	ChartArea:          buildArea,
	ChartAreaStacked:   buildAreaStacked,
	ChartStep:          buildStep,
	ChartBar:           buildBar,
	ChartBarHorizontal: buildBarHorizontal,
	ChartBarGrouped:    buildBarGrouped,
	ChartBarStacked:    buildBarStacked,
	ChartWaterfall:     buildWaterfall,
	ChartPolarBar:      buildPolarBar,
	ChartPie:           buildPie,
	ChartDonut:         buildDonut,
	ChartTreemap:       buildTreemap,
	ChartSunburst:      buildSunburst,
	ChartFunnel:        buildFunnel,
	ChartScatter:       buildScatter,
	ChartBubble:        buildBubble,
	ChartHeatmap:       buildHeatmap,
	ChartBoxplot:       buildBoxplot,
	ChartRadar:         buildRadar,
	ChartGauge:         buildGauge,
	ChartCandlestick:   buildCandlestick,
	ChartSankey:        buildSankey,
}

func init() {
	for _, t := range ChartTypes() {
		if chartBuilders[t] == nil {
			panic(fmt.Sprintf("builder: no chart builder registered for %q", t))
		}
	}
}

// BuildChart turns a configured panel into a go-echarts chart. It reports false
// when the panel has no chart type or when nothing is left to plot once nulls
// and the year range are applied.
func BuildChart(p Panel, style ChartStyle) (Renderable, bool) {
	if !p.ChartType.Valid() {
		return nil, false
	}
	series := p.VisibleSeries()
	if len(series) == 0 {
		return nil, false
	}
	return chartBuilders[p.ChartType](chartInput{panel: p, series: series, style: style})
}

// globals returns the options every chart shares.
func (in chartInput) globals(trigger string) []charts.GlobalOpts {
	p := in.panel
	// Series colors first, then the rest of the palette for per-item charts.
	colors := make(opts.Colors, 0, len(in.series)+len(p.Colors))
	for _, s := range in.series {
		colors = append(colors, s.Color)
	}
	colors = append(colors, p.Colors...)
	out := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:      "100%",
			Height:     in.style.Height,
			ChartID:    in.style.NodeID,
			Theme:      in.style.Theme,
			AssetsHost: in.style.AssetsHost,
			PageTitle:  p.DisplayTitle(),
		}),
		charts.WithTitleOpts(opts.Title{
			Title: p.DisplayTitle(),
			Left:  "center",
			TitleStyle: &opts.TextStyle{
				FontFamily: p.FontFamily,
				FontSize:   p.FontSize + 2,
				FontWeight: "bold",
			},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: trigger}),
		charts.WithColorsOpts(colors),
	}
	if p.ShowLegend && len(p.Indicators) > 1 {
		out = append(out, charts.WithLegendOpts(opts.Legend{
			Show:      opts.Bool(true),
			Type:      "scroll",
			Bottom:    "0",
			TextStyle: &opts.TextStyle{FontFamily: p.FontFamily, FontSize: p.FontSize},
		}))
	} else {
		out = append(out, charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}))
	}
	return out
}

// cartesian extends globals with axes, grid and zoom for rectangular charts.
// categories is the number of entries on the category axis.
func (in chartInput) cartesian(categories int, zoom bool) []charts.GlobalOpts {
	p := in.panel
	out := in.globals("axis")
	out = append(out,
		charts.WithGridOpts(opts.Grid{
			Left:         "3%",
			Right:        "4%",
			Top:          "15%",
			Bottom:       "15%",
			ContainLabel: opts.Bool(true),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      p.AxisXLabel,
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      p.AxisYLabel,
			SplitLine: &opts.SplitLine{Show: opts.Bool(p.ShowGrid)},
		}),
	)
	if zoom && categories > zoomThreshold {
		out = append(out,
			charts.WithDataZoomOpts(
				opts.DataZoom{Type: "slider", Start: 0, End: 100},
				opts.DataZoom{Type: "inside", Start: 0, End: 100},
			),
		)
	}
	return out
}

func (in chartInput) labelOpts(show bool) opts.Label {
	return opts.Label{
		Show:       opts.Bool(show),
		FontFamily: in.panel.FontFamily,
		FontSize:   float32(in.panel.FontSize),
	}
}

// unionYears returns every year present in at least one series, ascending.
func unionYears(series []SeriesView) []int {
	seen := map[int]struct{}{}
	var years []int
	for _, s := range series {
		for _, pt := range s.Points {
			if _, ok := seen[pt.Year]; ok {
				continue
			}
			seen[pt.Year] = struct{}{}
			years = append(years, pt.Year)
		}
	}
	sort.Ints(years)
	return years
}

func yearLabels(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = fmt.Sprint(y)
	}
	return out
}

func valuesByYear(s SeriesView) map[int]float64 {
	out := make(map[int]float64, len(s.Points))
	for _, pt := range s.Points {
		out[pt.Year] = pt.Value
	}
	return out
}

// alignedValues maps s onto years, using the "-" placeholder for gaps.
func alignedValues(s SeriesView, years []int) []any {
	byYear := valuesByYear(s)
	out := make([]any, len(years))
	for i, y := range years {
		if v, ok := byYear[y]; ok {
			out[i] = v
		} else {
			out[i] = "-"
		}
	}
	return out
}

func lastPoints(points []Point, n int) []Point {
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

func lastPoint(s SeriesView) Point {
	return s.Points[len(s.Points)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// proportions returns the (label, |value|) pairs used by part-to-whole charts:
// the last n years of a lone series, or the latest value of each series.
func proportions(series []SeriesView, n int) (labels []string, values []float64) {
	if len(series) == 1 {
		for _, pt := range lastPoints(series[0].Points, n) {
			labels = append(labels, fmt.Sprint(pt.Year))
			values = append(values, math.Abs(pt.Value))
		}
		return labels, values
	}
	for _, s := range series {
		labels = append(labels, s.Name)
		values = append(values, math.Abs(lastPoint(s).Value))
	}
	return labels, values
}
