package builder

import (
	"fmt"
	"strings"
)

const (
	// GridColumns is the number of columns in the dashboard grid.
	GridColumns = 12

	defaultColSpan    = 4
	defaultRowSpan    = 1
	defaultFontFamily = "Inter"
	defaultFontSize   = 12

	minFontSize = 8
	maxFontSize = 24
)

// SpanPresets are the column widths offered by the panel toolbar.
var SpanPresets = []int{3, 4, 6, 8, 12}

// FontFamilies are the typefaces offered by the styling form.
var FontFamilies = []string{"Inter", "Arial", "Georgia", "Courier New", "Verdana", "Trebuchet MS", "Palatino", "Garamond"}

// Panel is one configurable chart tile. DataCache is transient: it is never
// snapshotted or persisted and only grows while the panel exists.
type Panel struct {
	ID         int            `json:"id"`
	ColSpan    int            `json:"colSpan"`
	RowSpan    int            `json:"rowSpan"`
	Indicators []IndicatorRef `json:"indicators"`
	ChartType  ChartType      `json:"chartType"`
	Title      string         `json:"title"`
	AxisXLabel string         `json:"axisXLabel"`
	AxisYLabel string         `json:"axisYLabel"`
	Colors     []string       `json:"colors"`
	FontFamily string         `json:"fontFamily"`
	FontSize   int            `json:"fontSize"`
	ShowLegend bool           `json:"showLegend"`
	ShowGrid   bool           `json:"showGrid"`
	Smooth     bool           `json:"smooth"`
	YearStart  *int           `json:"yearStart"`
	YearEnd    *int           `json:"yearEnd"`

	DataCache map[string]Series `json:"-"`
}

// PanelConfig carries the optional fields accepted by AddPanel. Zero values
// fall back to the panel defaults; booleans defaulting to true are pointers.
type PanelConfig struct {
	ColSpan    int            `json:"colSpan,omitempty" yaml:"col_span,omitempty"`
	RowSpan    int            `json:"rowSpan,omitempty" yaml:"row_span,omitempty"`
	Indicators []IndicatorRef `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	ChartType  ChartType      `json:"chartType,omitempty" yaml:"chart_type,omitempty"`
	Title      string         `json:"title,omitempty" yaml:"title,omitempty"`
	AxisXLabel string         `json:"axisXLabel,omitempty" yaml:"axis_x_label,omitempty"`
	AxisYLabel string         `json:"axisYLabel,omitempty" yaml:"axis_y_label,omitempty"`
	Colors     []string       `json:"colors,omitempty" yaml:"colors,omitempty"`
	Palette    string         `json:"palette,omitempty" yaml:"palette,omitempty"`
	FontFamily string         `json:"fontFamily,omitempty" yaml:"font_family,omitempty"`
	FontSize   int            `json:"fontSize,omitempty" yaml:"font_size,omitempty"`
	ShowLegend *bool          `json:"showLegend,omitempty" yaml:"show_legend,omitempty"`
	ShowGrid   *bool          `json:"showGrid,omitempty" yaml:"show_grid,omitempty"`
	Smooth     bool           `json:"smooth,omitempty" yaml:"smooth,omitempty"`
	YearStart  *int           `json:"yearStart,omitempty" yaml:"year_start,omitempty"`
	YearEnd    *int           `json:"yearEnd,omitempty" yaml:"year_end,omitempty"`
}

func (cfg PanelConfig) validate() error {
	if cfg.ColSpan != 0 && (cfg.ColSpan < 1 || cfg.ColSpan > GridColumns) {
		return fmt.Errorf("%w: %d", ErrInvalidColSpan, cfg.ColSpan)
	}
	if cfg.RowSpan < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRowSpan, cfg.RowSpan)
	}
	if cfg.ChartType.IsSet() && !cfg.ChartType.Valid() {
		return ErrUnknownChartType
	}
	if cfg.Palette != "" {
		if _, err := Palette(cfg.Palette); err != nil {
			return err
		}
	}
	return nil
}

func newPanel(id int, cfg PanelConfig) Panel {
	p := Panel{
		ID:         id,
		ColSpan:    cfg.ColSpan,
		RowSpan:    cfg.RowSpan,
		Indicators: append([]IndicatorRef{}, cfg.Indicators...),
		ChartType:  cfg.ChartType,
		Title:      cfg.Title,
		AxisXLabel: cfg.AxisXLabel,
		AxisYLabel: cfg.AxisYLabel,
		FontFamily: cfg.FontFamily,
		FontSize:   cfg.FontSize,
		ShowLegend: true,
		ShowGrid:   true,
		Smooth:     cfg.Smooth,
		YearStart:  copyInt(cfg.YearStart),
		YearEnd:    copyInt(cfg.YearEnd),
		DataCache:  map[string]Series{},
	}
	if p.ColSpan == 0 {
		p.ColSpan = defaultColSpan
	}
	if p.RowSpan == 0 {
		p.RowSpan = defaultRowSpan
	}
	switch {
	case len(cfg.Colors) > 0:
		p.Colors = append([]string(nil), cfg.Colors...)
	case cfg.Palette != "":
		p.Colors, _ = Palette(cfg.Palette)
	default:
		p.Colors = defaultColors()
	}
	if p.FontFamily == "" {
		p.FontFamily = defaultFontFamily
	}
	if p.FontSize <= 0 {
		p.FontSize = defaultFontSize
	}
	if cfg.ShowLegend != nil {
		p.ShowLegend = *cfg.ShowLegend
	}
	if cfg.ShowGrid != nil {
		p.ShowGrid = *cfg.ShowGrid
	}
	return p
}

// Configured reports whether the panel can render a chart.
func (p Panel) Configured() bool {
	return len(p.Indicators) > 0 && p.ChartType.IsSet()
}

// Color returns the color for series slot i.
func (p Panel) Color(i int) string {
	if i >= 0 && i < len(p.Colors) && p.Colors[i] != "" {
		return p.Colors[i]
	}
	if i < 0 {
		i = -i
	}
	return DefaultColors[i%len(DefaultColors)]
}

// DisplayTitle returns the title override or the indicator names joined by " / ".
func (p Panel) DisplayTitle() string {
	if strings.TrimSpace(p.Title) != "" {
		return p.Title
	}
	names := make([]string, 0, len(p.Indicators))
	for _, ref := range p.Indicators {
		names = append(names, ref.label())
	}
	return strings.Join(names, " / ")
}

func (r IndicatorRef) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Code
}

// MissingCodes lists indicator codes without cached data, deduplicated, in order.
func (p Panel) MissingCodes() []string {
	seen := make(map[string]struct{}, len(p.Indicators))
	var out []string
	for _, ref := range p.Indicators {
		if ref.Code == "" {
			continue
		}
		if _, ok := p.DataCache[ref.Code]; ok {
			continue
		}
		if _, ok := seen[ref.Code]; ok {
			continue
		}
		seen[ref.Code] = struct{}{}
		out = append(out, ref.Code)
	}
	return out
}

// Point is one non-null observation inside the year range.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// SeriesView is a cached series after null and year-range filtering.
type SeriesView struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Unit   string  `json:"unit,omitempty"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

// Years returns the years of the view's points.
func (s SeriesView) Years() []int {
	out := make([]int, len(s.Points))
	for i, pt := range s.Points {
		out[i] = pt.Year
	}
	return out
}

// Values returns the values of the view's points.
func (s SeriesView) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, pt := range s.Points {
		out[i] = pt.Value
	}
	return out
}

// VisibleSeries returns the cached series in indicator order with nulls removed
// and the year range applied. Series left without points are dropped, so a
// start year after the end year yields no series at all.
func (p Panel) VisibleSeries() []SeriesView {
	out := make([]SeriesView, 0, len(p.Indicators))
	for i, ref := range p.Indicators {
		series, ok := p.DataCache[ref.Code]
		if !ok {
			continue
		}
		points := filterPoints(series.Values, p.YearStart, p.YearEnd)
		if len(points) == 0 {
			continue
		}
		name := series.Name
		if name == "" {
			name = ref.label()
		}
		out = append(out, SeriesView{
			Code:   ref.Code,
			Name:   name,
			Unit:   series.Unit,
			Color:  p.Color(i),
			Points: points,
		})
	}
	return out
}

func filterPoints(values []SeriesPoint, start, end *int) []Point {
	out := make([]Point, 0, len(values))
	for _, v := range values {
		if v.Value == nil {
			continue
		}
		if start != nil && v.Year < *start {
			continue
		}
		if end != nil && v.Year > *end {
			continue
		}
		out = append(out, Point{Year: v.Year, Value: *v.Value})
	}
	return out
}

// YearBounds reports the earliest and latest year with data across the cache.
func (p Panel) YearBounds() (first, last int, ok bool) {
	for _, ref := range p.Indicators {
		series, cached := p.DataCache[ref.Code]
		if !cached {
			continue
		}
		for _, year := range series.Years() {
			if !ok || year < first {
				first = year
			}
			if !ok || year > last {
				last = year
			}
			ok = true
		}
	}
	return first, last, ok
}

// DataSource describes where one of the panel's series comes from.
type DataSource struct {
	Name       string `json:"name"`
	Source     string `json:"source,omitempty"`
	SourceLink string `json:"source_link,omitempty"`
}

// Sources lists the provenance of every cached series, in indicator order.
func (p Panel) Sources() []DataSource {
	seen := map[string]struct{}{}
	var out []DataSource
	for _, ref := range p.Indicators {
		series, ok := p.DataCache[ref.Code]
		if !ok {
			continue
		}
		if _, dup := seen[ref.Code]; dup {
			continue
		}
		seen[ref.Code] = struct{}{}
		name := series.Name
		if name == "" {
			name = ref.label()
		}
		out = append(out, DataSource{Name: name, Source: series.Source, SourceLink: series.SourceLink})
	}
	return out
}

// clone deep-copies the panel. Cached series are shared since they are never
// mutated after a fetch.
func (p Panel) clone() Panel {
	out := p
	out.Indicators = append([]IndicatorRef{}, p.Indicators...)
	out.Colors = append([]string(nil), p.Colors...)
	out.YearStart = copyInt(p.YearStart)
	out.YearEnd = copyInt(p.YearEnd)
	out.DataCache = make(map[string]Series, len(p.DataCache))
	for code, series := range p.DataCache {
		out.DataCache[code] = series
	}
	return out
}

// StylingPatch is a partial styling update; nil fields are left untouched.
// Palette, when set, replaces Colors with the named palette.
type StylingPatch struct {
	Title      *string  `json:"title,omitempty"`
	AxisXLabel *string  `json:"axisXLabel,omitempty"`
	AxisYLabel *string  `json:"axisYLabel,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	Palette    string   `json:"palette,omitempty"`
	FontFamily *string  `json:"fontFamily,omitempty"`
	FontSize   *int     `json:"fontSize,omitempty"`
	ShowLegend *bool    `json:"showLegend,omitempty"`
	ShowGrid   *bool    `json:"showGrid,omitempty"`
	Smooth     *bool    `json:"smooth,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (s StylingPatch) Empty() bool {
	return s.Title == nil && s.AxisXLabel == nil && s.AxisYLabel == nil &&
		len(s.Colors) == 0 && s.Palette == "" && s.FontFamily == nil &&
		s.FontSize == nil && s.ShowLegend == nil && s.ShowGrid == nil && s.Smooth == nil
}

func (s StylingPatch) apply(p *Panel) error {
	var palette []string
	if s.Palette != "" {
		colors, err := Palette(s.Palette)
		if err != nil {
			return err
		}
		palette = colors
	}
	if s.FontSize != nil && (*s.FontSize < minFontSize || *s.FontSize > maxFontSize) {
		return fmt.Errorf("%w: must be between %d and %d, got %d", ErrInvalidFontSize, minFontSize, maxFontSize, *s.FontSize)
	}
	if s.Title != nil {
		p.Title = *s.Title
	}
	if s.AxisXLabel != nil {
		p.AxisXLabel = *s.AxisXLabel
	}
	if s.AxisYLabel != nil {
		p.AxisYLabel = *s.AxisYLabel
	}
	if palette != nil {
		p.Colors = palette
	}
	if len(s.Colors) > 0 {
		colors := append([]string(nil), p.Colors...)
		for i, c := range s.Colors {
			if c == "" {
				continue
			}
			for len(colors) <= i {
				colors = append(colors, DefaultColors[len(colors)%len(DefaultColors)])
			}
			colors[i] = c
		}
		p.Colors = colors
	}
	if s.FontFamily != nil && strings.TrimSpace(*s.FontFamily) != "" {
		p.FontFamily = *s.FontFamily
	}
	if s.FontSize != nil {
		p.FontSize = *s.FontSize
	}
	if s.ShowLegend != nil {
		p.ShowLegend = *s.ShowLegend
	}
	if s.ShowGrid != nil {
		p.ShowGrid = *s.ShowGrid
	}
	if s.Smooth != nil {
		p.Smooth = *s.Smooth
	}
	return nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
