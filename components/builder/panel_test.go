package builder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPanelDefaults(t *testing.T) {
	p := newPanel(7, PanelConfig{})
	assert.Equal(t, 7, p.ID)
	assert.Equal(t, defaultColSpan, p.ColSpan)
	assert.Equal(t, defaultRowSpan, p.RowSpan)
	assert.Equal(t, DefaultColors, p.Colors)
	assert.Equal(t, "Inter", p.FontFamily)
	assert.Equal(t, 12, p.FontSize)
	assert.True(t, p.ShowLegend)
	assert.True(t, p.ShowGrid)
	assert.False(t, p.Smooth)
	assert.False(t, p.ChartType.IsSet())
	assert.Nil(t, p.YearStart)
	assert.NotNil(t, p.DataCache)

	p.Colors[0] = "#000000"
	assert.Equal(t, "#FF6B00", DefaultColors[0], "panels must not alias the default palette")
}

func TestPanelConfigPalette(t *testing.T) {
	hide := false
	p := newPanel(1, PanelConfig{Palette: "ocean", ShowLegend: &hide})
	ocean, err := Palette("ocean")
	require.NoError(t, err)
	assert.Equal(t, ocean, p.Colors)
	assert.False(t, p.ShowLegend)

	err = PanelConfig{Palette: "neon"}.validate()
	assert.ErrorIs(t, err, ErrUnknownPalette)
	assert.ErrorIs(t, PanelConfig{ColSpan: 13}.validate(), ErrInvalidColSpan)
}

func TestPanelColorFallsBackToDefaults(t *testing.T) {
	p := Panel{Colors: []string{"#111111", ""}}
	assert.Equal(t, "#111111", p.Color(0))
	assert.Equal(t, DefaultColors[1], p.Color(1))
	assert.Equal(t, DefaultColors[9%len(DefaultColors)], p.Color(9))
}

func TestPanelDisplayTitle(t *testing.T) {
	p := Panel{Indicators: []IndicatorRef{{Code: "A", Name: "Alpha"}, {Code: "B"}}}
	assert.Equal(t, "Alpha / B", p.DisplayTitle())
	p.Title = "Custom"
	assert.Equal(t, "Custom", p.DisplayTitle())
}

func TestVisibleSeriesFiltersNullsAndRange(t *testing.T) {
	series := Series{Code: "X", Name: "X", Values: []SeriesPoint{
		{Year: 2018, Value: fv(1)},
		{Year: 2019, Value: nil},
		{Year: 2020, Value: fv(3)},
		{Year: 2021, Value: fv(4)},
	}}
	p := newPanel(1, PanelConfig{Indicators: []IndicatorRef{{Code: "X"}, {Code: "MISSING"}}})
	p.DataCache["X"] = series

	views := p.VisibleSeries()
	require.Len(t, views, 1)
	assert.Equal(t, []int{2018, 2020, 2021}, views[0].Years())
	assert.Equal(t, DefaultColors[0], views[0].Color)

	p.YearStart, p.YearEnd = intp(2020), intp(2020)
	views = p.VisibleSeries()
	require.Len(t, views, 1)
	assert.Equal(t, []float64{3}, views[0].Values())

	p.YearStart, p.YearEnd = intp(2021), intp(2019)
	assert.Empty(t, p.VisibleSeries(), "start after end leaves nothing visible")

	first, last, ok := p.YearBounds()
	require.True(t, ok)
	assert.Equal(t, 2018, first)
	assert.Equal(t, 2021, last)
}

func TestMissingCodesDeduplicates(t *testing.T) {
	p := newPanel(1, PanelConfig{Indicators: []IndicatorRef{{Code: "A"}, {Code: "B"}, {Code: "A"}, {Code: ""}}})
	p.DataCache["B"] = Series{Code: "B"}
	assert.Equal(t, []string{"A"}, p.MissingCodes())
}

func TestPanelSources(t *testing.T) {
	p := newPanel(1, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}, {Code: gdp.Code}}})
	p.DataCache[gdp.Code] = gdp
	sources := p.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, "World Bank", sources[0].Source)
}

func TestStylingPatchApply(t *testing.T) {
	p := newPanel(1, PanelConfig{})
	title := "Inflation"
	size := 16
	smooth := true
	patch := StylingPatch{Title: &title, FontSize: &size, Smooth: &smooth, Colors: []string{"", "#123456"}}
	require.NoError(t, patch.apply(&p))
	assert.Equal(t, "Inflation", p.Title)
	assert.Equal(t, 16, p.FontSize)
	assert.True(t, p.Smooth)
	assert.Equal(t, DefaultColors[0], p.Colors[0])
	assert.Equal(t, "#123456", p.Colors[1])

	tooBig := 40
	err := StylingPatch{FontSize: &tooBig}.apply(&p)
	require.Error(t, err)
	assert.Equal(t, 16, p.FontSize)

	err = StylingPatch{Palette: "unknown"}.apply(&p)
	assert.True(t, errors.Is(err, ErrUnknownPalette))
	assert.True(t, StylingPatch{}.Empty())
}

func TestPanelCloneIsDeep(t *testing.T) {
	p := newPanel(1, PanelConfig{Indicators: []IndicatorRef{{Code: "A"}}, YearStart: intp(2000)})
	p.DataCache["A"] = Series{Code: "A"}
	c := p.clone()
	c.Indicators[0].Code = "Z"
	*c.YearStart = 1990
	delete(c.DataCache, "A")

	assert.Equal(t, "A", p.Indicators[0].Code)
	assert.Equal(t, 2000, *p.YearStart)
	assert.Contains(t, p.DataCache, "A")
}
