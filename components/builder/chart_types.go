package builder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ChartType is the closed set of chart kinds a panel can render. The zero
// value means no chart type has been chosen yet.
type ChartType uint8

const (
	ChartUnset ChartType = iota
	ChartLine
	ChartArea
	ChartAreaStacked
	ChartStep
	ChartBar
	ChartBarHorizontal
	ChartBarGrouped
	ChartBarStacked
	ChartWaterfall
	ChartPolarBar
	ChartPie
	ChartDonut
	ChartTreemap
	ChartSunburst
	ChartFunnel
	ChartScatter
	ChartBubble
	ChartHeatmap
	ChartBoxplot
	ChartRadar
	ChartGauge
	ChartCandlestick
	ChartSankey

	chartTypeCount
)

var chartTypeNames = [chartTypeCount]string{
	ChartUnset:         "",
	ChartLine:          "line",
	ChartArea:          "area",
	ChartAreaStacked:   "area_stacked",
	ChartStep:          "step",
	ChartBar:           "bar",
	ChartBarHorizontal: "bar_horizontal",
	ChartBarGrouped:    "bar_grouped",
	ChartBarStacked:    "bar_stacked",
	ChartWaterfall:     "waterfall",
	ChartPolarBar:      "polar_bar",
	ChartPie:           "pie",
	ChartDonut:         "donut",
	ChartTreemap:       "treemap",
	ChartSunburst:      "sunburst",
	ChartFunnel:        "funnel",
	ChartScatter:       "scatter",
	ChartBubble:        "bubble",
	ChartHeatmap:       "heatmap",
	ChartBoxplot:       "boxplot",
	ChartRadar:         "radar",
	ChartGauge:         "gauge",
	ChartCandlestick:   "candlestick",
	ChartSankey:        "sankey",
}

// ChartTypes returns every selectable chart type in picker order.
func ChartTypes() []ChartType {
	out := make([]ChartType, 0, chartTypeCount-1)
	for t := ChartLine; t < chartTypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// ParseChartType resolves a wire identifier. The empty string yields ChartUnset.
func ParseChartType(s string) (ChartType, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ChartUnset, nil
	}
	for i, name := range chartTypeNames {
		if i > 0 && name == s {
			return ChartType(i), nil
		}
	}
	return ChartUnset, fmt.Errorf("%w: %q", ErrUnknownChartType, s)
}

// String returns the wire identifier.
func (t ChartType) String() string {
	if t >= chartTypeCount {
		return fmt.Sprintf("ChartType(%d)", uint8(t))
	}
	return chartTypeNames[t]
}

// Valid reports whether t is a selectable chart type.
func (t ChartType) Valid() bool {
	return t > ChartUnset && t < chartTypeCount
}

// IsSet reports whether a chart type has been chosen.
func (t ChartType) IsSet() bool {
	return t != ChartUnset
}

// MarshalJSON encodes unset as null and everything else as its identifier.
func (t ChartType) MarshalJSON() ([]byte, error) {
	if !t.IsSet() {
		return []byte("null"), nil
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChartType, uint8(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts null, "" or a known identifier.
func (t *ChartType) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*t = ChartUnset
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("builder: decode chart type: %w", err)
	}
	parsed, err := ParseChartType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML encodes the identifier for preset manifests.
func (t ChartType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// UnmarshalYAML decodes the identifier from preset manifests.
func (t *ChartType) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseChartType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ChartCategory groups chart types in the picker.
type ChartCategory struct {
	Code  string            `json:"code"`
	Label map[string]string `json:"label"`
	Types []ChartType       `json:"types"`
}

// ChartInfo carries picker metadata for one chart type.
type ChartInfo struct {
	Type        ChartType         `json:"type"`
	Category    string            `json:"category"`
	Icon        string            `json:"icon"`
	Label       map[string]string `json:"label"`
	Description map[string]string `json:"description"`
}

// LabelFor returns the localized label.
func (c ChartInfo) LabelFor(locale string) string {
	return ResolveLocalizedValue(c.Label, locale, c.Type.String())
}

// DescriptionFor returns the localized description.
func (c ChartInfo) DescriptionFor(locale string) string {
	return ResolveLocalizedValue(c.Description, locale, "")
}

var chartCategories = []ChartCategory{
	{
		Code:  "evolution",
		Label: map[string]string{"default": "Évolution temporelle", "en": "Trends over time"},
		Types: []ChartType{ChartLine, ChartArea, ChartAreaStacked, ChartStep},
	},
	{
		Code:  "comparison",
		Label: map[string]string{"default": "Comparaison", "en": "Comparison"},
		Types: []ChartType{ChartBar, ChartBarHorizontal, ChartBarGrouped, ChartBarStacked, ChartWaterfall, ChartPolarBar},
	},
	{
		Code:  "proportion",
		Label: map[string]string{"default": "Proportion & Répartition", "en": "Proportion & breakdown"},
		Types: []ChartType{ChartPie, ChartDonut, ChartTreemap, ChartSunburst, ChartFunnel},
	},
	{
		Code:  "correlation",
		Label: map[string]string{"default": "Corrélation & Distribution", "en": "Correlation & distribution"},
		Types: []ChartType{ChartScatter, ChartBubble, ChartHeatmap, ChartBoxplot},
	},
	{
		Code:  "multiaxes",
		Label: map[string]string{"default": "Multi-axes & Spécialisé", "en": "Multi-axis & specialised"},
		Types: []ChartType{ChartRadar, ChartGauge, ChartCandlestick, ChartSankey},
	},
}

var chartInfo = [chartTypeCount]ChartInfo{
	ChartLine:          info(ChartLine, "📈", "Courbe", "Line", "Évolution dans le temps", "Change over time"),
	ChartArea:          info(ChartArea, "🏔️", "Aire", "Area", "Courbe avec remplissage", "Filled line"),
	ChartAreaStacked:   info(ChartAreaStacked, "📊", "Aires empilées", "Stacked area", "Composition dans le temps", "Composition over time"),
	ChartStep:          info(ChartStep, "📶", "En escalier", "Step", "Paliers successifs", "Successive steps"),
	ChartBar:           info(ChartBar, "📊", "Histogramme", "Bar", "Barres verticales", "Vertical bars"),
	ChartBarHorizontal: info(ChartBarHorizontal, "📋", "Barres horiz.", "Horizontal bar", "Barres horizontales", "Horizontal bars"),
	ChartBarGrouped:    info(ChartBarGrouped, "📊", "Barres groupées", "Grouped bar", "Séries côte à côte", "Series side by side"),
	ChartBarStacked:    info(ChartBarStacked, "📚", "Barres empilées", "Stacked bar", "Empilées par catégorie", "Stacked per category"),
	ChartWaterfall:     info(ChartWaterfall, "🏗️", "Cascade", "Waterfall", "Variations cumulées", "Cumulative changes"),
	ChartPolarBar:      info(ChartPolarBar, "🎯", "Barres polaires", "Polar bar", "Barres en cercle", "Bars around a circle"),
	ChartPie:           info(ChartPie, "🥧", "Camembert", "Pie", "Parts du total", "Share of total"),
	ChartDonut:         info(ChartDonut, "🍩", "Anneau", "Donut", "Camembert creux", "Hollow pie"),
	ChartTreemap:       info(ChartTreemap, "🟩", "Treemap", "Treemap", "Rectangles imbriqués", "Nested rectangles"),
	ChartSunburst:      info(ChartSunburst, "☀️", "Sunburst", "Sunburst", "Hiérarchie radiale", "Radial hierarchy"),
	ChartFunnel:        info(ChartFunnel, "🔽", "Entonnoir", "Funnel", "Étapes décroissantes", "Decreasing stages"),
	ChartScatter:       info(ChartScatter, "⚬", "Nuage de points", "Scatter", "Relation entre 2 variables", "Relationship between two variables"),
	ChartBubble:        info(ChartBubble, "🫧", "Bulles", "Bubble", "Points à 3 dimensions", "Three-dimensional points"),
	ChartHeatmap:       info(ChartHeatmap, "🌡️", "Carte de chaleur", "Heatmap", "Matrice de valeurs", "Value matrix"),
	ChartBoxplot:       info(ChartBoxplot, "📦", "Boîte à moustaches", "Box plot", "Distribution statistique", "Statistical distribution"),
	ChartRadar:         info(ChartRadar, "🕸️", "Radar", "Radar", "Profil multidimensionnel", "Multi-dimensional profile"),
	ChartGauge:         info(ChartGauge, "🎛️", "Jauge", "Gauge", "Valeur vs objectif", "Value versus target"),
	ChartCandlestick:   info(ChartCandlestick, "🕯️", "Chandelier", "Candlestick", "Min/Max/Ouv/Ferm", "Open/close/low/high"),
	ChartSankey:        info(ChartSankey, "🔀", "Sankey", "Sankey", "Flux entre catégories", "Flows between categories"),
}

func info(t ChartType, icon, labelFR, labelEN, descFR, descEN string) ChartInfo {
	return ChartInfo{
		Type:        t,
		Icon:        icon,
		Label:       map[string]string{"default": labelFR, "fr": labelFR, "en": labelEN},
		Description: map[string]string{"default": descFR, "fr": descFR, "en": descEN},
	}
}

// ChartCategories returns the picker categories in display order.
func ChartCategories() []ChartCategory {
	out := make([]ChartCategory, len(chartCategories))
	for i, c := range chartCategories {
		c.Types = append([]ChartType(nil), c.Types...)
		out[i] = c
	}
	return out
}

// ChartCatalog returns picker metadata for every chart type, with categories filled in.
func ChartCatalog() []ChartInfo {
	out := make([]ChartInfo, 0, chartTypeCount-1)
	for _, cat := range chartCategories {
		for _, t := range cat.Types {
			item := chartInfo[t]
			item.Category = cat.Code
			out = append(out, item)
		}
	}
	return out
}

// Info returns the picker metadata for t.
func (t ChartType) Info() (ChartInfo, bool) {
	if !t.Valid() {
		return ChartInfo{}, false
	}
	for _, item := range ChartCatalog() {
		if item.Type == t {
			return item, true
		}
	}
	return ChartInfo{}, false
}
