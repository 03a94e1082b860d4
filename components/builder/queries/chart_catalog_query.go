package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// ChartCatalogInput selects the label language.
type ChartCatalogInput struct {
	Locale string `json:"locale"`
}

// ChartOption is one localized picker entry.
type ChartOption struct {
	Type        builder.ChartType `json:"type"`
	Icon        string            `json:"icon"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
}

// ChartGroup is a localized picker category.
type ChartGroup struct {
	Code    string        `json:"code"`
	Label   string        `json:"label"`
	Options []ChartOption `json:"options"`
}

// ChartCatalogQuery lists chart types for the picker.
type ChartCatalogQuery struct{}

// NewChartCatalogQuery builds the query.
func NewChartCatalogQuery() *ChartCatalogQuery {
	return &ChartCatalogQuery{}
}

var _ gocommand.Querier[ChartCatalogInput, []ChartGroup] = (*ChartCatalogQuery)(nil)

// Query returns the categories in display order.
func (q *ChartCatalogQuery) Query(_ context.Context, input ChartCatalogInput) ([]ChartGroup, error) {
	locale := input.Locale
	if locale == "" {
		locale = builder.DefaultLocale
	}
	byType := map[builder.ChartType]builder.ChartInfo{}
	for _, info := range builder.ChartCatalog() {
		byType[info.Type] = info
	}
	categories := builder.ChartCategories()
	out := make([]ChartGroup, 0, len(categories))
	for _, cat := range categories {
		group := ChartGroup{
			Code:    cat.Code,
			Label:   builder.ResolveLocalizedValue(cat.Label, locale, cat.Code),
			Options: make([]ChartOption, 0, len(cat.Types)),
		}
		for _, t := range cat.Types {
			info := byType[t]
			group.Options = append(group.Options, ChartOption{
				Type:        t,
				Icon:        info.Icon,
				Label:       info.LabelFor(locale),
				Description: info.DescriptionFor(locale),
			})
		}
		out = append(out, group)
	}
	return out, nil
}
