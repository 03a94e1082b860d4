package queries

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// IndicatorSearchInput filters the indicator catalog.
type IndicatorSearchInput struct {
	Query string `json:"q"`
	Limit int    `json:"limit"`
}

type indicatorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]builder.Indicator, error)
}

// IndicatorSearchQuery backs the indicator picker.
type IndicatorSearchQuery struct {
	catalog indicatorSearcher
}

// NewIndicatorSearchQuery builds the query.
func NewIndicatorSearchQuery(catalog indicatorSearcher) *IndicatorSearchQuery {
	return &IndicatorSearchQuery{catalog: catalog}
}

var _ gocommand.Querier[IndicatorSearchInput, []builder.Indicator] = (*IndicatorSearchQuery)(nil)

// Query searches the catalog.
func (q *IndicatorSearchQuery) Query(ctx context.Context, input IndicatorSearchInput) ([]builder.Indicator, error) {
	if q.catalog == nil {
		return nil, errors.New("queries: indicator catalog is required")
	}
	return q.catalog.Search(ctx, input.Query, input.Limit)
}
