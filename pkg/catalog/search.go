package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// SortByName orders indicators by name using French collation, falling back
// to the code for equal names.
func SortByName(list []builder.Indicator) {
	col := collate.New(language.French, collate.IgnoreCase)
	sort.SliceStable(list, func(i, j int) bool {
		if c := col.CompareString(list[i].Name, list[j].Name); c != 0 {
			return c < 0
		}
		return list[i].Code < list[j].Code
	})
}

// Filter applies the catalog search rules to an already sorted list.
func Filter(list []builder.Indicator, query string, limit int) []builder.Indicator {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]builder.Indicator, 0, min(limit, len(list)))
	for _, item := range list {
		if len(out) == limit {
			break
		}
		if len([]rune(query)) < 2 || matches(item, query) {
			out = append(out, item)
		}
	}
	return out
}

func matches(item builder.Indicator, query string) bool {
	return strings.Contains(strings.ToLower(item.Name), query) ||
		strings.Contains(strings.ToLower(item.Code), query) ||
		strings.Contains(strings.ToLower(item.Description), query)
}

// Static is an in-memory catalog and series source.
type Static struct {
	indicators []builder.Indicator
	series     map[string]builder.Series
}

var (
	_ builder.SeriesSource     = (*Static)(nil)
	_ builder.IndicatorCatalog = (*Static)(nil)
)

// NewStatic builds a catalog from series; each series also contributes a
// catalog entry.
func NewStatic(series ...builder.Series) *Static {
	s := &Static{series: make(map[string]builder.Series, len(series))}
	for _, item := range series {
		s.series[item.Code] = item
		s.indicators = append(s.indicators, builder.Indicator{
			Code:       item.Code,
			Name:       item.Name,
			Unit:       item.Unit,
			SourceLink: item.SourceLink,
		})
	}
	SortByName(s.indicators)
	return s
}

func (s *Static) ListIndicators(context.Context) ([]builder.Indicator, error) {
	return append([]builder.Indicator(nil), s.indicators...), nil
}

func (s *Static) Search(ctx context.Context, query string, limit int) ([]builder.Indicator, error) {
	return Filter(s.indicators, query, limit), nil
}

func (s *Static) FetchIndicator(_ context.Context, code string) (builder.Series, error) {
	series, ok := s.series[code]
	if !ok {
		return builder.Series{}, fmt.Errorf("catalog: unknown indicator %q", code)
	}
	return series, nil
}
