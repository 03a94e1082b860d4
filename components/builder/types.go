package builder

import "context"

// SeriesSource fetches the time series payload for a single indicator code.
// Implementations must be safe for concurrent use.
type SeriesSource interface {
	FetchIndicator(ctx context.Context, code string) (Series, error)
}

// IndicatorCatalog lists the indicators available from the backend.
type IndicatorCatalog interface {
	ListIndicators(ctx context.Context) ([]Indicator, error)
}

// GridRenderer materializes panel state into tiles and owns chart instances.
type GridRenderer interface {
	Render(ctx context.Context, panels []Panel) []Tile
	DisposePanel(id int)
	DisposeAll()
}

// ChangeHook notifies transports (REST/WebSocket) about committed builder changes.
type ChangeHook interface {
	BuilderUpdated(ctx context.Context, event Event) error
}

// Indicator is a catalog entry returned by the backend. Immutable once fetched.
type Indicator struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit,omitempty"`
	SourceLink  string `json:"source_link,omitempty"`
}

// Ref returns the reference stored on panels.
func (i Indicator) Ref() IndicatorRef {
	return IndicatorRef{Code: i.Code, Name: i.Name}
}

// IndicatorRef is the panel-side reference to an indicator.
type IndicatorRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SeriesPoint is one (year, value) observation. Value is nil when the backend
// reports no observation for the year.
type SeriesPoint struct {
	Year  int      `json:"year"`
	Value *float64 `json:"value"`
}

// Series is the per-indicator payload cached on panels.
type Series struct {
	Code       string        `json:"code"`
	Name       string        `json:"name"`
	Unit       string        `json:"unit,omitempty"`
	Source     string        `json:"source,omitempty"`
	SourceLink string        `json:"source_link,omitempty"`
	Values     []SeriesPoint `json:"values"`
}

// Years lists the years carrying a value, in series order.
func (s Series) Years() []int {
	out := make([]int, 0, len(s.Values))
	for _, v := range s.Values {
		if v.Value != nil {
			out = append(out, v.Year)
		}
	}
	return out
}

// Event describes a committed change that transports might care about.
type Event struct {
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason"`
	PanelID   int    `json:"panel_id,omitempty"`
}

type noopChangeHook struct{}

func (noopChangeHook) BuilderUpdated(context.Context, Event) error { return nil }

type nopSource struct{}

func (nopSource) FetchIndicator(context.Context, string) (Series, error) {
	return Series{}, errMissingSource
}
