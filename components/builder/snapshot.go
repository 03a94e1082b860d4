package builder

import "slices"

// PanelState is the undo projection of a Panel: every field except the data cache.
type PanelState struct {
	ID         int
	ColSpan    int
	RowSpan    int
	Indicators []IndicatorRef
	ChartType  ChartType
	Title      string
	AxisXLabel string
	AxisYLabel string
	Colors     []string
	FontFamily string
	FontSize   int
	ShowLegend bool
	ShowGrid   bool
	Smooth     bool
	YearStart  *int
	YearEnd    *int
}

// Snapshot is one immutable history entry.
type Snapshot struct {
	Panels      []PanelState
	NextPanelID int
}

func (p Panel) state() PanelState {
	return PanelState{
		ID:         p.ID,
		ColSpan:    p.ColSpan,
		RowSpan:    p.RowSpan,
		Indicators: append([]IndicatorRef{}, p.Indicators...),
		ChartType:  p.ChartType,
		Title:      p.Title,
		AxisXLabel: p.AxisXLabel,
		AxisYLabel: p.AxisYLabel,
		Colors:     append([]string{}, p.Colors...),
		FontFamily: p.FontFamily,
		FontSize:   p.FontSize,
		ShowLegend: p.ShowLegend,
		ShowGrid:   p.ShowGrid,
		Smooth:     p.Smooth,
		YearStart:  copyInt(p.YearStart),
		YearEnd:    copyInt(p.YearEnd),
	}
}

// panel rebuilds a Panel with an empty data cache.
func (s PanelState) panel() Panel {
	return Panel{
		ID:         s.ID,
		ColSpan:    s.ColSpan,
		RowSpan:    s.RowSpan,
		Indicators: append([]IndicatorRef{}, s.Indicators...),
		ChartType:  s.ChartType,
		Title:      s.Title,
		AxisXLabel: s.AxisXLabel,
		AxisYLabel: s.AxisYLabel,
		Colors:     append([]string{}, s.Colors...),
		FontFamily: s.FontFamily,
		FontSize:   s.FontSize,
		ShowLegend: s.ShowLegend,
		ShowGrid:   s.ShowGrid,
		Smooth:     s.Smooth,
		YearStart:  copyInt(s.YearStart),
		YearEnd:    copyInt(s.YearEnd),
		DataCache:  map[string]Series{},
	}
}

// Equal compares two panel states field by field. Nil and empty slices are equal.
func (s PanelState) Equal(o PanelState) bool {
	return s.ID == o.ID &&
		s.ColSpan == o.ColSpan &&
		s.RowSpan == o.RowSpan &&
		slices.Equal(s.Indicators, o.Indicators) &&
		s.ChartType == o.ChartType &&
		s.Title == o.Title &&
		s.AxisXLabel == o.AxisXLabel &&
		s.AxisYLabel == o.AxisYLabel &&
		slices.Equal(s.Colors, o.Colors) &&
		s.FontFamily == o.FontFamily &&
		s.FontSize == o.FontSize &&
		s.ShowLegend == o.ShowLegend &&
		s.ShowGrid == o.ShowGrid &&
		s.Smooth == o.Smooth &&
		intPtrEqual(s.YearStart, o.YearStart) &&
		intPtrEqual(s.YearEnd, o.YearEnd)
}

// Equal reports structural equality of two snapshots.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.NextPanelID != o.NextPanelID || len(s.Panels) != len(o.Panels) {
		return false
	}
	for i := range s.Panels {
		if !s.Panels[i].Equal(o.Panels[i]) {
			return false
		}
	}
	return true
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{NextPanelID: s.NextPanelID, Panels: make([]PanelState, len(s.Panels))}
	for i, p := range s.Panels {
		out.Panels[i] = p.panel().state()
	}
	return out
}

func snapshotOf(panels []Panel, nextID int) Snapshot {
	out := Snapshot{NextPanelID: nextID, Panels: make([]PanelState, len(panels))}
	for i, p := range panels {
		out.Panels[i] = p.state()
	}
	return out
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
