package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderStartsEmpty(t *testing.T) {
	b := newTestBuilder(nil, nil)
	assert.Empty(t, b.Panels())
	assert.Equal(t, 1, b.NextPanelID())
	assert.Equal(t, 1, b.HistoryLen())
	assert.False(t, b.CanUndo())
	assert.False(t, b.CanRedo())
}

func TestAddPanelAssignsIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	first, err := b.AddPanel(ctx, PanelConfig{})
	require.NoError(t, err)
	second, err := b.AddPanel(ctx, PanelConfig{ColSpan: 6})
	require.NoError(t, err)
	require.NoError(t, b.RemovePanel(ctx, first.ID))
	third, err := b.AddPanel(ctx, PanelConfig{})
	require.NoError(t, err)

	assert.Equal(t, 1, first.ID)
	assert.Equal(t, 2, second.ID)
	assert.Equal(t, 3, third.ID, "ids are never reused")
	assert.Equal(t, 4, b.NextPanelID())
	assert.Equal(t, 5, b.HistoryLen())

	_, err = b.AddPanel(ctx, PanelConfig{ColSpan: 0, RowSpan: -1})
	assert.ErrorIs(t, err, ErrInvalidRowSpan)
}

func TestUndoRestoresPreviousState(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newCountingSource(gdp), nil)
	_, err := b.AddPanel(ctx, PanelConfig{})
	require.NoError(t, err)
	before := b.Snapshot()

	require.NoError(t, b.ResizePanel(ctx, 1, 8))
	after := b.Snapshot()
	require.False(t, before.Equal(after))

	undone, err := b.Undo(ctx)
	require.NoError(t, err)
	require.True(t, undone)
	assert.True(t, b.Snapshot().Equal(before))
	assert.True(t, b.CanRedo())

	redone, err := b.Redo(ctx)
	require.NoError(t, err)
	require.True(t, redone)
	assert.True(t, b.Snapshot().Equal(after))
}

func TestUndoAtBaselineIsNoop(t *testing.T) {
	b := newTestBuilder(nil, nil)
	ok, err := b.Undo(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = b.Redo(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMutationAfterUndoDropsRedo(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	b.AddPanel(ctx, PanelConfig{})
	b.AddPanel(ctx, PanelConfig{})
	b.Undo(ctx)
	require.True(t, b.CanRedo())

	b.AddPanel(ctx, PanelConfig{})
	assert.False(t, b.CanRedo())
	assert.Equal(t, []int{1, 2}, panelIDs(b.Panels()), "undo restores next id so the new panel reuses 2")
}

func TestHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder(Options{HistoryLimit: 5})
	for i := 0; i < 10; i++ {
		_, err := b.AddPanel(ctx, PanelConfig{})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, b.HistoryLen())
	steps := 0
	for {
		ok, err := b.Undo(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		steps++
	}
	assert.Equal(t, 4, steps)
	assert.Len(t, b.Panels(), 6)
}

func TestRemovePanelTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	b.AddPanel(ctx, PanelConfig{})
	b.AddPanel(ctx, PanelConfig{})
	require.NoError(t, b.RemovePanel(ctx, 1))
	state := b.Snapshot()
	depth := b.HistoryLen()

	err := b.RemovePanel(ctx, 1)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, 1, nf.PanelID)
	assert.True(t, IsNotFound(err))
	assert.True(t, b.Snapshot().Equal(state))
	assert.Equal(t, depth, b.HistoryLen())
}

func TestMissingPanelLeavesStateAndHistoryAlone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	b := newTestBuilder(nil, store)
	b.AddPanel(ctx, PanelConfig{})
	b.AddPanel(ctx, PanelConfig{})
	state := b.Snapshot()
	depth := b.HistoryLen()
	stored, _, _ := store.Get(ctx, DefaultStorageKey)

	assert.True(t, IsNotFound(b.ResizePanel(ctx, 3, 6)))
	assert.True(t, IsNotFound(b.SetChartType(ctx, 3, ChartLine)))
	assert.True(t, IsNotFound(b.AssignIndicators(ctx, 3, []IndicatorRef{{Code: "X"}})))
	assert.True(t, IsNotFound(b.MovePanel(ctx, 3, 1)))

	assert.True(t, b.Snapshot().Equal(state))
	assert.Equal(t, depth, b.HistoryLen())
	after, _, _ := store.Get(ctx, DefaultStorageKey)
	assert.Equal(t, stored, after, "no persistence write for a missing panel")
}

func TestResizeValidatesSpan(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	b.AddPanel(ctx, PanelConfig{})
	assert.ErrorIs(t, b.ResizePanel(ctx, 1, 0), ErrInvalidColSpan)
	assert.ErrorIs(t, b.ResizePanel(ctx, 1, 13), ErrInvalidColSpan)
	require.NoError(t, b.SetRowSpan(ctx, 1, 2))
	p, _ := b.Panel(1)
	assert.Equal(t, 4, p.ColSpan)
	assert.Equal(t, 2, p.RowSpan)
}

func TestAssignIndicatorsFetchesOnlyMissingCodes(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource(gdp, cpi)
	b := newTestBuilder(src, nil)
	b.AddPanel(ctx, PanelConfig{})

	require.NoError(t, b.AssignIndicators(ctx, 1, []IndicatorRef{{Code: gdp.Code, Name: gdp.Name}}))
	require.NoError(t, b.AssignIndicators(ctx, 1, []IndicatorRef{{Code: gdp.Code}, {Code: cpi.Code}}))
	require.NoError(t, b.SetChartType(ctx, 1, ChartLine))

	assert.Equal(t, 1, src.Calls(gdp.Code), "cached series must not be fetched again")
	assert.Equal(t, 1, src.Calls(cpi.Code))
	p, _ := b.Panel(1)
	assert.Len(t, p.DataCache, 2)
}

func TestFetchFailureKeepsPanelConfigured(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource(gdp)
	src.fail[gdp.Code] = true
	b := newTestBuilder(src, nil)
	b.AddPanel(ctx, PanelConfig{ChartType: ChartLine})

	require.NoError(t, b.AssignIndicators(ctx, 1, []IndicatorRef{{Code: gdp.Code}}))
	p, _ := b.Panel(1)
	assert.Len(t, p.Indicators, 1)
	assert.Empty(t, p.DataCache)
	tiles := b.Tiles()
	require.Len(t, tiles, 1)
	assert.Equal(t, TileNoData, tiles[0].State)
}

func TestChooseChartScenario(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newCountingSource(gdp), nil)
	b.AddPanel(ctx, PanelConfig{})
	require.Equal(t, TileEmpty, b.Tiles()[0].State)

	require.NoError(t, b.AssignIndicators(ctx, 1, []IndicatorRef{{Code: gdp.Code, Name: gdp.Name}}))
	tile := b.Tiles()[0]
	assert.Equal(t, TileChooseChart, tile.State)
	assert.Equal(t, 2010, tile.DataFrom)
	assert.Equal(t, 2019, tile.DataTo)

	require.NoError(t, b.SetChartType(ctx, 1, ChartBar))
	tile = b.Tiles()[0]
	assert.Equal(t, TileChart, tile.State)
	assert.Contains(t, tile.HTML, ChartNodeID(1))

	require.NoError(t, b.SetChartType(ctx, 1, ChartUnset))
	assert.Equal(t, TileChooseChart, b.Tiles()[0].State)
}

func TestInvertedYearRangeRendersNoData(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newCountingSource(gdp), nil)
	b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartLine})
	require.Equal(t, TileChart, b.Tiles()[0].State)

	require.NoError(t, b.SetYearRange(ctx, 1, intp(2018), intp(2012)))
	assert.Equal(t, TileNoData, b.Tiles()[0].State)

	require.NoError(t, b.SetYearRange(ctx, 1, nil, nil))
	assert.Equal(t, TileChart, b.Tiles()[0].State)
}

func TestUndoReusesCachedSeries(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource(gdp)
	b := newTestBuilder(src, nil)
	b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartLine})
	require.NoError(t, b.ResizePanel(ctx, 1, 12))

	b.Undo(ctx)
	b.Redo(ctx)
	assert.Equal(t, 1, src.Calls(gdp.Code))
	assert.Equal(t, TileChart, b.Tiles()[0].State)
}

func TestUndoRefetchesEvictedSeries(t *testing.T) {
	ctx := context.Background()
	src := newCountingSource(gdp)
	b := newTestBuilder(src, nil)
	b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}})
	require.NoError(t, b.RemovePanel(ctx, 1))

	ok, err := b.Undo(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	p, found := b.Panel(1)
	require.True(t, found)
	assert.Contains(t, p.DataCache, gdp.Code)
	assert.Equal(t, 2, src.Calls(gdp.Code))
}

func TestMovePanel(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	for i := 0; i < 4; i++ {
		b.AddPanel(ctx, PanelConfig{})
	}
	require.NoError(t, b.MovePanel(ctx, 1, 3))
	assert.Equal(t, []int{2, 3, 1, 4}, panelIDs(b.Panels()))

	require.NoError(t, b.MovePanel(ctx, 4, 2))
	assert.Equal(t, []int{4, 2, 3, 1}, panelIDs(b.Panels()))

	depth := b.HistoryLen()
	require.NoError(t, b.MovePanel(ctx, 3, 3))
	assert.Equal(t, depth, b.HistoryLen())
}

func TestReorderPanels(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	for i := 0; i < 3; i++ {
		b.AddPanel(ctx, PanelConfig{})
	}
	require.NoError(t, b.ReorderPanels(ctx, []int{3, 99, 1}))
	assert.Equal(t, []int{3, 1, 2}, panelIDs(b.Panels()))

	depth := b.HistoryLen()
	require.NoError(t, b.ReorderPanels(ctx, []int{3, 1, 2}))
	assert.Equal(t, depth, b.HistoryLen(), "unchanged order must not be recorded")
}

func TestSetStylingIsOneStep(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	b.AddPanel(ctx, PanelConfig{})
	depth := b.HistoryLen()
	title, family := "Titre", "Georgia"
	require.NoError(t, b.SetStyling(ctx, 1, StylingPatch{Title: &title, FontFamily: &family, Palette: "earth"}))
	assert.Equal(t, depth+1, b.HistoryLen())

	p, _ := b.Panel(1)
	earth, _ := Palette("earth")
	assert.Equal(t, "Titre", p.Title)
	assert.Equal(t, "Georgia", p.FontFamily)
	assert.Equal(t, earth, p.Colors)

	err := b.SetStyling(ctx, 1, StylingPatch{Palette: "neon"})
	assert.ErrorIs(t, err, ErrUnknownPalette)
	assert.Equal(t, depth+1, b.HistoryLen())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	src := newCountingSource(gdp, cpi)
	b := newTestBuilder(src, store)
	b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartArea})
	b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: cpi.Code}}, ColSpan: 8})
	b.SetYearRange(ctx, 2, intp(2012), nil)
	saved := b.Snapshot()

	restored := newTestBuilder(src, store)
	found, err := restored.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, restored.Snapshot().Equal(saved))
	assert.Equal(t, 3, restored.NextPanelID())
	assert.Equal(t, 1, restored.HistoryLen())
	assert.False(t, restored.CanUndo())

	p, _ := restored.Panel(1)
	assert.Contains(t, p.DataCache, gdp.Code)
}

func TestLoadDiscardsMalformedState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Set(ctx, DefaultStorageKey, []byte(`{"panels":"oops"}`))
	b := newTestBuilder(nil, store)
	found, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, b.Panels())
	assert.Equal(t, 1, b.NextPanelID())
}

func TestSaveFailureDoesNotBlockMutation(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, &failingStore{})
	_, err := b.AddPanel(ctx, PanelConfig{})
	require.NoError(t, err)
	assert.Len(t, b.Panels(), 1)
	assert.Error(t, b.Save(ctx))
}

func TestResetClearsEverything(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	b := newTestBuilder(newCountingSource(gdp), store)
	b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartLine})
	b.AddPanel(ctx, PanelConfig{})

	require.NoError(t, b.Reset(ctx))
	assert.Empty(t, b.Panels())
	assert.Equal(t, 1, b.NextPanelID())
	assert.Equal(t, 1, b.HistoryLen())
	_, ok, _ := store.Get(ctx, DefaultStorageKey)
	assert.False(t, ok)

	p, err := b.AddPanel(ctx, PanelConfig{})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
}

func TestAssignOrAdd(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newCountingSource(gdp, cpi), nil)
	p, err := b.AssignOrAdd(ctx, 0, []IndicatorRef{{Code: gdp.Code}})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)

	p, err = b.AssignOrAdd(ctx, 1, []IndicatorRef{{Code: cpi.Code}})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, cpi.Code, p.Indicators[0].Code)

	p, err = b.AssignOrAdd(ctx, 42, []IndicatorRef{{Code: cpi.Code}})
	require.NoError(t, err)
	assert.Equal(t, 2, p.ID)
}

func TestApplyPresetIsOneHistoryEntry(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newCountingSource(gdp, cpi), nil)
	preset := Preset{Version: PresetVersion, Name: "pair", Panels: []PanelConfig{
		{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartLine},
		{Indicators: []IndicatorRef{{Code: cpi.Code}}, ChartType: ChartGauge},
	}}
	require.NoError(t, b.ApplyPreset(ctx, preset))
	assert.Len(t, b.Panels(), 2)
	assert.Equal(t, 2, b.HistoryLen())

	b.Undo(ctx)
	assert.Empty(t, b.Panels())

	assert.Error(t, b.ApplyPreset(ctx, Preset{Version: "2", Name: "bad", Panels: preset.Panels}))
}

func TestHookReceivesEvents(t *testing.T) {
	ctx := context.Background()
	hook := &recordingHook{}
	b := NewBuilder(Options{SessionID: "s-1", ChangeHook: hook})
	b.AddPanel(ctx, PanelConfig{})
	b.ResizePanel(ctx, 1, 6)
	b.Undo(ctx)
	b.Reset(ctx)

	assert.Equal(t, []string{"add", "resize", "undo", "reset"}, hook.Reasons())
	assert.Equal(t, "s-1", hook.events[0].SessionID)
	assert.Equal(t, 1, hook.events[0].PanelID)
}

func TestOperationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(newCountingSource(gdp), nil)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}})
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	ids := panelIDs(b.Panels())
	assert.Len(t, ids, 8)
	assert.Equal(t, 9, b.NextPanelID())
	assert.Equal(t, 9, b.HistoryLen())
}

func TestQueuedCallHonoursContext(t *testing.T) {
	b := newTestBuilder(nil, nil)
	require.NoError(t, b.acquire(context.Background()))
	defer b.release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.AddPanel(ctx, PanelConfig{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func panelIDs(panels []Panel) []int {
	ids := make([]int, len(panels))
	for i, p := range panels {
		ids[i] = p.ID
	}
	return ids
}

type builderOp struct {
	name string
	run  func(context.Context, *Builder) error
}

func addOp(cfg PanelConfig) builderOp {
	return builderOp{"add", func(ctx context.Context, b *Builder) error {
		_, err := b.AddPanel(ctx, cfg)
		return err
	}}
}

func TestUndoRedoAcrossMixedOperations(t *testing.T) {
	title := "Croissance"
	family := "Georgia"
	cases := []struct {
		name  string
		setup []builderOp
		ops   []builderOp
	}{
		{
			name: "from empty",
			ops: []builderOp{
				addOp(PanelConfig{}),
				addOp(PanelConfig{Indicators: []IndicatorRef{{Code: cpi.Code}}, ChartType: ChartBar}),
				{"resize", func(ctx context.Context, b *Builder) error { return b.ResizePanel(ctx, 1, 8) }},
				{"assign", func(ctx context.Context, b *Builder) error {
					return b.AssignIndicators(ctx, 1, []IndicatorRef{{Code: gdp.Code}, {Code: pop.Code}})
				}},
				{"chart type", func(ctx context.Context, b *Builder) error { return b.SetChartType(ctx, 1, ChartLine) }},
				{"styling", func(ctx context.Context, b *Builder) error {
					return b.SetStyling(ctx, 1, StylingPatch{Title: &title, FontFamily: &family, Palette: "earth"})
				}},
				{"year range", func(ctx context.Context, b *Builder) error { return b.SetYearRange(ctx, 1, intp(2013), intp(2016)) }},
				{"move", func(ctx context.Context, b *Builder) error { return b.MovePanel(ctx, 2, 1) }},
				{"remove", func(ctx context.Context, b *Builder) error { return b.RemovePanel(ctx, 1) }},
			},
		},
		{
			name: "over a configured dashboard",
			setup: []builderOp{
				addOp(PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartArea}),
				addOp(PanelConfig{Indicators: []IndicatorRef{{Code: cpi.Code}}, ChartType: ChartPie}),
				addOp(PanelConfig{}),
			},
			ops: []builderOp{
				{"row span", func(ctx context.Context, b *Builder) error { return b.SetRowSpan(ctx, 3, 2) }},
				{"remove", func(ctx context.Context, b *Builder) error { return b.RemovePanel(ctx, 2) }},
				addOp(PanelConfig{Indicators: []IndicatorRef{{Code: pop.Code}}}),
				{"reorder", func(ctx context.Context, b *Builder) error { return b.ReorderPanels(ctx, []int{4, 3, 1}) }},
				{"chart type", func(ctx context.Context, b *Builder) error { return b.SetChartType(ctx, 4, ChartTreemap) }},
				{"clear years", func(ctx context.Context, b *Builder) error { return b.SetYearRange(ctx, 1, nil, intp(2015)) }},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			b := newTestBuilder(newCountingSource(gdp, cpi, pop), nil)
			for _, op := range tc.setup {
				require.NoError(t, op.run(ctx, b), op.name)
			}

			states := []Snapshot{b.Snapshot()}
			for _, op := range tc.ops {
				require.NoError(t, op.run(ctx, b), op.name)
				states = append(states, b.Snapshot())
			}
			n := len(tc.ops)

			for i := n - 1; i >= 0; i-- {
				ok, err := b.Undo(ctx)
				require.NoError(t, err)
				require.True(t, ok, "undo %s", tc.ops[i].name)
				require.True(t, b.Snapshot().Equal(states[i]), "state after undoing %s", tc.ops[i].name)
			}
			assert.True(t, b.Snapshot().Equal(states[0]))

			for i := 1; i <= n; i++ {
				ok, err := b.Redo(ctx)
				require.NoError(t, err)
				require.True(t, ok, "redo %s", tc.ops[i-1].name)
				require.True(t, b.Snapshot().Equal(states[i]), "state after redoing %s", tc.ops[i-1].name)
			}
			assert.False(t, b.CanRedo())
		})
	}
}

func TestDefaultHistoryLimitDropsOldestEntry(t *testing.T) {
	ctx := context.Background()
	b := newTestBuilder(nil, nil)
	var afterSecond Snapshot
	for i := 1; i <= DefaultHistoryLimit+1; i++ {
		_, err := b.AddPanel(ctx, PanelConfig{})
		require.NoError(t, err)
		if i == 2 {
			afterSecond = b.Snapshot()
		}
	}
	assert.Equal(t, DefaultHistoryLimit, b.HistoryLen())

	steps := 0
	for {
		ok, err := b.Undo(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		steps++
	}
	assert.Equal(t, DefaultHistoryLimit-1, steps)
	assert.True(t, b.Snapshot().Equal(afterSecond), "the empty baseline and the first add fell off the timeline")
	assert.Equal(t, []int{1, 2}, panelIDs(b.Panels()))
}
