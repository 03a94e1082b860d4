package builder

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Options configures a Builder. Every collaborator is provided via interface so
// hosts can swap the series source, store and renderer.
type Options struct {
	SessionID    string
	Source       SeriesSource
	Store        Store
	StorageKey   string
	Grid         GridRenderer
	ChangeHook   ChangeHook
	Telemetry    Telemetry
	Validator    StateValidator
	Logger       *zerolog.Logger
	HistoryLimit int
}

// Builder is one dashboard-builder session: the panel collection, its undo
// timeline and the persistence/rendering side effects of every mutation.
//
// Operations are serialized: a call waits for the one in flight, including
// undo/redo/load while they re-fetch series data. Reads never wait on that
// queue.
type Builder struct {
	opts Options
	log  zerolog.Logger

	// queue admits one operation at a time.
	queue chan struct{}

	mu        sync.RWMutex
	panels    []Panel
	nextID    int
	history   *History
	tiles     []Tile
	restoring bool
}

// NewBuilder builds an empty session with safe defaults and records the empty
// dashboard as the history baseline.
func NewBuilder(opts Options) *Builder {
	if opts.Source == nil {
		opts.Source = nopSource{}
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	if opts.Grid == nil {
		opts.Grid = NewGrid(GridOptions{})
	}
	if opts.ChangeHook == nil {
		opts.ChangeHook = noopChangeHook{}
	}
	if opts.Validator == nil {
		opts.Validator = NewJSONSchemaStateValidator()
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("component", "builder").Str("storage_key", opts.StorageKey).Logger()
	if opts.SessionID != "" {
		logger = logger.With().Str("session_id", opts.SessionID).Logger()
	}
	b := &Builder{
		opts:    opts,
		log:     logger,
		queue:   make(chan struct{}, 1),
		nextID:  1,
		history: NewHistory(opts.HistoryLimit),
	}
	b.history.Reset(snapshotOf(nil, b.nextID))
	return b
}

// SessionID returns the session identifier, if any.
func (b *Builder) SessionID() string { return b.opts.SessionID }

// StorageKey returns the key the session persists under.
func (b *Builder) StorageKey() string { return b.opts.StorageKey }

func (b *Builder) acquire(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case b.queue <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Builder) release() { <-b.queue }

// AddPanel appends a panel built from cfg and returns it. Series for any
// configured indicators are fetched before the grid re-renders.
func (b *Builder) AddPanel(ctx context.Context, cfg PanelConfig) (Panel, error) {
	if err := cfg.validate(); err != nil {
		return Panel{}, err
	}
	if err := b.acquire(ctx); err != nil {
		return Panel{}, err
	}
	defer b.release()

	b.mu.Lock()
	panel := newPanel(b.nextID, cfg)
	b.nextID++
	b.panels = append(b.panels, panel)
	b.mu.Unlock()

	b.commit(ctx, Event{Reason: "add", PanelID: panel.ID}, panel.ID)
	created, _ := b.Panel(panel.ID)
	return created, nil
}

// AssignOrAdd replaces the indicators of panel id, or adds a new panel holding
// them when id is zero or unknown.
func (b *Builder) AssignOrAdd(ctx context.Context, id int, refs []IndicatorRef) (Panel, error) {
	if id > 0 {
		err := b.AssignIndicators(ctx, id, refs)
		if err == nil {
			p, _ := b.Panel(id)
			return p, nil
		}
		if !IsNotFound(err) {
			return Panel{}, err
		}
	}
	return b.AddPanel(ctx, PanelConfig{Indicators: refs})
}

// RemovePanel disposes the panel's chart and removes it. Removing an absent id
// returns a *NotFoundError and changes nothing.
func (b *Builder) RemovePanel(ctx context.Context, id int) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return notFound(id)
	}
	b.opts.Grid.DisposePanel(id)
	b.panels = append(b.panels[:idx:idx], b.panels[idx+1:]...)
	b.mu.Unlock()

	b.commit(ctx, Event{Reason: "remove", PanelID: id})
	return nil
}

// ResizePanel sets the column span of one panel, leaving its row span alone.
func (b *Builder) ResizePanel(ctx context.Context, id, colSpan int) error {
	if colSpan < 1 || colSpan > GridColumns {
		return fmt.Errorf("%w: %d", ErrInvalidColSpan, colSpan)
	}
	return b.update(ctx, id, "resize", func(p *Panel) error {
		p.ColSpan = colSpan
		return nil
	})
}

// SetRowSpan sets the row multiplier of one panel.
func (b *Builder) SetRowSpan(ctx context.Context, id, rows int) error {
	if rows < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidRowSpan, rows)
	}
	return b.update(ctx, id, "resize", func(p *Panel) error {
		p.RowSpan = rows
		return nil
	})
}

// AssignIndicators replaces the panel's indicators and fetches only the codes
// missing from its cache.
func (b *Builder) AssignIndicators(ctx context.Context, id int, refs []IndicatorRef) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.mu.Lock()
	p := b.find(id)
	if p == nil {
		b.mu.Unlock()
		return notFound(id)
	}
	p.Indicators = append([]IndicatorRef{}, refs...)
	b.mu.Unlock()

	b.commit(ctx, Event{Reason: "indicators", PanelID: id}, id)
	return nil
}

// SetChartType selects the chart kind. ChartUnset clears the selection.
func (b *Builder) SetChartType(ctx context.Context, id int, chartType ChartType) error {
	if chartType.IsSet() && !chartType.Valid() {
		return ErrUnknownChartType
	}
	return b.update(ctx, id, "chart_type", func(p *Panel) error {
		p.ChartType = chartType
		return nil
	})
}

// SetStyling applies a partial styling update as a single history step.
func (b *Builder) SetStyling(ctx context.Context, id int, patch StylingPatch) error {
	return b.update(ctx, id, "styling", patch.apply)
}

// SetYearRange sets the displayed year bounds. Nil bounds derive from data.
func (b *Builder) SetYearRange(ctx context.Context, id int, start, end *int) error {
	return b.update(ctx, id, "year_range", func(p *Panel) error {
		p.YearStart = copyInt(start)
		p.YearEnd = copyInt(end)
		return nil
	})
}

// MovePanel drops panel srcID at the position currently held by targetID.
func (b *Builder) MovePanel(ctx context.Context, srcID, targetID int) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.mu.Lock()
	src, dst := b.indexOf(srcID), b.indexOf(targetID)
	switch {
	case src < 0:
		b.mu.Unlock()
		return notFound(srcID)
	case dst < 0:
		b.mu.Unlock()
		return notFound(targetID)
	case src == dst:
		b.mu.Unlock()
		return nil
	}
	moved := b.panels[src]
	rest := append(b.panels[:src:src], b.panels[src+1:]...)
	reordered := make([]Panel, 0, len(b.panels))
	reordered = append(reordered, rest[:dst]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, rest[dst:]...)
	b.panels = reordered
	b.mu.Unlock()

	b.commit(ctx, Event{Reason: "move", PanelID: srcID})
	return nil
}

// ReorderPanels sets the display order. Unknown ids are ignored and panels
// missing from ids keep their relative order after the listed ones.
func (b *Builder) ReorderPanels(ctx context.Context, ids []int) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.mu.Lock()
	placed := make(map[int]struct{}, len(ids))
	reordered := make([]Panel, 0, len(b.panels))
	for _, id := range ids {
		if _, dup := placed[id]; dup {
			continue
		}
		if idx := b.indexOf(id); idx >= 0 {
			reordered = append(reordered, b.panels[idx])
			placed[id] = struct{}{}
		}
	}
	for _, p := range b.panels {
		if _, ok := placed[p.ID]; !ok {
			reordered = append(reordered, p)
		}
	}
	changed := false
	for i := range reordered {
		if reordered[i].ID != b.panels[i].ID {
			changed = true
			break
		}
	}
	if changed {
		b.panels = reordered
	}
	b.mu.Unlock()

	if changed {
		b.commit(ctx, Event{Reason: "reorder"})
	}
	return nil
}

// Reset disposes every chart, empties the dashboard, removes the stored state
// and collapses the history to the empty baseline.
func (b *Builder) Reset(ctx context.Context) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.opts.Grid.DisposeAll()
	b.mu.Lock()
	b.panels = nil
	b.nextID = 1
	b.tiles = nil
	b.history.Reset(snapshotOf(nil, b.nextID))
	b.mu.Unlock()

	if err := b.opts.Store.Delete(ctx, b.opts.StorageKey); err != nil {
		b.log.Error().Err(err).Msg("remove stored dashboard")
	}
	b.notify(ctx, Event{Reason: "reset"})
	return nil
}

// ApplyPreset appends every panel of the preset as one history step.
func (b *Builder) ApplyPreset(ctx context.Context, preset Preset) error {
	if err := preset.Validate(); err != nil {
		return err
	}
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.mu.Lock()
	ids := make([]int, 0, len(preset.Panels))
	for _, cfg := range preset.Panels {
		panel := newPanel(b.nextID, cfg)
		b.nextID++
		b.panels = append(b.panels, panel)
		ids = append(ids, panel.ID)
	}
	b.mu.Unlock()

	b.commit(ctx, Event{Reason: "preset"}, ids...)
	return nil
}

// Undo restores the previous history entry and re-fetches evicted series. It
// reports false when already at the oldest entry.
func (b *Builder) Undo(ctx context.Context) (bool, error) {
	return b.step(ctx, "undo", (*History).Undo)
}

// Redo moves forward one history entry. It reports false at the newest entry.
func (b *Builder) Redo(ctx context.Context) (bool, error) {
	return b.step(ctx, "redo", (*History).Redo)
}

func (b *Builder) step(ctx context.Context, reason string, move func(*History) (Snapshot, bool)) (bool, error) {
	if err := b.acquire(ctx); err != nil {
		return false, err
	}
	defer b.release()

	b.mu.Lock()
	snap, ok := move(b.history)
	b.mu.Unlock()
	if !ok {
		return false, nil
	}
	b.restore(ctx, snap)
	b.save(ctx)
	b.notify(ctx, Event{Reason: reason})
	return true, nil
}

// Load replaces the session with the stored dashboard. Absent, unreadable or
// malformed state yields an empty dashboard. It reports whether stored state
// was applied.
func (b *Builder) Load(ctx context.Context) (bool, error) {
	if err := b.acquire(ctx); err != nil {
		return false, err
	}
	defer b.release()
	return b.load(ctx), nil
}

// load is Load for callers already holding the queue slot.
func (b *Builder) load(ctx context.Context) bool {
	snap, found := b.readStored(ctx)
	b.restore(ctx, snap)
	b.mu.Lock()
	b.history.Reset(snap)
	b.mu.Unlock()
	b.notify(ctx, Event{Reason: "load"})
	return found
}

func (b *Builder) readStored(ctx context.Context) (Snapshot, bool) {
	empty := snapshotOf(nil, 1)
	data, ok, err := b.opts.Store.Get(ctx, b.opts.StorageKey)
	if err != nil {
		b.log.Warn().Err(err).Msg("read stored dashboard")
		return empty, false
	}
	if !ok || len(data) == 0 {
		return empty, false
	}
	if err := b.opts.Validator.ValidateState(data); err != nil {
		b.log.Warn().Err(err).Msg("discarding malformed stored dashboard")
		return empty, false
	}
	panels, next, err := decodeState(data)
	if err != nil {
		b.log.Warn().Err(err).Msg("discarding malformed stored dashboard")
		return empty, false
	}
	return snapshotOf(panels, next), true
}

// restore applies snap with history recording suspended, keeping cached series
// of panels that survive and fetching the rest.
func (b *Builder) restore(ctx context.Context, snap Snapshot) {
	b.mu.Lock()
	b.restoring = true
	previous := make(map[int]map[string]Series, len(b.panels))
	for _, p := range b.panels {
		previous[p.ID] = p.DataCache
	}
	panels := make([]Panel, len(snap.Panels))
	ids := make([]int, len(snap.Panels))
	for i, state := range snap.Panels {
		panels[i] = state.panel()
		for _, ref := range panels[i].Indicators {
			if series, ok := previous[state.ID][ref.Code]; ok {
				panels[i].DataCache[ref.Code] = series
			}
		}
		ids[i] = state.ID
	}
	b.panels = panels
	b.nextID = snap.NextPanelID
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.restoring = false
		b.mu.Unlock()
	}()
	b.fetchPanels(ctx, ids)
	b.render(ctx)
}

// Save writes the current dashboard to the store.
func (b *Builder) Save(ctx context.Context) error {
	b.mu.RLock()
	data, err := encodeState(b.panels, b.nextID)
	b.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("builder: encode state: %w", err)
	}
	if err := b.opts.Store.Set(ctx, b.opts.StorageKey, data); err != nil {
		return fmt.Errorf("builder: save state: %w", err)
	}
	return nil
}

func (b *Builder) save(ctx context.Context) {
	if err := b.Save(ctx); err != nil {
		b.log.Error().Err(err).Msg("persist dashboard")
	}
}

// update runs fn against panel id as one committed mutation.
func (b *Builder) update(ctx context.Context, id int, reason string, fn func(*Panel) error) error {
	if err := b.acquire(ctx); err != nil {
		return err
	}
	defer b.release()

	b.mu.Lock()
	p := b.find(id)
	if p == nil {
		b.mu.Unlock()
		return notFound(id)
	}
	candidate := p.clone()
	if err := fn(&candidate); err != nil {
		b.mu.Unlock()
		return err
	}
	*p = candidate
	b.mu.Unlock()

	b.commit(ctx, Event{Reason: reason, PanelID: id})
	return nil
}

// commit records history, persists, fetches series for fetchIDs, re-renders
// and notifies listeners.
func (b *Builder) commit(ctx context.Context, event Event, fetchIDs ...int) {
	b.pushHistory()
	b.save(ctx)
	if len(fetchIDs) > 0 {
		b.fetchPanels(ctx, fetchIDs)
	}
	b.render(ctx)
	b.notify(ctx, event)
}

func (b *Builder) pushHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.restoring {
		return
	}
	b.history.Push(snapshotOf(b.panels, b.nextID))
}

func (b *Builder) render(ctx context.Context) {
	panels := b.Panels()
	tiles := b.opts.Grid.Render(ctx, panels)
	b.mu.Lock()
	b.tiles = tiles
	b.mu.Unlock()
}

func (b *Builder) notify(ctx context.Context, event Event) {
	event.SessionID = b.opts.SessionID
	if err := b.opts.ChangeHook.BuilderUpdated(ctx, event); err != nil {
		b.log.Warn().Err(err).Str("reason", event.Reason).Msg("change hook failed")
	}
	payload := map[string]any{"reason": event.Reason}
	if event.PanelID != 0 {
		payload["panel_id"] = event.PanelID
	}
	if event.SessionID != "" {
		payload["session_id"] = event.SessionID
	}
	b.opts.Telemetry.Record(ctx, "builder."+event.Reason, payload)
}

// Panels returns a deep copy of the collection in display order.
func (b *Builder) Panels() []Panel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Panel, len(b.panels))
	for i, p := range b.panels {
		out[i] = p.clone()
	}
	return out
}

// Panel returns a copy of one panel.
func (b *Builder) Panel(id int) (Panel, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if idx := b.indexOf(id); idx >= 0 {
		return b.panels[idx].clone(), true
	}
	return Panel{}, false
}

// Snapshot returns the current undo projection.
func (b *Builder) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return snapshotOf(b.panels, b.nextID)
}

// NextPanelID returns the id the next added panel will receive.
func (b *Builder) NextPanelID() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextID
}

// Tiles returns the tiles produced by the latest render.
func (b *Builder) Tiles() []Tile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Tile(nil), b.tiles...)
}

// Rerender renders the grid again without recording a mutation.
func (b *Builder) Rerender(ctx context.Context) ([]Tile, error) {
	if err := b.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.release()
	b.render(ctx)
	return b.Tiles(), nil
}

func (b *Builder) CanUndo() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.CanUndo()
}

func (b *Builder) CanRedo() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.CanRedo()
}

// HistoryLen reports the number of retained history entries.
func (b *Builder) HistoryLen() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.history.Len()
}

func (b *Builder) indexOf(id int) int {
	for i := range b.panels {
		if b.panels[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Builder) find(id int) *Panel {
	if idx := b.indexOf(id); idx >= 0 {
		return &b.panels[idx]
	}
	return nil
}
