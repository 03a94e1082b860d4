package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/rs/zerolog"
)

const (
	defaultChartHeight   = "360px"
	defaultChartCacheTTL = 5 * time.Minute
	envEChartsCDN        = "ASKDATA_ECHARTS_CDN"
)

// TileState describes what a grid tile displays.
type TileState string

const (
	// TileEmpty is the "add indicators" placeholder.
	TileEmpty TileState = "empty"
	// TileChooseChart prompts for a chart type once indicators are set.
	TileChooseChart TileState = "choose_chart"
	// TileNoData means the filters left nothing to plot.
	TileNoData TileState = "no_data"
	// TileChart carries rendered chart markup.
	TileChart TileState = "chart"
)

// Tile is the rendered view of one panel.
type Tile struct {
	PanelID    int            `json:"panel_id"`
	NodeID     string         `json:"node_id"`
	State      TileState      `json:"state"`
	ColSpan    int            `json:"col_span"`
	RowSpan    int            `json:"row_span"`
	Title      string         `json:"title"`
	ChartType  ChartType      `json:"chart_type"`
	Indicators []IndicatorRef `json:"indicators"`
	FontFamily string         `json:"font_family"`
	FontSize   int            `json:"font_size"`
	YearStart  *int           `json:"year_start,omitempty"`
	YearEnd    *int           `json:"year_end,omitempty"`
	DataFrom   int            `json:"data_from,omitempty"`
	DataTo     int            `json:"data_to,omitempty"`
	Sources    []DataSource   `json:"sources,omitempty"`
	HTML       string         `json:"html,omitempty"`
}

// ChartNodeID returns the DOM id a panel's chart is bound to.
func ChartNodeID(panelID int) string {
	return fmt.Sprintf("panel-chart-%d", panelID)
}

// Renderable is satisfied by every go-echarts chart.
type Renderable interface {
	Render(w io.Writer) error
}

// ChartHost owns live chart instances keyed by node id. Mount must release any
// instance already bound to the node before binding the new one.
type ChartHost interface {
	Mount(ctx context.Context, nodeID, fingerprint string, chart Renderable) (string, error)
	Dispose(nodeID string)
	Live() int
}

// GridOptions configures a Grid.
type GridOptions struct {
	Host ChartHost
	// Cache backs the default host; ignored when Host is set.
	Cache RenderCache
	// Scope keeps this grid's slots apart from other grids sharing Cache.
	Scope      string
	Theme      string
	AssetsHost string
	Height     string
	Logger     *zerolog.Logger
}

// Grid turns panels into tiles and drives the chart host.
type Grid struct {
	host  ChartHost
	style ChartStyle
	log   zerolog.Logger

	mu      sync.Mutex
	mounted map[int]string
}

// NewGrid builds a Grid with safe defaults.
func NewGrid(opts GridOptions) *Grid {
	if opts.Host == nil {
		if opts.Cache == nil {
			opts.Cache = NewChartCache(defaultChartCacheTTL)
		}
		opts.Host = NewScopedHTMLHost(opts.Cache, opts.Scope)
	}
	if opts.Theme == "" {
		opts.Theme = types.ThemeWesteros
	}
	if opts.AssetsHost == "" {
		opts.AssetsHost = DefaultEChartsAssetsHost()
	}
	if opts.Height == "" {
		opts.Height = defaultChartHeight
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Grid{
		host: opts.Host,
		style: ChartStyle{
			Theme:      opts.Theme,
			AssetsHost: opts.AssetsHost,
			Height:     opts.Height,
		},
		log:     logger.With().Str("component", "grid").Logger(),
		mounted: make(map[int]string),
	}
}

// DefaultEChartsAssetsHost returns the assets host override, if any.
func DefaultEChartsAssetsHost() string {
	host := strings.TrimSpace(os.Getenv(envEChartsCDN))
	if host == "" || strings.HasSuffix(host, "/") {
		return host
	}
	return host + "/"
}

// Render produces one tile per panel in display order. Charts of panels that
// are gone, or that can no longer render, are disposed.
func (g *Grid) Render(ctx context.Context, panels []Panel) []Tile {
	present := make(map[int]struct{}, len(panels))
	for _, p := range panels {
		present[p.ID] = struct{}{}
	}
	g.mu.Lock()
	for id, node := range g.mounted {
		if _, ok := present[id]; !ok {
			g.host.Dispose(node)
			delete(g.mounted, id)
		}
	}
	g.mu.Unlock()

	tiles := make([]Tile, 0, len(panels))
	for _, p := range panels {
		tiles = append(tiles, g.renderPanel(ctx, p))
	}
	return tiles
}

func (g *Grid) renderPanel(ctx context.Context, p Panel) Tile {
	tile := Tile{
		PanelID:    p.ID,
		NodeID:     ChartNodeID(p.ID),
		ColSpan:    p.ColSpan,
		RowSpan:    p.RowSpan,
		Title:      p.DisplayTitle(),
		ChartType:  p.ChartType,
		Indicators: append([]IndicatorRef{}, p.Indicators...),
		FontFamily: p.FontFamily,
		FontSize:   p.FontSize,
		YearStart:  copyInt(p.YearStart),
		YearEnd:    copyInt(p.YearEnd),
		Sources:    p.Sources(),
	}
	if first, last, ok := p.YearBounds(); ok {
		tile.DataFrom, tile.DataTo = first, last
	}
	switch {
	case len(p.Indicators) == 0:
		tile.State = TileEmpty
		g.DisposePanel(p.ID)
		return tile
	case !p.ChartType.IsSet():
		tile.State = TileChooseChart
		g.DisposePanel(p.ID)
		return tile
	}

	style := g.style
	style.NodeID = tile.NodeID
	chart, ok := BuildChart(p, style)
	if !ok {
		g.log.Debug().Int("panel_id", p.ID).Str("chart_type", p.ChartType.String()).Msg("no data to chart")
		tile.State = TileNoData
		g.DisposePanel(p.ID)
		return tile
	}
	key := fingerprint(map[string]any{
		"panel":  p.state(),
		"series": p.VisibleSeries(),
		"style":  style,
	})
	html, err := g.host.Mount(ctx, tile.NodeID, key, chart)
	if err != nil {
		g.log.Warn().Err(err).Int("panel_id", p.ID).Msg("render chart")
		tile.State = TileNoData
		g.DisposePanel(p.ID)
		return tile
	}
	g.mu.Lock()
	g.mounted[p.ID] = tile.NodeID
	g.mu.Unlock()
	tile.State = TileChart
	tile.HTML = html
	return tile
}

// DisposePanel releases the chart bound to a panel, if any.
func (g *Grid) DisposePanel(id int) {
	g.mu.Lock()
	node, ok := g.mounted[id]
	delete(g.mounted, id)
	g.mu.Unlock()
	if ok {
		g.host.Dispose(node)
	}
}

// DisposeAll releases every mounted chart.
func (g *Grid) DisposeAll() {
	g.mu.Lock()
	nodes := make([]string, 0, len(g.mounted))
	for id, node := range g.mounted {
		nodes = append(nodes, node)
		delete(g.mounted, id)
	}
	g.mu.Unlock()
	for _, node := range nodes {
		g.host.Dispose(node)
	}
}

// Mounted reports the number of panels with a live chart.
func (g *Grid) Mounted() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.mounted)
}

// HTMLHost renders charts to self-contained go-echarts HTML.
type HTMLHost struct {
	cache RenderCache
	scope string

	mu       sync.Mutex
	live     map[string]string
	disposed int
}

// NewHTMLHost builds a host. A nil cache renders every mount.
func NewHTMLHost(cache RenderCache) *HTMLHost {
	return NewScopedHTMLHost(cache, "")
}

// NewScopedHTMLHost builds a host whose cache slots are prefixed with scope.
func NewScopedHTMLHost(cache RenderCache, scope string) *HTMLHost {
	return &HTMLHost{cache: cache, scope: scope, live: make(map[string]string)}
}

// Mount releases whatever is bound to nodeID, then renders chart. The cached
// markup of the node survives the release so an unchanged chart is reused.
func (h *HTMLHost) Mount(_ context.Context, nodeID, fingerprint string, chart Renderable) (string, error) {
	h.release(nodeID)
	render := func() (string, error) {
		return renderChart(chart)
	}
	var (
		html string
		err  error
	)
	if h.cache != nil {
		html, err = h.cache.GetOrRender(chartSlot(h.scope, nodeID), fingerprint, render)
	} else {
		html, err = render()
	}
	if err != nil {
		return "", fmt.Errorf("builder: render %s: %w", nodeID, err)
	}
	h.mu.Lock()
	h.live[nodeID] = fingerprint
	h.mu.Unlock()
	return html, nil
}

// Dispose releases the instance bound to nodeID and drops its cached markup.
func (h *HTMLHost) Dispose(nodeID string) {
	h.release(nodeID)
	if h.cache != nil {
		h.cache.Forget(chartSlot(h.scope, nodeID))
	}
}

func (h *HTMLHost) release(nodeID string) {
	h.mu.Lock()
	if _, ok := h.live[nodeID]; ok {
		delete(h.live, nodeID)
		h.disposed++
	}
	h.mu.Unlock()
}

// Live reports the number of bound instances.
func (h *HTMLHost) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

// Disposed reports how many instances have been released.
func (h *HTMLHost) Disposed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

func renderChart(chart Renderable) (string, error) {
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
