package gorouter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	router "github.com/goliatone/go-router"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
	"github.com/goliatone/go-dashboard-builder/components/builder/commands"
	"github.com/goliatone/go-dashboard-builder/components/builder/httpapi"
	"github.com/goliatone/go-dashboard-builder/components/builder/queries"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router is missing")
	}
}

func TestMountRegistersEveryRoute(t *testing.T) {
	b := newBuilder()
	cfg := newConfig(b)
	reg := newMockRegistrar()
	mount(reg, cfg.table(), builder.NewBroadcastHook(), cfg.routes().WebSocket)

	for _, key := range []string{
		"GET:/dashboard", "GET:/charts", "GET:/panels/:id/chart.html",
		"POST:/panels", "DELETE:/panels/:id", "POST:/panels/:id/size",
		"POST:/panels/:id/indicators", "POST:/panels/:id/chart", "POST:/panels/:id/styling",
		"POST:/panels/:id/years", "POST:/panels/move", "POST:/panels/reorder",
		"POST:/undo", "POST:/redo", "POST:/reset", "POST:/presets",
	} {
		if _, ok := reg.routes[key]; !ok {
			t.Fatalf("expected route %s to be registered", key)
		}
	}
	if _, ok := reg.ws["/ws"]; !ok {
		t.Fatalf("expected websocket route")
	}
}

func TestCustomRoutePaths(t *testing.T) {
	routes := defaultRouteConfig(RouteConfig{Dashboard: "/board"})
	if routes.Dashboard != "/board" || routes.Charts != "/charts" {
		t.Fatalf("unexpected route config %+v", routes)
	}
}

func TestPanelFlowThroughHandlers(t *testing.T) {
	b := newBuilder()
	cfg := newConfig(b)
	table := cfg.table()

	ctx := newMockContext()
	ctx.body = []byte(`{"colSpan":4}`)
	mustServe(t, table, "POST", "/panels", ctx)
	if ctx.status != http.StatusCreated || !strings.Contains(string(ctx.out), `"panel_id":1`) {
		t.Fatalf("add panel: unexpected %d %s", ctx.status, ctx.out)
	}

	ctx = newMockContext()
	ctx.params["id"] = "1"
	ctx.body = []byte(`{"indicators":[{"code":"NY.GDP.PCAP.CD"}]}`)
	mustServe(t, table, "POST", "/panels/:id/indicators", ctx)
	if ctx.status != http.StatusOK {
		t.Fatalf("assign: unexpected %d %s", ctx.status, ctx.out)
	}

	ctx = newMockContext()
	ctx.params["id"] = "1"
	ctx.body = []byte(`{"chart_type":"line"}`)
	mustServe(t, table, "POST", "/panels/:id/chart", ctx)
	if ctx.status != http.StatusOK {
		t.Fatalf("chart: unexpected %d %s", ctx.status, ctx.out)
	}

	ctx = newMockContext()
	ctx.params["id"] = "1"
	mustServe(t, table, "GET", "/panels/:id/chart.html", ctx)
	if ctx.status != http.StatusOK || !strings.Contains(string(ctx.out), builder.ChartNodeID(1)) {
		t.Fatalf("chart html: unexpected %d", ctx.status)
	}
	if ctx.headers["Content-Type"] != "text/html; charset=utf-8" {
		t.Fatalf("expected html content type, got %q", ctx.headers["Content-Type"])
	}

	ctx = newMockContext()
	mustServe(t, table, "POST", "/undo", ctx)
	if !strings.Contains(string(ctx.out), `"status":"undo"`) {
		t.Fatalf("undo: unexpected %s", ctx.out)
	}

	ctx = newMockContext()
	mustServe(t, table, "GET", "/dashboard", ctx)
	var view queries.DashboardView
	if err := json.Unmarshal(ctx.out, &view); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(view.Tiles) != 1 || view.Tiles[0].State != builder.TileChooseChart || !view.CanRedo {
		t.Fatalf("unexpected dashboard view %+v", view)
	}

	ctx = newMockContext()
	ctx.params["id"] = "9"
	mustServe(t, table, "DELETE", "/panels/:id", ctx)
	if ctx.status != http.StatusOK || !strings.Contains(string(ctx.out), "noop") {
		t.Fatalf("remove missing: unexpected %d %s", ctx.status, ctx.out)
	}
}

func TestHandlersRejectBadInput(t *testing.T) {
	b := newBuilder()
	table := newConfig(b).table()
	mustServe(t, table, "POST", "/panels", newMockContext())

	ctx := newMockContext()
	ctx.params["id"] = "x"
	ctx.body = []byte(`{"col_span":2}`)
	mustServe(t, table, "POST", "/panels/:id/size", ctx)
	if ctx.status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", ctx.status)
	}

	ctx = newMockContext()
	ctx.params["id"] = "1"
	ctx.body = []byte(`{"chart_type":"hologram"}`)
	mustServe(t, table, "POST", "/panels/:id/chart", ctx)
	if ctx.status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown chart, got %d", ctx.status)
	}
}

func TestSessionRouting(t *testing.T) {
	sessions := builder.NewSessions(builder.SessionOptions{
		Builder: builder.Options{Source: fixedSource{}},
		Grid:    builder.GridOptions{Host: builder.NewHTMLHost(nil)},
	})
	cfg := Config[struct{}]{
		API:       httpapi.NewCommandExecutor(commands.SessionsWorkspace(sessions), nil),
		Dashboard: queries.NewDashboardQuery(queries.SessionsWorkspace(sessions)),
	}
	table := cfg.table()

	ctx := newMockContext()
	ctx.headers[httpapi.SessionHeader] = "alpha"
	mustServe(t, table, "POST", "/panels", ctx)

	ctx = newMockContext()
	ctx.queries["session"] = "beta"
	mustServe(t, table, "GET", "/dashboard", ctx)
	if !strings.Contains(string(ctx.out), `"tiles":[]`) {
		t.Fatalf("expected beta to be empty, got %s", ctx.out)
	}

	alpha, err := sessions.Lookup("alpha")
	if err != nil {
		t.Fatalf("lookup alpha: %v", err)
	}
	if len(alpha.Panels()) != 1 {
		t.Fatalf("expected alpha to own the panel")
	}
}

func TestChartCatalogLocale(t *testing.T) {
	cfg := Config[struct{}]{Charts: queries.NewChartCatalogQuery()}
	table := cfg.table()

	ctx := newMockContext()
	ctx.headers["Accept-Language"] = "en-GB,en;q=0.8"
	mustServe(t, table, "GET", "/charts", ctx)
	if !strings.Contains(string(ctx.out), `"label":"Line"`) {
		t.Fatalf("expected english labels, got %s", ctx.out)
	}

	ctx = newMockContext()
	mustServe(t, table, "GET", "/charts", ctx)
	if !strings.Contains(string(ctx.out), "Courbe") {
		t.Fatalf("expected default french labels")
	}
}

// --- Test helpers ---

type fixedSource struct{}

func (fixedSource) FetchIndicator(_ context.Context, code string) (builder.Series, error) {
	a, b := 1.5, 2.5
	return builder.Series{Code: code, Name: code, Values: []builder.SeriesPoint{{Year: 2019, Value: &a}, {Year: 2020, Value: &b}}}, nil
}

func newBuilder() *builder.Builder {
	return builder.NewBuilder(builder.Options{
		Source: fixedSource{},
		Grid:   builder.NewGrid(builder.GridOptions{Host: builder.NewHTMLHost(nil)}),
	})
}

func newConfig(b *builder.Builder) Config[struct{}] {
	return Config[struct{}]{
		API:       httpapi.NewCommandExecutor(commands.SingleSession(b), nil),
		Dashboard: queries.NewDashboardQuery(queries.SingleSession(b)),
		Charts:    queries.NewChartCatalogQuery(),
	}
}

func mustServe(t *testing.T, table []route, method, path string, ctx *mockContext) {
	t.Helper()
	for _, rt := range table {
		if rt.method == method && rt.path == path {
			if err := rt.handle(ctx); err != nil {
				t.Fatalf("%s %s returned error: %v", method, path, err)
			}
			return
		}
	}
	t.Fatalf("route %s %s not found", method, path)
}

type mockRegistrar struct {
	routes map[string]router.HandlerFunc
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRegistrar() *mockRegistrar {
	return &mockRegistrar{
		routes: map[string]router.HandlerFunc{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRegistrar) Get(path string, h router.HandlerFunc, _ ...router.MiddlewareFunc) router.RouteInfo {
	m.routes["GET:"+path] = h
	return nil
}

func (m *mockRegistrar) Post(path string, h router.HandlerFunc, _ ...router.MiddlewareFunc) router.RouteInfo {
	m.routes["POST:"+path] = h
	return nil
}

func (m *mockRegistrar) Delete(path string, h router.HandlerFunc, _ ...router.MiddlewareFunc) router.RouteInfo {
	m.routes["DELETE:"+path] = h
	return nil
}

func (m *mockRegistrar) WebSocket(path string, _ router.WebSocketConfig, h func(router.WebSocketContext) error) router.RouteInfo {
	m.ws[path] = h
	return nil
}

type mockContext struct {
	body    []byte
	params  map[string]string
	queries map[string]string
	headers map[string]string
	status  int
	out     []byte
}

func newMockContext() *mockContext {
	return &mockContext{
		params:  map[string]string{},
		queries: map[string]string{},
		headers: map[string]string{},
	}
}

func (m *mockContext) Context() context.Context { return context.Background() }
func (m *mockContext) Body() []byte             { return m.body }
func (m *mockContext) Header(key string) string { return m.headers[key] }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.queries[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.out = data
	return nil
}

func (m *mockContext) Send(body []byte) error {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	m.out = body
	return nil
}

func (m *mockContext) SetHeader(key, value string) router.Context {
	m.headers[key] = value
	return nil
}
