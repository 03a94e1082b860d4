package gorouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	gocommand "github.com/goliatone/go-command"
	router "github.com/goliatone/go-router"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
	"github.com/goliatone/go-dashboard-builder/components/builder/commands"
	"github.com/goliatone/go-dashboard-builder/components/builder/httpapi"
	"github.com/goliatone/go-dashboard-builder/components/builder/queries"
)

// Config wires go-router with the builder commands, queries and change stream.
type Config[T any] struct {
	Router     router.Router[T]
	API        httpapi.Executor
	Dashboard  gocommand.Querier[queries.DashboardInput, queries.DashboardView]
	Charts     gocommand.Querier[queries.ChartCatalogInput, []queries.ChartGroup]
	Indicators gocommand.Querier[queries.IndicatorSearchInput, []builder.Indicator]
	Broadcast  *builder.BroadcastHook
	BasePath   string
	Routes     RouteConfig
}

// RouteConfig customizes the relative paths of the builder endpoints.
type RouteConfig struct {
	Dashboard  string
	Charts     string
	Indicators string
	Panels     string
	PanelID    string
	PanelChart string
	Size       string
	Assign     string
	ChartType  string
	Styling    string
	Years      string
	Move       string
	Reorder    string
	Undo       string
	Redo       string
	Reset      string
	Presets    string
	WebSocket  string
}

// Registrar is the part of router.Router the builder mounts on.
type Registrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo
}

// requestContext is what the handlers read from a router.Context.
type requestContext interface {
	Context() context.Context
	Body() []byte
	Param(name string, defaultValue ...string) string
	Query(name string, defaultValue ...string) string
	Header(key string) string
	JSON(code int, v any) error
	Send(body []byte) error
	SetHeader(key, value string) router.Context
}

type route struct {
	method string
	path   string
	handle func(requestContext) error
}

// Register mounts the builder routes (JSON API, chart HTML, WebSocket stream)
// on a go-router router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.API == nil && cfg.Dashboard == nil {
		return errors.New("gorouter: api executor or dashboard query is required")
	}
	base := cfg.BasePath
	if base == "" {
		base = "/builder"
	}
	group := cfg.Router.Group(base)
	mount(group, cfg.table(), cfg.Broadcast, cfg.routes().WebSocket)
	return nil
}

func mount(r Registrar, table []route, hook *builder.BroadcastHook, wsPath string) {
	for _, rt := range table {
		handle := rt.handle
		h := router.WrapHandler(func(ctx router.Context) error { return handle(ctx) })
		switch rt.method {
		case http.MethodGet:
			r.Get(rt.path, h)
		case http.MethodPost:
			r.Post(rt.path, h)
		case http.MethodDelete:
			r.Delete(rt.path, h)
		}
	}
	if hook != nil {
		registerWebSocket(r, hook, wsPath)
	}
}

func (cfg Config[T]) table() []route {
	routes := cfg.routes()
	var table []route
	if cfg.Dashboard != nil {
		table = append(table,
			route{http.MethodGet, routes.Dashboard, func(ctx requestContext) error {
				view, err := cfg.Dashboard.Query(ctx.Context(), queries.DashboardInput{SessionID: sessionID(ctx)})
				if err != nil {
					return respondError(ctx, httpapi.StatusFor(err), err)
				}
				return ctx.JSON(http.StatusOK, view)
			}},
			route{http.MethodGet, routes.PanelChart, func(ctx requestContext) error {
				id, err := panelID(ctx)
				if err != nil {
					return respondError(ctx, http.StatusBadRequest, err)
				}
				view, err := cfg.Dashboard.Query(ctx.Context(), queries.DashboardInput{SessionID: sessionID(ctx)})
				if err != nil {
					return respondError(ctx, httpapi.StatusFor(err), err)
				}
				for _, tile := range view.Tiles {
					if tile.PanelID == id && tile.State == builder.TileChart {
						ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
						return ctx.Send([]byte(tile.HTML))
					}
				}
				return respondError(ctx, http.StatusNotFound, errors.New("panel has no chart"))
			}},
		)
	}
	if cfg.Charts != nil {
		table = append(table, route{http.MethodGet, routes.Charts, func(ctx requestContext) error {
			groups, err := cfg.Charts.Query(ctx.Context(), queries.ChartCatalogInput{Locale: inferLocale(ctx)})
			if err != nil {
				return respondError(ctx, http.StatusInternalServerError, err)
			}
			return ctx.JSON(http.StatusOK, groups)
		}})
	}
	if cfg.Indicators != nil {
		table = append(table, route{http.MethodGet, routes.Indicators, func(ctx requestContext) error {
			limit, _ := strconv.Atoi(ctx.Query("limit", "0"))
			out, err := cfg.Indicators.Query(ctx.Context(), queries.IndicatorSearchInput{Query: ctx.Query("q"), Limit: limit})
			if err != nil {
				return respondError(ctx, http.StatusBadGateway, err)
			}
			return ctx.JSON(http.StatusOK, out)
		}})
	}
	if cfg.API != nil {
		table = append(table, apiRoutes(cfg.API, routes)...)
	}
	return table
}

func apiRoutes(api httpapi.Executor, routes RouteConfig) []route {
	return []route{
		{http.MethodPost, routes.Panels, func(ctx requestContext) error {
			var cfg builder.PanelConfig
			if err := json.Unmarshal(ctx.Body(), &cfg); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			var panel builder.Panel
			input := commands.AddPanelInput{SessionID: sessionID(ctx), Config: cfg, Result: &panel}
			if err := api.AddPanel(ctx.Context(), input); err != nil {
				return respondError(ctx, httpapi.StatusFor(err), err)
			}
			return ctx.JSON(http.StatusCreated, map[string]any{"status": "created", "panel_id": panel.ID})
		}},
		{http.MethodDelete, routes.PanelID, withPanel(func(ctx requestContext, id int) error {
			err := api.RemovePanel(ctx.Context(), commands.RemovePanelInput{SessionID: sessionID(ctx), PanelID: id})
			return respond(ctx, err, "removed")
		})},
		{http.MethodPost, routes.Size, withPanel(func(ctx requestContext, id int) error {
			var input commands.ResizePanelInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID, input.PanelID = sessionID(ctx), id
			return respond(ctx, api.ResizePanel(ctx.Context(), input), "resized")
		})},
		{http.MethodPost, routes.Assign, withPanel(func(ctx requestContext, id int) error {
			var input commands.AssignIndicatorsInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID, input.PanelID = sessionID(ctx), id
			return respond(ctx, api.AssignIndicators(ctx.Context(), input), "assigned")
		})},
		{http.MethodPost, routes.ChartType, withPanel(func(ctx requestContext, id int) error {
			var input commands.SetChartTypeInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID, input.PanelID = sessionID(ctx), id
			return respond(ctx, api.SetChartType(ctx.Context(), input), "updated")
		})},
		{http.MethodPost, routes.Styling, withPanel(func(ctx requestContext, id int) error {
			var patch builder.StylingPatch
			if err := json.Unmarshal(ctx.Body(), &patch); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input := commands.UpdateStylingInput{SessionID: sessionID(ctx), PanelID: id, Patch: patch}
			return respond(ctx, api.UpdateStyling(ctx.Context(), input), "updated")
		})},
		{http.MethodPost, routes.Years, withPanel(func(ctx requestContext, id int) error {
			var input commands.SetYearRangeInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID, input.PanelID = sessionID(ctx), id
			return respond(ctx, api.SetYearRange(ctx.Context(), input), "updated")
		})},
		{http.MethodPost, routes.Move, func(ctx requestContext) error {
			var input commands.MovePanelInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID = sessionID(ctx)
			return respond(ctx, api.MovePanel(ctx.Context(), input), "moved")
		}},
		{http.MethodPost, routes.Reorder, func(ctx requestContext) error {
			var input commands.ReorderPanelsInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID = sessionID(ctx)
			return respond(ctx, api.ReorderPanels(ctx.Context(), input), "reordered")
		}},
		{http.MethodPost, routes.Undo, historyStep(api, commands.HistoryUndo)},
		{http.MethodPost, routes.Redo, historyStep(api, commands.HistoryRedo)},
		{http.MethodPost, routes.Reset, func(ctx requestContext) error {
			return respond(ctx, api.Reset(ctx.Context(), commands.ResetInput{SessionID: sessionID(ctx)}), "reset")
		}},
		{http.MethodPost, routes.Presets, func(ctx requestContext) error {
			var input commands.ApplyPresetInput
			if err := json.Unmarshal(ctx.Body(), &input); err != nil {
				return respondError(ctx, http.StatusBadRequest, err)
			}
			input.SessionID = sessionID(ctx)
			if err := api.ApplyPreset(ctx.Context(), input); err != nil {
				return respondError(ctx, httpapi.StatusFor(err), err)
			}
			return ctx.JSON(http.StatusCreated, map[string]string{"status": "applied"})
		}},
	}
}

func historyStep(api httpapi.Executor, direction commands.HistoryDirection) func(requestContext) error {
	return func(ctx requestContext) error {
		var moved bool
		input := commands.HistoryStepInput{SessionID: sessionID(ctx), Direction: direction, Moved: &moved}
		if err := api.HistoryStep(ctx.Context(), input); err != nil {
			return respondError(ctx, httpapi.StatusFor(err), err)
		}
		status := string(direction)
		if !moved {
			status = "noop"
		}
		return ctx.JSON(http.StatusOK, map[string]any{"status": status, "moved": moved})
	}
}

func withPanel(next func(requestContext, int) error) func(requestContext) error {
	return func(ctx requestContext) error {
		id, err := panelID(ctx)
		if err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		return next(ctx, id)
	}
}

func panelID(ctx requestContext) (int, error) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return 0, errors.New("panel id must be an integer")
	}
	return id, nil
}

func registerWebSocket(r Registrar, hook *builder.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe("")
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func sessionID(ctx requestContext) string {
	if id := strings.TrimSpace(ctx.Header(httpapi.SessionHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(ctx.Query("session"))
}

func inferLocale(ctx requestContext) string {
	if locale := strings.TrimSpace(ctx.Query("locale")); locale != "" {
		return strings.ToLower(locale)
	}
	return httpapi.ParseAcceptLanguage(ctx.Header("Accept-Language"))
}

func respond(ctx requestContext, err error, status string) error {
	switch {
	case err == nil:
		return ctx.JSON(http.StatusOK, map[string]string{"status": status})
	case builder.IsNotFound(err):
		return ctx.JSON(http.StatusOK, map[string]string{"status": "noop"})
	default:
		return respondError(ctx, httpapi.StatusFor(err), err)
	}
}

func respondError(ctx requestContext, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func (cfg Config[T]) routes() RouteConfig {
	return defaultRouteConfig(cfg.Routes)
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	defaults := RouteConfig{
		Dashboard:  "/dashboard",
		Charts:     "/charts",
		Indicators: "/indicators",
		Panels:     "/panels",
		PanelID:    "/panels/:id",
		PanelChart: "/panels/:id/chart.html",
		Size:       "/panels/:id/size",
		Assign:     "/panels/:id/indicators",
		ChartType:  "/panels/:id/chart",
		Styling:    "/panels/:id/styling",
		Years:      "/panels/:id/years",
		Move:       "/panels/move",
		Reorder:    "/panels/reorder",
		Undo:       "/undo",
		Redo:       "/redo",
		Reset:      "/reset",
		Presets:    "/presets",
		WebSocket:  "/ws",
	}
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&routes.Dashboard, defaults.Dashboard)
	fill(&routes.Charts, defaults.Charts)
	fill(&routes.Indicators, defaults.Indicators)
	fill(&routes.Panels, defaults.Panels)
	fill(&routes.PanelID, defaults.PanelID)
	fill(&routes.PanelChart, defaults.PanelChart)
	fill(&routes.Size, defaults.Size)
	fill(&routes.Assign, defaults.Assign)
	fill(&routes.ChartType, defaults.ChartType)
	fill(&routes.Styling, defaults.Styling)
	fill(&routes.Years, defaults.Years)
	fill(&routes.Move, defaults.Move)
	fill(&routes.Reorder, defaults.Reorder)
	fill(&routes.Undo, defaults.Undo)
	fill(&routes.Redo, defaults.Redo)
	fill(&routes.Reset, defaults.Reset)
	fill(&routes.Presets, defaults.Presets)
	fill(&routes.WebSocket, defaults.WebSocket)
	return routes
}
