package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"

	core "github.com/goliatone/go-dashboard-builder/components/builder"
	"github.com/goliatone/go-dashboard-builder/components/builder/commands"
	"github.com/goliatone/go-dashboard-builder/components/builder/gorouter"
	"github.com/goliatone/go-dashboard-builder/components/builder/httpapi"
	"github.com/goliatone/go-dashboard-builder/components/builder/queries"
	"github.com/goliatone/go-dashboard-builder/pkg/builder"
	"github.com/goliatone/go-dashboard-builder/pkg/catalog"
	"github.com/goliatone/go-dashboard-builder/pkg/config"
)

type globals struct {
	Config   string `short:"c" type:"path" env:"ASKDATA_CONFIG" help:"Configuration file (.yaml, .yml or .toml)."`
	LogLevel string `name:"log-level" help:"Override the configured log level."`
	Pretty   bool   `help:"Human readable logs."`
}

type cli struct {
	globals

	Serve      serveCmd      `cmd:"" help:"Serve the dashboard builder API and change stream."`
	Seed       seedCmd       `cmd:"" help:"Write a preset dashboard into the configured store."`
	Inspect    inspectCmd    `cmd:"" help:"Print a stored dashboard."`
	Catalog    catalogCmd    `cmd:"" help:"Search the indicator catalog."`
	ChartTypes chartTypesCmd `cmd:"" name:"chart-types" help:"List the available chart types."`
}

func main() {
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("builderctl"),
		kong.Description("Ask For Data dashboard builder utility."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background(), &app.globals)
	ctx.FatalIfErrorf(err)
}

func (g *globals) load(ctx context.Context) (*builder.Runtime, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.Pretty {
		cfg.Log.Pretty = true
	}
	logger, err := config.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		return nil, err
	}
	return builder.NewRuntime(ctx, cfg, logger)
}

type serveCmd struct {
	Addr      string `help:"Listen address (defaults to server.addr)."`
	Transport string `enum:"fiber,http" default:"fiber" help:"HTTP stack: go-router over fiber, or net/http."`
}

func (cmd *serveCmd) Run(ctx context.Context, g *globals) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())

	addr := cmd.Addr
	if addr == "" {
		addr = rt.Config.Server.Addr
	}
	executor := httpapi.NewCommandExecutor(commands.SessionsWorkspace(rt.Sessions), rt.Telemetry)
	dashboardQuery := queries.NewDashboardQuery(queries.SessionsWorkspace(rt.Sessions))
	chartQuery := queries.NewChartCatalogQuery()
	indicatorQuery := queries.NewIndicatorSearchQuery(rt.Catalog)
	base := rt.Config.Server.BasePath

	rt.Logger.Info().Str("addr", addr).Str("base_path", base).Str("transport", cmd.Transport).Msg("dashboard builder ready")

	if cmd.Transport == "http" {
		mux := http.NewServeMux()
		handlers := &httpapi.Handlers{
			API:        executor,
			Dashboard:  dashboardQuery,
			Charts:     chartQuery,
			Indicators: indicatorQuery,
		}
		handlers.Mount(mux, base)
		mux.HandleFunc("GET "+strings.TrimSuffix(base, "/")+"/ws", rt.Broadcast.ServeWebSocket)
		mux.HandleFunc("GET "+strings.TrimSuffix(base, "/")+"/events", rt.Broadcast.ServeSSE)
		return serveHTTP(ctx, addr, mux)
	}

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:     server.Router(),
		API:        executor,
		Dashboard:  dashboardQuery,
		Charts:     chartQuery,
		Indicators: indicatorQuery,
		Broadcast:  rt.Broadcast,
		BasePath:   base,
	}); err != nil {
		return fmt.Errorf("builderctl: register routes: %w", err)
	}
	return server.Serve(addr)
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type seedCmd struct {
	Preset  string `help:"Name of an embedded preset." default:"economy-overview"`
	File    string `type:"existingfile" help:"Preset manifest to load instead of an embedded one."`
	Session string `help:"Seed a session's dashboard instead of the default one."`
	List    bool   `help:"List embedded presets and exit."`
}

func (cmd *seedCmd) Run(ctx context.Context, g *globals) error {
	if cmd.List {
		presets, err := core.DefaultPresets()
		if err != nil {
			return err
		}
		for _, p := range presets {
			fmt.Fprintf(os.Stdout, "%s\t%d panels\t%s\n", color.CyanString("%s", p.Name), len(p.Panels), p.Description)
		}
		return nil
	}
	rt, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	preset, err := cmd.resolve()
	if err != nil {
		return err
	}
	key := rt.Config.Storage.Key
	if cmd.Session != "" {
		key += ":" + cmd.Session
	}
	seed := commands.NewSeedCommand(rt.Store, rt.Options(key), rt.Telemetry)
	if err := seed.Execute(ctx, commands.SeedInput{StorageKey: key, Preset: preset}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s Seeded %s with %q (%d panels)\n", color.GreenString("✓"), key, preset.Name, len(preset.Panels))
	return nil
}

func (cmd *seedCmd) resolve() (core.Preset, error) {
	if cmd.File != "" {
		p, err := core.ReadPreset(cmd.File)
		if err != nil {
			return core.Preset{}, err
		}
		return *p, nil
	}
	p, ok := core.FindPreset(cmd.Preset)
	if !ok {
		return core.Preset{}, fmt.Errorf("builderctl: unknown preset %q (see seed --list)", cmd.Preset)
	}
	return p, nil
}

type inspectCmd struct {
	Session string `help:"Inspect a session's dashboard."`
	Offline bool   `help:"Do not fetch series from the backend."`
}

func (cmd *inspectCmd) Run(ctx context.Context, g *globals) error {
	rt, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)
	if cmd.Offline {
		rt.Source = catalog.NewStatic()
	}
	key := rt.Config.Storage.Key
	if cmd.Session != "" {
		key += ":" + cmd.Session
	}
	opts := rt.Options(key)
	opts.Grid = core.NewGrid(core.GridOptions{Host: core.NewHTMLHost(nil), Logger: &rt.Logger})
	b := core.NewBuilder(opts)
	found, err := b.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(os.Stdout, "%s nothing stored under %s\n", color.YellowString("!"), key)
		return nil
	}
	printDashboard(os.Stdout, key, b)
	return nil
}

func printDashboard(w io.Writer, key string, b *core.Builder) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%s  next id %d\n", key, b.NextPanelID())
	tiles := b.Tiles()
	for i, p := range b.Panels() {
		state := "-"
		if i < len(tiles) {
			state = string(tiles[i].State)
		}
		chart := "unset"
		if p.ChartType.IsSet() {
			chart = p.ChartType.String()
		}
		codes := make([]string, 0, len(p.Indicators))
		for _, ref := range p.Indicators {
			codes = append(codes, ref.Code)
		}
		fmt.Fprintf(w, "  #%-3d %-2d cols  %-15s %-12s %s  %s\n",
			p.ID, p.ColSpan, color.CyanString("%s", chart), stateColor(state), p.DisplayTitle(), color.HiBlackString("%s", strings.Join(codes, ",")))
	}
}

func stateColor(state string) string {
	switch core.TileState(state) {
	case core.TileChart:
		return color.GreenString("%s", state)
	case core.TileNoData:
		return color.RedString("%s", state)
	default:
		return color.YellowString("%s", state)
	}
}

type catalogCmd struct {
	Query string `arg:"" optional:"" help:"Search text (name, code or description)."`
	Limit int    `default:"20" help:"Maximum results."`
}

func (cmd *catalogCmd) Run(ctx context.Context, g *globals) error {
	rt, err := g.load(ctx)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)
	search := queries.NewIndicatorSearchQuery(rt.Catalog)
	out, err := search.Query(ctx, queries.IndicatorSearchInput{Query: cmd.Query, Limit: cmd.Limit})
	if err != nil {
		return err
	}
	for _, item := range out {
		unit := ""
		if item.Unit != "" {
			unit = color.HiBlackString(" (%s)", item.Unit)
		}
		fmt.Fprintf(os.Stdout, "%-24s %s%s\n", color.CyanString("%s", item.Code), item.Name, unit)
	}
	return nil
}

type chartTypesCmd struct {
	Locale string `default:"fr" help:"Label locale."`
}

func (cmd *chartTypesCmd) Run(ctx context.Context) error {
	groups, err := queries.NewChartCatalogQuery().Query(ctx, queries.ChartCatalogInput{Locale: cmd.Locale})
	if err != nil {
		return err
	}
	printChartTypes(os.Stdout, groups)
	return nil
}

func printChartTypes(w io.Writer, groups []queries.ChartGroup) {
	for _, group := range groups {
		color.New(color.Bold).Fprintln(w, group.Label)
		for _, opt := range group.Options {
			fmt.Fprintf(w, "  %-16s %-22s %s\n", color.CyanString("%s", opt.Type.String()), opt.Label, color.HiBlackString("%s", opt.Description))
		}
	}
}
