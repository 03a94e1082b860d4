package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	core "github.com/goliatone/go-dashboard-builder/components/builder"
	"github.com/goliatone/go-dashboard-builder/pkg/catalog"
	"github.com/goliatone/go-dashboard-builder/pkg/config"
	"github.com/goliatone/go-dashboard-builder/pkg/storage/mongostore"
)

// Builder exposes the underlying components/builder.Builder type.
type Builder = core.Builder

// Options re-export for convenience.
type Options = core.Options

type (
	Panel       = core.Panel
	PanelConfig = core.PanelConfig
	ChartType   = core.ChartType
	Store       = core.Store
	Sessions    = core.Sessions
	Preset      = core.Preset
)

// NewBuilder proxies to the internal constructor.
func NewBuilder(opts Options) *Builder {
	return core.NewBuilder(opts)
}

// Runtime bundles the collaborators a process needs to host builder
// sessions, built from a config.Config.
type Runtime struct {
	Config    config.Config
	Logger    zerolog.Logger
	Catalog   *catalog.Client
	Source    core.SeriesSource
	Telemetry LogTelemetry
	Store     Store
	Broadcast *core.BroadcastHook
	Sessions  *Sessions
	Cache     *core.ChartCache

	closers []func(context.Context) error
}

// NewRuntime connects the catalog client and the configured store.
func NewRuntime(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Runtime, error) {
	client, err := catalog.NewClient(catalog.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  &logger,
	})
	if err != nil {
		return nil, err
	}
	store, closer, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Config:    cfg,
		Logger:    logger,
		Catalog:   client,
		Source:    client,
		Telemetry: LogTelemetry{Logger: logger},
		Store:     store,
		Broadcast: core.NewBroadcastHook(),
		Cache:     core.NewChartCache(cfg.Chart.CacheTTL),
	}
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}
	rt.Sessions = core.NewSessions(core.SessionOptions{
		Builder: rt.options(cfg.Storage.Key),
		Grid:    rt.gridOptions(),
	})
	return rt, nil
}

// Single builds a standalone builder bound to the configured storage key.
func (r *Runtime) Single() *Builder {
	opts := r.options(r.Config.Storage.Key)
	opts.Grid = core.NewGrid(r.gridOptions())
	return core.NewBuilder(opts)
}

func (r *Runtime) options(key string) Options {
	return Options{
		Source:       r.Source,
		Store:        r.Store,
		StorageKey:   key,
		ChangeHook:   r.Broadcast,
		Telemetry:    r.Telemetry,
		Logger:       &r.Logger,
		HistoryLimit: r.Config.History.Limit,
	}
}

func (r *Runtime) gridOptions() core.GridOptions {
	return core.GridOptions{
		Cache:      r.Cache,
		Theme:      r.Config.Chart.Theme,
		AssetsHost: r.Config.Chart.AssetsHost,
		Logger:     &r.Logger,
	}
}

// Options returns builder options bound to the runtime collaborators. Grid is
// left nil.
func (r *Runtime) Options(key string) Options {
	return r.options(key)
}

// LogTelemetry records builder and command events at debug level.
type LogTelemetry struct {
	Logger zerolog.Logger
}

func (t LogTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.Logger.Debug().Str("event", event).Fields(payload).Msg("telemetry")
}

// Close releases the store and stops the change stream.
func (r *Runtime) Close(ctx context.Context) error {
	r.Broadcast.Close()
	var errs []error
	for _, closer := range r.closers {
		errs = append(errs, closer(ctx))
	}
	return errors.Join(errs...)
}

// OpenStore builds the Store selected by cfg.Driver. The returned closer may
// be nil.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (Store, func(context.Context) error, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return core.NewMemoryStore(), nil, nil
	case config.DriverFile, "":
		return core.NewFileStore(cfg.Dir), nil, nil
	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, mongostore.Options{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
			Logger:     &logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("builder: unknown storage driver %q", cfg.Driver)
	}
}
