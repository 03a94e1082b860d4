package builder

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

const fetchConcurrency = 6

// fetchPanels loads every indicator missing from the caches of the given
// panels. Each code is requested once even when several panels need it.
// Failures are logged and leave the cache untouched.
func (b *Builder) fetchPanels(ctx context.Context, ids []int) {
	wanted := make(map[string][]int)
	var order []string
	b.mu.RLock()
	for _, id := range ids {
		idx := b.indexOf(id)
		if idx < 0 {
			continue
		}
		for _, code := range b.panels[idx].MissingCodes() {
			if _, ok := wanted[code]; !ok {
				order = append(order, code)
			}
			wanted[code] = append(wanted[code], id)
		}
	}
	b.mu.RUnlock()
	if len(order) == 0 {
		return
	}

	var (
		mu      sync.Mutex
		fetched = make(map[string]Series, len(order))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, code := range order {
		g.Go(func() error {
			series, err := b.opts.Source.FetchIndicator(gctx, code)
			if err != nil {
				b.log.Warn().Err(err).Str("code", code).Msg("fetch indicator series")
				b.opts.Telemetry.Record(gctx, "builder.fetch.failed", map[string]any{"code": code})
				return nil
			}
			if series.Code == "" {
				series.Code = code
			}
			mu.Lock()
			fetched[code] = series
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	for code, series := range fetched {
		for _, id := range wanted[code] {
			if p := b.find(id); p != nil {
				if p.DataCache == nil {
					p.DataCache = map[string]Series{}
				}
				if _, ok := p.DataCache[code]; !ok {
					p.DataCache[code] = series
				}
			}
		}
	}
}
