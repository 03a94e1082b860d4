package builder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedCache(ttl time.Duration) (*ChartCache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cache := NewChartCache(ttl)
	cache.now = clock.Now
	return cache, clock
}

func countingRender(calls *int, html string) func() (string, error) {
	return func() (string, error) {
		*calls++
		return html, nil
	}
}

func TestChartCacheReusesSameFingerprint(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0

	val1, err := cache.GetOrRender("panel-chart-1", "a", countingRender(&calls, "html"))
	require.NoError(t, err)
	val2, err := cache.GetOrRender("panel-chart-1", "a", countingRender(&calls, "html"))
	require.NoError(t, err)

	assert.Equal(t, "html", val1)
	assert.Equal(t, val1, val2)
	assert.Equal(t, 1, calls)
}

func TestChartCacheReplacesSlotOnNewFingerprint(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	for i := 0; i < 20; i++ {
		_, err := cache.GetOrRender("panel-chart-1", fmt.Sprintf("v%d", i), countingRender(&calls, "html"))
		require.NoError(t, err)
	}
	assert.Equal(t, 20, calls)
	assert.Equal(t, 1, cache.Len())

	html, err := cache.GetOrRender("panel-chart-1", "v0", countingRender(&calls, "again"))
	require.NoError(t, err)
	assert.Equal(t, "again", html, "an older fingerprint is not kept")
}

func TestChartCacheExpires(t *testing.T) {
	cache, clock := newClockedCache(time.Minute)
	calls := 0

	_, err := cache.GetOrRender("panel-chart-1", "a", countingRender(&calls, "fresh"))
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = cache.GetOrRender("panel-chart-1", "a", countingRender(&calls, "fresh"))
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
}

func TestChartCacheSweepsAbandonedSlots(t *testing.T) {
	cache, clock := newClockedCache(time.Minute)
	calls := 0
	for i := 1; i <= 3; i++ {
		_, _ = cache.GetOrRender(chartSlot("gone", ChartNodeID(i)), "a", countingRender(&calls, "x"))
	}
	require.Equal(t, 3, cache.Len())

	clock.Advance(2 * time.Minute)
	_, _ = cache.GetOrRender(chartSlot("live", ChartNodeID(1)), "a", countingRender(&calls, "x"))
	assert.Equal(t, 1, cache.Len())
}

func TestChartCacheForgetIsExact(t *testing.T) {
	cache := NewChartCache(time.Minute)
	calls := 0
	_, _ = cache.GetOrRender(chartSlot("alpha", ChartNodeID(1)), "a", countingRender(&calls, "x"))
	_, _ = cache.GetOrRender(chartSlot("alpha", ChartNodeID(10)), "a", countingRender(&calls, "x"))
	_, _ = cache.GetOrRender(chartSlot("beta", ChartNodeID(1)), "a", countingRender(&calls, "x"))

	cache.Forget(chartSlot("alpha", ChartNodeID(1)))

	assert.Equal(t, 2, cache.Len())
}

func TestChartCacheDisabled(t *testing.T) {
	cache := NewChartCache(0)
	calls := 0
	_, _ = cache.GetOrRender("panel-chart-1", "a", countingRender(&calls, "x"))
	_, _ = cache.GetOrRender("panel-chart-1", "a", countingRender(&calls, "x"))
	assert.Equal(t, 2, calls)
	assert.Zero(t, cache.Len())
}

func TestChartCacheStaysBoundedAcrossEdits(t *testing.T) {
	ctx := context.Background()
	cache := NewChartCache(time.Hour)
	b := NewBuilder(Options{
		Source: newCountingSource(gdp),
		Grid:   NewGrid(GridOptions{Cache: cache, Scope: "edits"}),
	})
	_, err := b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartLine})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		title := fmt.Sprintf("Titre %d", i)
		require.NoError(t, b.SetStyling(ctx, 1, StylingPatch{Title: &title}))
	}
	assert.Equal(t, 1, cache.Len())

	require.NoError(t, b.RemovePanel(ctx, 1))
	assert.Zero(t, cache.Len(), "a removed panel leaves nothing cached")
}

func TestSessionsKeepCacheSlotsApart(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(SessionOptions{
		Builder: Options{Source: newCountingSource(gdp), Store: NewMemoryStore()},
	})
	cache := sessions.opts.Grid.Cache.(*ChartCache)

	for _, id := range []string{"alpha", "beta"} {
		b, err := sessions.Open(ctx, id)
		require.NoError(t, err)
		_, err = b.AddPanel(ctx, PanelConfig{Indicators: []IndicatorRef{{Code: gdp.Code}}, ChartType: ChartBar})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cache.Len())

	sessions.Close("alpha")
	assert.Equal(t, 1, cache.Len())
	beta, _ := sessions.Get("beta")
	require.Len(t, beta.Tiles(), 1)
	assert.Equal(t, TileChart, beta.Tiles()[0].State)
}

func TestFingerprintIsStable(t *testing.T) {
	a := fingerprint(map[string]any{"b": 2, "a": 1})
	b := fingerprint(map[string]any{"a": 1, "b": 2})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, fingerprint(map[string]any{"a": 2}))
}
