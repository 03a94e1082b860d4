package builder

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// RenderCache memoizes rendered chart markup per chart slot. A slot names one
// mounted chart (session scope plus node id) and holds only the markup of its
// latest fingerprint.
type RenderCache interface {
	GetOrRender(slot, fingerprint string, render func() (string, error)) (string, error)
	Forget(slot string)
}

// ChartCache is an in-memory RenderCache. Entries expire after the TTL and
// are replaced whenever a slot renders a new fingerprint, so its size follows
// the number of mounted charts rather than the number of edits.
type ChartCache struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	slots     map[string]renderedChart
	lastSweep time.Time
}

type renderedChart struct {
	fingerprint string
	html        string
	expires     time.Time
}

// NewChartCache builds a cache with the provided TTL. A non-positive TTL disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:   ttl,
		now:   time.Now,
		slots: make(map[string]renderedChart),
	}
}

// GetOrRender returns the slot's markup when it was rendered for fingerprint
// and has not expired. Otherwise it renders and replaces the slot's entry.
func (c *ChartCache) GetOrRender(slot, fingerprint string, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	now := c.now()
	c.mu.Lock()
	entry, ok := c.slots[slot]
	c.mu.Unlock()
	if ok && entry.fingerprint == fingerprint && now.Before(entry.expires) {
		return entry.html, nil
	}

	html, err := render()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.slots[slot] = renderedChart{fingerprint: fingerprint, html: html, expires: now.Add(c.ttl)}
	c.sweepLocked(now)
	c.mu.Unlock()
	return html, nil
}

// Forget drops the slot's entry.
func (c *ChartCache) Forget(slot string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.slots, slot)
	c.mu.Unlock()
}

// Len reports the number of cached slots, expired ones included until swept.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// sweepLocked drops expired slots at most once per TTL. Slots of sessions
// that went away without disposing their charts are reclaimed here.
func (c *ChartCache) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.ttl {
		return
	}
	c.lastSweep = now
	for slot, entry := range c.slots {
		if !now.Before(entry.expires) {
			delete(c.slots, slot)
		}
	}
}

// chartSlot names a mounted chart inside a shared cache.
func chartSlot(scope, nodeID string) string {
	if scope == "" {
		return nodeID
	}
	return scope + "/" + nodeID
}

// fingerprint returns a deterministic hash of the values that shape a chart.
func fingerprint(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
