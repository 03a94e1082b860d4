package builder

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("builder: session not found")

// DefaultSessionID is used by Open when no id is given.
const DefaultSessionID = "default"

// SessionOptions configures a Sessions manager. Builder carries the shared
// collaborators (source, store, hook, telemetry, logger); each session gets
// its own grid built from Grid and its own storage key, Builder.StorageKey
// (or DefaultStorageKey) suffixed with ":<id>".
type SessionOptions struct {
	Builder Options
	Grid    GridOptions
}

// Sessions keeps independent builder sessions keyed by id.
type Sessions struct {
	opts  SessionOptions
	newID func() string

	mu    sync.RWMutex
	items map[string]*Builder
}

// NewSessions builds an empty manager.
func NewSessions(opts SessionOptions) *Sessions {
	if opts.Grid.Cache == nil && opts.Grid.Host == nil {
		opts.Grid.Cache = NewChartCache(defaultChartCacheTTL)
	}
	if opts.Builder.Store == nil {
		opts.Builder.Store = NewMemoryStore()
	}
	return &Sessions{
		opts:  opts,
		newID: uuid.NewString,
		items: make(map[string]*Builder),
	}
}

// SessionStorageKey is the storage key of session id.
func SessionStorageKey(id string) string {
	return DefaultStorageKey + ":" + id
}

// Create starts a fresh session with a new id.
func (s *Sessions) Create(ctx context.Context) (*Builder, error) {
	return s.Open(ctx, s.newID())
}

// Open returns session id, creating it and loading its stored dashboard when
// it is not live yet. An empty id opens DefaultSessionID. A new session holds
// its queue slot from the moment it is published until the load is done, so
// operations issued through Get or a concurrent Open apply on top of the
// restored dashboard.
func (s *Sessions) Open(ctx context.Context, id string) (*Builder, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultSessionID
	}
	s.mu.Lock()
	if b, ok := s.items[id]; ok {
		s.mu.Unlock()
		return b, nil
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	b := s.build(id)
	b.queue <- struct{}{}
	s.items[id] = b
	s.mu.Unlock()

	defer b.release()
	b.load(ctx)
	return b, nil
}

func (s *Sessions) build(id string) *Builder {
	opts := s.opts.Builder
	opts.SessionID = id
	if opts.StorageKey == "" {
		opts.StorageKey = SessionStorageKey(id)
	} else {
		opts.StorageKey += ":" + id
	}
	gridOpts := s.opts.Grid
	gridOpts.Logger = opts.Logger
	gridOpts.Scope = id
	opts.Grid = NewGrid(gridOpts)
	return NewBuilder(opts)
}

// Get returns a live session.
func (s *Sessions) Get(id string) (*Builder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.items[id]
	return b, ok
}

// Lookup is Get with an error for unknown ids.
func (s *Sessions) Lookup(id string) (*Builder, error) {
	if b, ok := s.Get(id); ok {
		return b, nil
	}
	return nil, ErrSessionNotFound
}

// Close disposes a session's charts and forgets it. Stored state is kept so
// the session can be reopened.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	b, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if ok {
		b.opts.Grid.DisposeAll()
	}
	return ok
}

// List returns the live session ids, sorted.
func (s *Sessions) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
