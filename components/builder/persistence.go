package builder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ettle/strcase"
)

// DefaultStorageKey is the key the builder state is stored under.
const DefaultStorageKey = "dashboardBuilder"

// Store is a key/value blob store standing in for browser local storage.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// StorageKeyFor derives the storage key for a named dashboard.
func StorageKeyFor(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultStorageKey
	}
	return DefaultStorageKey + ":" + strcase.ToKebab(name)
}

// persistedState is the stored JSON blob. It is decoupled from Snapshot so the
// stored format can evolve independently of the undo projection.
type persistedState struct {
	Panels      []persistedPanel `json:"panels"`
	NextPanelID int              `json:"nextPanelId"`
}

type persistedPanel struct {
	ID         int            `json:"id"`
	ColSpan    int            `json:"colSpan"`
	RowSpan    int            `json:"rowSpan"`
	Indicators []IndicatorRef `json:"indicators"`
	ChartType  ChartType      `json:"chartType"`
	Title      string         `json:"title"`
	Colors     []string       `json:"colors"`
	FontFamily string         `json:"fontFamily"`
	FontSize   int            `json:"fontSize"`
	ShowLegend bool           `json:"showLegend"`
	ShowGrid   bool           `json:"showGrid"`
	Smooth     bool           `json:"smooth"`
	AxisXLabel string         `json:"axisXLabel"`
	AxisYLabel string         `json:"axisYLabel"`
	YearStart  *int           `json:"yearStart"`
	YearEnd    *int           `json:"yearEnd"`
}

func encodeState(panels []Panel, nextID int) ([]byte, error) {
	state := persistedState{NextPanelID: nextID, Panels: make([]persistedPanel, len(panels))}
	for i, p := range panels {
		state.Panels[i] = persistedPanel{
			ID:         p.ID,
			ColSpan:    p.ColSpan,
			RowSpan:    p.RowSpan,
			Indicators: append([]IndicatorRef{}, p.Indicators...),
			ChartType:  p.ChartType,
			Title:      p.Title,
			Colors:     append([]string{}, p.Colors...),
			FontFamily: p.FontFamily,
			FontSize:   p.FontSize,
			ShowLegend: p.ShowLegend,
			ShowGrid:   p.ShowGrid,
			Smooth:     p.Smooth,
			AxisXLabel: p.AxisXLabel,
			AxisYLabel: p.AxisYLabel,
			YearStart:  copyInt(p.YearStart),
			YearEnd:    copyInt(p.YearEnd),
		}
	}
	return json.Marshal(state)
}

// decodeState parses a stored blob. Missing numeric fields fall back to panel
// defaults and a stale nextPanelId is raised above the highest panel id.
func decodeState(data []byte) ([]Panel, int, error) {
	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, 0, fmt.Errorf("builder: decode stored state: %w", err)
	}
	panels := make([]Panel, 0, len(state.Panels))
	seen := make(map[int]struct{}, len(state.Panels))
	maxID := 0
	for _, sp := range state.Panels {
		if _, dup := seen[sp.ID]; dup {
			return nil, 0, fmt.Errorf("builder: stored state repeats panel id %d", sp.ID)
		}
		seen[sp.ID] = struct{}{}
		p := Panel{
			ID:         sp.ID,
			ColSpan:    sp.ColSpan,
			RowSpan:    sp.RowSpan,
			Indicators: append([]IndicatorRef{}, sp.Indicators...),
			ChartType:  sp.ChartType,
			Title:      sp.Title,
			Colors:     append([]string{}, sp.Colors...),
			FontFamily: sp.FontFamily,
			FontSize:   sp.FontSize,
			ShowLegend: sp.ShowLegend,
			ShowGrid:   sp.ShowGrid,
			Smooth:     sp.Smooth,
			AxisXLabel: sp.AxisXLabel,
			AxisYLabel: sp.AxisYLabel,
			YearStart:  copyInt(sp.YearStart),
			YearEnd:    copyInt(sp.YearEnd),
			DataCache:  map[string]Series{},
		}
		if p.ColSpan < 1 || p.ColSpan > GridColumns {
			p.ColSpan = defaultColSpan
		}
		if p.RowSpan < 1 {
			p.RowSpan = defaultRowSpan
		}
		if len(p.Colors) == 0 {
			p.Colors = defaultColors()
		}
		if p.FontFamily == "" {
			p.FontFamily = defaultFontFamily
		}
		if p.FontSize <= 0 {
			p.FontSize = defaultFontSize
		}
		if sp.ID > maxID {
			maxID = sp.ID
		}
		panels = append(panels, p)
	}
	next := state.NextPanelID
	if next <= maxID {
		next = maxID + 1
	}
	return panels, next, nil
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.items[key] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Keys lists the stored keys.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for key := range s.items {
		out = append(out, key)
	}
	return out
}

// FileStore persists each key as a JSON file inside Dir.
type FileStore struct {
	Dir string
	mu  sync.Mutex
}

// NewFileStore builds a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// path maps key to its file. The snake-case prefix keeps names readable; the
// suffix is a hash of the exact key, so keys that fold to the same prefix
// ("team-a", "Team A") still get distinct files.
func (s *FileStore) path(key string) string {
	name := strcase.ToSnake(strings.ReplaceAll(key, ":", " "))
	if name == "" {
		name = "default"
	}
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.Dir, name+"."+hex.EncodeToString(sum[:6])+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("builder: read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileStore) Set(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("builder: create store dir: %w", err)
	}
	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("builder: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("builder: commit %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("builder: delete %s: %w", key, err)
	}
	return nil
}
