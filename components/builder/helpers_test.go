package builder

import (
	"context"
	"errors"
	"sync"
)

type countingSource struct {
	mu     sync.Mutex
	series map[string]Series
	calls  map[string]int
	fail   map[string]bool
}

func newCountingSource(series ...Series) *countingSource {
	src := &countingSource{
		series: make(map[string]Series),
		calls:  make(map[string]int),
		fail:   make(map[string]bool),
	}
	for _, s := range series {
		src.series[s.Code] = s
	}
	return src
}

func (s *countingSource) FetchIndicator(_ context.Context, code string) (Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[code]++
	if s.fail[code] {
		return Series{}, errors.New("backend unavailable")
	}
	series, ok := s.series[code]
	if !ok {
		return Series{}, errors.New("unknown indicator")
	}
	return series, nil
}

func (s *countingSource) Calls(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[code]
}

func (s *countingSource) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func fv(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

// yearly builds a series with one value per year starting at from.
func yearly(code, name string, from int, values ...float64) Series {
	points := make([]SeriesPoint, len(values))
	for i, v := range values {
		points[i] = SeriesPoint{Year: from + i, Value: fv(v)}
	}
	return Series{Code: code, Name: name, Source: "World Bank", Values: points}
}

var (
	gdp = yearly("NY.GDP.MKTP.KD.ZG", "Croissance du PIB", 2010, 4.8, 2.1, 10.7, 9.3, 8.8, 8.8, 7.2, 7.4, 4.8, 6.2)
	cpi = yearly("FP.CPI.TOTL.ZG", "Inflation", 2010, 1.4, 4.9, 1.3, 2.6, 0.4, 1.2, 0.7, 0.7, 0.4, 0.8)
	pop = yearly("SP.POP.TOTL", "Population", 2012, 21.5, 22.1, 22.7, 23.2, 23.8)
)

type recordingHook struct {
	mu     sync.Mutex
	events []Event
}

func (h *recordingHook) BuilderUpdated(_ context.Context, event Event) error {
	h.mu.Lock()
	h.events = append(h.events, event)
	h.mu.Unlock()
	return nil
}

func (h *recordingHook) Reasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.events))
	for i, e := range h.events {
		out[i] = e.Reason
	}
	return out
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Set(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

func newTestBuilder(src SeriesSource, store Store) *Builder {
	return NewBuilder(Options{
		Source: src,
		Store:  store,
		Grid:   NewGrid(GridOptions{Host: NewHTMLHost(nil), AssetsHost: "https://cdn.example.com/echarts/"}),
	})
}
