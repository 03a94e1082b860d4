package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	builder "github.com/goliatone/go-dashboard-builder/components/builder"
)

// DefaultTimeout bounds every catalog request.
const DefaultTimeout = 10 * time.Second

// DefaultSearchLimit caps Search results when no limit is given.
const DefaultSearchLimit = 200

// ErrUnsuccessful is returned when the backend answers with success=false.
var ErrUnsuccessful = errors.New("catalog: backend reported failure")

// Config configures the HTTP catalog client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Client talks to the Ask For Data REST endpoints. The indicator list is
// cached for the lifetime of the client once a fetch succeeds.
type Client struct {
	baseURL string
	client  *http.Client
	logger  zerolog.Logger

	mu     sync.Mutex
	cached []builder.Indicator
}

var (
	_ builder.SeriesSource     = (*Client)(nil)
	_ builder.IndicatorCatalog = (*Client)(nil)
)

// NewClient builds a client for the backend rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("catalog: base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("catalog: invalid base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		client:  httpClient,
		logger:  logger,
	}, nil
}

// ListIndicators returns the catalog sorted by name with French collation.
func (c *Client) ListIndicators(ctx context.Context) ([]builder.Indicator, error) {
	c.mu.Lock()
	if c.cached != nil {
		out := append([]builder.Indicator(nil), c.cached...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	var resp listResponse
	if err := c.get(ctx, "/api/indicators", &resp); err != nil {
		c.logger.Warn().Err(err).Msg("indicator list fetch failed")
		return nil, err
	}
	if !resp.Success {
		c.logger.Warn().Msg("indicator list unsuccessful")
		return nil, ErrUnsuccessful
	}
	list := make([]builder.Indicator, 0, len(resp.Indicators))
	for _, item := range resp.Indicators {
		if item.Code == "" {
			continue
		}
		list = append(list, item)
	}
	SortByName(list)

	c.mu.Lock()
	c.cached = list
	c.mu.Unlock()
	return append([]builder.Indicator(nil), list...), nil
}

// Search filters the catalog by query. Queries shorter than two characters
// return the whole list, capped at limit.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]builder.Indicator, error) {
	list, err := c.ListIndicators(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(list, query, limit), nil
}

// FetchIndicator loads the yearly series for one indicator code.
func (c *Client) FetchIndicator(ctx context.Context, code string) (builder.Series, error) {
	if strings.TrimSpace(code) == "" {
		return builder.Series{}, fmt.Errorf("catalog: indicator code is required")
	}
	var resp seriesResponse
	if err := c.get(ctx, "/api/indicator/"+url.PathEscape(code), &resp); err != nil {
		return builder.Series{}, err
	}
	if !resp.Success {
		return builder.Series{}, fmt.Errorf("%w: indicator %s", ErrUnsuccessful, code)
	}
	series := resp.Indicator.toSeries()
	if series.Code == "" {
		series.Code = code
	}
	return series, nil
}

// Invalidate drops the cached indicator list.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

func (c *Client) get(ctx context.Context, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("catalog: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	return nil
}

type listResponse struct {
	Success    bool                `json:"success"`
	Indicators []builder.Indicator `json:"indicators"`
}

type seriesResponse struct {
	Success   bool          `json:"success"`
	Indicator seriesPayload `json:"indicator"`
}

type seriesPayload struct {
	Code       string                `json:"code"`
	Name       string                `json:"name"`
	Unit       string                `json:"unit"`
	Source     string                `json:"source"`
	SourceLink string                `json:"source_link"`
	Values     []builder.SeriesPoint `json:"values"`
}

func (p seriesPayload) toSeries() builder.Series {
	values := p.Values
	if values == nil {
		values = []builder.SeriesPoint{}
	}
	return builder.Series{
		Code:       p.Code,
		Name:       p.Name,
		Unit:       p.Unit,
		Source:     p.Source,
		SourceLink: p.SourceLink,
		Values:     values,
	}
}
