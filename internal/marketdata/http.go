package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPProvider queries a JSON market-data endpoint for OHLCV bars and
// index returns, the same minimal polling-endpoint shape
// internal/source.WebAdapter uses for record feeds: GET an endpoint,
// decode a normalized JSON body. The concrete exchange backend (MOEX or
// otherwise) is expected to sit behind this endpoint.
type HTTPProvider struct {
	client  *http.Client
	baseURL string
}

// HTTPProviderConfig configures an HTTPProvider.
type HTTPProviderConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultHTTPProviderConfig returns sensible defaults.
func DefaultHTTPProviderConfig() HTTPProviderConfig {
	return HTTPProviderConfig{Timeout: 15 * time.Second}
}

// NewHTTPProvider creates an HTTPProvider against cfg.BaseURL.
func NewHTTPProvider(cfg HTTPProviderConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("market-data provider base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultHTTPProviderConfig().Timeout
	}
	return &HTTPProvider{client: &http.Client{Timeout: cfg.Timeout}, baseURL: cfg.BaseURL}, nil
}

// OHLCV implements Provider.
func (p *HTTPProvider) OHLCV(ctx context.Context, symbol string, from, to time.Time, granularity Granularity) (Series, error) {
	return p.fetch(ctx, "/ohlcv", symbol, from, to, granularity)
}

// IndexReturn implements Provider.
func (p *HTTPProvider) IndexReturn(ctx context.Context, indexSymbol string, from, to time.Time, granularity Granularity) (Series, error) {
	return p.fetch(ctx, "/index", indexSymbol, from, to, granularity)
}

func (p *HTTPProvider) fetch(ctx context.Context, path, symbol string, from, to time.Time, granularity Granularity) (Series, error) {
	u, err := url.Parse(p.baseURL + path)
	if err != nil {
		return Series{}, fmt.Errorf("parse market-data endpoint: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", to.Format(time.RFC3339))
	q.Set("granularity", string(granularity))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Series{}, fmt.Errorf("build market-data request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Series{}, fmt.Errorf("market-data request to %q: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Series{Symbol: symbol}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Series{}, fmt.Errorf("market-data endpoint %q returned status %d", path, resp.StatusCode)
	}

	var series Series
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return Series{}, fmt.Errorf("decode market-data response from %q: %w", path, err)
	}
	return series, nil
}
