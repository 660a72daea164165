package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// WebAdapter polls a JSON feed endpoint for new records. It is a minimal
// skeleton for the "web" Source kind (spec.md §4.A): the concrete sites
// scraped in production each need their own parsing, but every one of
// them ultimately reduces to "GET an endpoint, decode records newer than
// the cursor" once upstream scraping has produced a normalized feed.
type WebAdapter struct {
	client   *http.Client
	endpoint string
}

// WebAdapterConfig configures a WebAdapter.
type WebAdapterConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// DefaultWebAdapterConfig returns sensible defaults.
func DefaultWebAdapterConfig() WebAdapterConfig {
	return WebAdapterConfig{Timeout: 30 * time.Second}
}

// NewWebAdapter creates a WebAdapter polling cfg.Endpoint.
func NewWebAdapter(cfg WebAdapterConfig) (*WebAdapter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("web adapter endpoint is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultWebAdapterConfig().Timeout
	}
	return &WebAdapter{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
	}, nil
}

// Open implements Adapter. WebAdapter is stateless between calls, so Open
// is a no-op beyond validating the session is usable.
func (a *WebAdapter) Open(_ context.Context, _ models.Source) error {
	return nil
}

type webFeedRecord struct {
	ExternalID  string    `json:"external_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
}

// FetchSince implements Adapter by issuing a single GET against the feed
// endpoint and filtering client-side for records newer than cursor. Real
// deployments front this with a server-side "since" query parameter; this
// skeleton keeps the contract correct when that is unavailable.
func (a *WebAdapter) FetchSince(ctx context.Context, cursor models.Cursor, limit int) (<-chan models.Record, <-chan error) {
	out := make(chan models.Record)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint, nil)
		if err != nil {
			errs <- &FetchError{Kind: FetchErrMalformed, Cause: err}
			return
		}

		resp, err := a.client.Do(req)
		if err != nil {
			errs <- &FetchError{Kind: FetchErrTransient, Cause: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			errs <- &FetchError{Kind: FetchErrAuth, Cause: fmt.Errorf("status %d", resp.StatusCode)}
			return
		}
		if resp.StatusCode != http.StatusOK {
			errs <- &FetchError{Kind: FetchErrTransient, Cause: fmt.Errorf("status %d", resp.StatusCode)}
			return
		}

		var feed []webFeedRecord
		if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
			errs <- &FetchError{Kind: FetchErrMalformed, Cause: err}
			return
		}

		sent := 0
		for _, r := range feed {
			if limit > 0 && sent >= limit {
				break
			}
			if !r.PublishedAt.After(cursor.LastTimestamp) {
				continue
			}
			rec := models.Record{
				SourceCode:  cursor.SourceCode,
				ExternalID:  r.ExternalID,
				URL:         r.URL,
				Title:       r.Title,
				Body:        r.Body,
				PublishedAt: r.PublishedAt,
			}
			select {
			case <-ctx.Done():
				errs <- &FetchError{Kind: FetchErrTransient, Cause: ctx.Err()}
				return
			case out <- rec:
				sent++
			}
		}
	}()

	return out, errs
}

// Close implements Adapter.
func (a *WebAdapter) Close(_ context.Context) error {
	return nil
}
