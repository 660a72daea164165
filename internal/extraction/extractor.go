package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/models"
)

// Extractor drives a Provider through the single forced tool call that
// produces a models.Extraction for a record, with an idempotency cache so
// a record re-fetched across a cursor replay does not re-spend LLM calls.
type Extractor struct {
	provider Provider
	cache    *lru.Cache[string, models.Extraction]
	logger   *logging.Logger
}

// NewExtractor builds an Extractor backed by provider, caching up to
// cacheSize recent extractions by record key.
func NewExtractor(provider Provider, cacheSize int) (*Extractor, error) {
	if cacheSize <= 0 {
		cacheSize = 10000
	}
	cache, err := lru.New[string, models.Extraction](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction cache: %w", err)
	}
	return &Extractor{
		provider: provider,
		cache:    cache,
		logger:   logging.GetLogger("extraction"),
	}, nil
}

type toolInput struct {
	People    []string `json:"people"`
	Companies []struct {
		Name         string `json:"name"`
		TickerHint   string `json:"ticker_hint"`
		SectorHint   string `json:"sector_hint"`
		IsRegulatory bool   `json:"is_regulatory"`
	} `json:"companies"`
	Markets         []string `json:"markets"`
	Metrics         []struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	} `json:"metrics"`
	EventTypes      []string `json:"event_types"`
	IsAdvertisement bool     `json:"is_advertisement"`
	ContentTypes    []string `json:"content_types"`
	Language        string   `json:"language"`
	Urgency         string   `json:"urgency"`
	Confidence      float64  `json:"confidence"`
}

// Extract returns the Extraction for r, serving from cache when the
// record has already been processed this run.
func (x *Extractor) Extract(ctx context.Context, r models.Record) (models.Extraction, error) {
	key := r.Key()
	if cached, ok := x.cache.Get(key); ok {
		return cached, nil
	}

	prompt := fmt.Sprintf("Title: %s\n\nBody:\n%s\n\nSource trust level: %d\nPublished: %s",
		r.Title, r.Body, r.TrustLevel, r.PublishedAt.Format("2006-01-02T15:04:05Z07:00"))

	resp, err := x.provider.Chat(ctx, SystemPrompt, []Message{{Role: RoleUser, Content: prompt}}, []ToolDefinition{ExtractionTool()})
	if err != nil {
		return models.Extraction{}, &models.ExtractionTransientError{Cause: err}
	}

	call, found := findToolCall(resp, ToolName)
	if !found {
		return models.Extraction{}, &models.ExtractionFatalError{Cause: fmt.Errorf("model did not call %s", ToolName)}
	}

	var parsed toolInput
	if err := json.Unmarshal(call.Input, &parsed); err != nil {
		return models.Extraction{}, &models.ExtractionFatalError{Cause: fmt.Errorf("malformed tool input: %w", err)}
	}

	ext := models.Extraction{
		RecordKey:       key,
		People:          parsed.People,
		Markets:         parsed.Markets,
		EventTypes:      parsed.EventTypes,
		IsAdvertisement: parsed.IsAdvertisement,
		ContentTypes:    parsed.ContentTypes,
		Language:        parsed.Language,
		Urgency:         models.Urgency(parsed.Urgency),
		Confidence:      parsed.Confidence,
	}
	for _, c := range parsed.Companies {
		ext.Companies = append(ext.Companies, models.CompanyMention{
			Name: c.Name, TickerHint: c.TickerHint, SectorHint: c.SectorHint, IsRegulatory: c.IsRegulatory,
		})
	}
	for _, m := range parsed.Metrics {
		ext.Metrics = append(ext.Metrics, models.FinancialMetric{Name: m.Name, Value: m.Value, Unit: m.Unit})
	}

	x.cache.Add(key, ext)
	return ext, nil
}

func findToolCall(resp *Response, name string) (ToolCall, bool) {
	for _, c := range resp.ToolCalls {
		if c.Name == name {
			return c, true
		}
	}
	return ToolCall{}, false
}
