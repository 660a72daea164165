package watchers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// WebhookHandler posts a triggered watch as JSON to a configured URL,
// following the plain http.Client-with-timeout idiom this codebase's
// lineage uses for its own outbound HTTP integrations.
type WebhookHandler struct {
	url    string
	client *http.Client
}

// NewWebhookHandler builds a WebhookHandler posting to url with timeout.
func NewWebhookHandler(url string, timeout time.Duration) *WebhookHandler {
	return &WebhookHandler{url: url, client: &http.Client{Timeout: timeout}}
}

func (h *WebhookHandler) Name() string { return "webhook" }

func (h *WebhookHandler) Notify(ctx context.Context, tw models.TriggeredWatch) error {
	body, err := json.Marshal(tw)
	if err != nil {
		return fmt.Errorf("marshal triggered watch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
