package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shugein/ceg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls    int
	response *Response
	err      error
}

func (f *fakeProvider) Chat(_ context.Context, _ string, _ []Message, _ []ToolDefinition) (*Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}
func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }

func toolResponse(t *testing.T, input toolInput) *Response {
	t.Helper()
	raw, err := json.Marshal(input)
	require.NoError(t, err)
	return &Response{
		StopReason: StopReasonToolUse,
		ToolCalls:  []ToolCall{{Name: ToolName, Input: raw}},
	}
}

func TestExtractor_ParsesToolCall(t *testing.T) {
	provider := &fakeProvider{response: toolResponse(t, toolInput{
		EventTypes: []string{"earnings_beat"},
		Confidence: 0.8,
		Urgency:    "high",
		Companies: []struct {
			Name         string `json:"name"`
			TickerHint   string `json:"ticker_hint"`
			SectorHint   string `json:"sector_hint"`
			IsRegulatory bool   `json:"is_regulatory"`
		}{{Name: "Sberbank", TickerHint: "SBER"}},
	})}

	x, err := NewExtractor(provider, 0)
	require.NoError(t, err)

	rec := models.Record{SourceCode: "src", ExternalID: "1", PublishedAt: time.Now()}
	ext, err := x.Extract(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, rec.Key(), ext.RecordKey)
	assert.Equal(t, models.Urgency("high"), ext.Urgency)
	assert.InDelta(t, 0.8, ext.Confidence, 0.0001)
	require.Len(t, ext.Companies, 1)
	assert.Equal(t, "SBER", ext.Companies[0].TickerHint)
	require.Len(t, ext.EventTypes, 1)
	assert.Equal(t, string(models.EventTypeEarningsBeat), ext.EventTypes[0])
}

func TestExtractor_CachesByRecordKey(t *testing.T) {
	provider := &fakeProvider{response: toolResponse(t, toolInput{EventTypes: []string{"default"}, Confidence: 0.5})}
	x, err := NewExtractor(provider, 0)
	require.NoError(t, err)

	rec := models.Record{SourceCode: "src", ExternalID: "1"}
	_, err = x.Extract(context.Background(), rec)
	require.NoError(t, err)
	_, err = x.Extract(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.calls)
}

func TestExtractor_ProviderErrorIsTransient(t *testing.T) {
	provider := &fakeProvider{err: errors.New("timeout")}
	x, err := NewExtractor(provider, 0)
	require.NoError(t, err)

	_, err = x.Extract(context.Background(), models.Record{SourceCode: "s", ExternalID: "1"})
	require.Error(t, err)

	var transientErr *models.ExtractionTransientError
	assert.ErrorAs(t, err, &transientErr)
}

func TestExtractor_NoToolCallIsFatal(t *testing.T) {
	provider := &fakeProvider{response: &Response{StopReason: StopReasonEndTurn, Content: "I refuse"}}
	x, err := NewExtractor(provider, 0)
	require.NoError(t, err)

	_, err = x.Extract(context.Background(), models.Record{SourceCode: "s", ExternalID: "1"})
	require.Error(t, err)

	var fatalErr *models.ExtractionFatalError
	assert.ErrorAs(t, err, &fatalErr)
}
