package graphwriter

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/models"
)

// PredictionReader is the read surface internal/reconciler and
// internal/watchers need for prediction fulfilment and watch-expiry
// bookkeeping.
type PredictionReader struct {
	client Client
}

// NewPredictionReader builds a PredictionReader over client.
func NewPredictionReader(client Client) *PredictionReader {
	return &PredictionReader{client: client}
}

// ExpiredWatchIDs returns the ids of TriggeredWatch nodes whose
// auto_expire_at has passed asOf and are not yet marked expired, the
// query internal/watchers.ExpirySweeper needs each sweep.
func (r *PredictionReader) ExpiredWatchIDs(ctx context.Context, asOf time.Time) ([]string, error) {
	result, err := r.client.ExecuteQuery(ctx, Query{
		Query: `
			MATCH (w:TriggeredWatch)
			WHERE w.auto_expire_at <= $as_of AND w.expired = false
			RETURN w.id
		`,
		Parameters: map[string]interface{}{"as_of": asOf.UnixNano()},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) > 0 {
			ids = append(ids, asString(row[0]))
		}
	}
	return ids, nil
}

// OpenPredictions returns every PENDING prediction of predictedType whose
// window contains t.
func (r *PredictionReader) OpenPredictions(ctx context.Context, predictedType models.EventType, t time.Time) ([]models.EventPrediction, error) {
	result, err := r.client.ExecuteQuery(ctx, OpenPredictionsByTypeQuery(string(predictedType), t.UnixNano()))
	if err != nil {
		return nil, err
	}

	out := make([]models.EventPrediction, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) < 9 {
			continue
		}
		out = append(out, models.EventPrediction{
			ID:            asString(row[0]),
			RuleID:        asString(row[1]),
			BaseEventID:   asString(row[2]),
			PredictedType: models.EventType(asString(row[3])),
			Probability:   asFloat(row[4]),
			WindowStart:   time.Unix(0, asInt64(row[5])).UTC(),
			WindowEnd:     time.Unix(0, asInt64(row[6])).UTC(),
			GeneratedAt:   time.Unix(0, asInt64(row[7])).UTC(),
			Status:        models.FulfilmentStatus(asString(row[8])),
		})
	}
	return out, nil
}

// PredictionStore combines a PredictionReader's reads with a Writer's
// FulfilPrediction, satisfying internal/reconciler.PredictionStore without
// giving the reconciler the Writer's full write surface.
type PredictionStore struct {
	*PredictionReader
	writer *Writer
}

// NewPredictionStore builds a PredictionStore over client for reads and
// writer for prediction fulfilment.
func NewPredictionStore(client Client, writer *Writer) *PredictionStore {
	return &PredictionStore{PredictionReader: NewPredictionReader(client), writer: writer}
}

// FulfilPrediction implements internal/reconciler.PredictionStore.
func (s *PredictionStore) FulfilPrediction(ctx context.Context, predictionID, fulfilledByEventID string) error {
	return s.writer.FulfilPrediction(ctx, predictionID, fulfilledByEventID)
}
