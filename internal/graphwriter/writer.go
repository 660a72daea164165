package graphwriter

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/models"
)

// Writer is the Graph Writer component. It retries each write with
// exponential backoff (spec.md §4.I/§5: 3 attempts, 2s base delay) before
// surfacing a models.GraphUpsertConflictError, following the retry-with-
// backoff idiom this codebase's lineage uses against the same FalkorDB
// dependency in its own graph-service startup path.
type Writer struct {
	client        Client
	retryAttempts int
	retryBase     time.Duration
	logger        *logging.Logger
}

// New builds a Writer against client, retrying retryAttempts times with
// exponential backoff starting at retryBase.
func New(client Client, retryAttempts int, retryBase time.Duration) *Writer {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Writer{client: client, retryAttempts: retryAttempts, retryBase: retryBase, logger: logging.GetLogger("graphwriter")}
}

func (w *Writer) exec(ctx context.Context, key string, q Query) error {
	var lastErr error
	for attempt := 0; attempt < w.retryAttempts; attempt++ {
		if attempt > 0 {
			delay := w.retryBase * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("retrying graph write %q in %v (attempt %d/%d)", key, delay, attempt+1, w.retryAttempts)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if _, err := w.client.ExecuteQuery(ctx, q); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return &models.GraphUpsertConflictError{Key: key, Cause: lastErr}
}

// WriteEvent upserts an Event node.
func (w *Writer) WriteEvent(ctx context.Context, ev models.Event) error {
	return w.exec(ctx, "event:"+ev.ID, UpsertEventQuery(ev))
}

// WriteInstrument upserts an Instrument node.
func (w *Writer) WriteInstrument(ctx context.Context, in models.Instrument) error {
	return w.exec(ctx, "instrument:"+in.ID(), UpsertInstrumentQuery(in))
}

// WriteCompany upserts a Company node.
func (w *Writer) WriteCompany(ctx context.Context, co models.Company) error {
	return w.exec(ctx, "company:"+co.ID, UpsertCompanyQuery(co))
}

// WriteCausalLink upserts a CAUSES edge.
func (w *Writer) WriteCausalLink(ctx context.Context, link models.CausalLink) error {
	return w.exec(ctx, "causes:"+link.CauseEventID+"->"+link.EffectEventID, UpsertCausalLinkQuery(link))
}

// WriteImpactEdge upserts an IMPACTS edge. A failure here is isolated per
// edge (spec.md §4.I invariant): the caller must not roll back the Event
// write that preceded it.
func (w *Writer) WriteImpactEdge(ctx context.Context, edge models.ImpactEdge) error {
	return w.exec(ctx, "impacts:"+edge.EventID+"->"+edge.InstrumentID, UpsertImpactEdgeQuery(edge))
}

// LinkEventToInstrument upserts a LINKS edge from a mention resolution.
func (w *Writer) LinkEventToInstrument(ctx context.Context, eventID, instrumentID string) error {
	return w.exec(ctx, "links:"+eventID+"->"+instrumentID, LinkEventToInstrumentQuery(eventID, instrumentID))
}

// WriteTriggeredWatch upserts a TriggeredWatch node and its TRIGGERED edge.
func (w *Writer) WriteTriggeredWatch(ctx context.Context, tw models.TriggeredWatch) error {
	return w.exec(ctx, "watch:"+tw.ID, UpsertTriggeredWatchQuery(tw))
}

// MarkWatchExpired flips a TriggeredWatch's expired flag.
func (w *Writer) MarkWatchExpired(ctx context.Context, watchID string) error {
	return w.exec(ctx, "watch-expire:"+watchID, MarkWatchExpiredQuery(watchID))
}

// WritePrediction upserts an EventPrediction node and its PREDICTS edge.
func (w *Writer) WritePrediction(ctx context.Context, p models.EventPrediction) error {
	return w.exec(ctx, "prediction:"+p.ID, UpsertEventPredictionQuery(p))
}

// FulfilPrediction flips an EventPrediction to FULFILLED.
func (w *Writer) FulfilPrediction(ctx context.Context, predictionID, fulfilledByEventID string) error {
	return w.exec(ctx, "fulfil:"+predictionID, FulfilPredictionQuery(predictionID, fulfilledByEventID))
}

// WriteImportance stamps the latest importance total onto an Event node.
func (w *Writer) WriteImportance(ctx context.Context, score models.ImportanceScore) error {
	return w.exec(ctx, "importance:"+score.EventID, UpsertImportanceQuery(score))
}

// LinkCompanyIssuesInstrument upserts an ISSUES edge.
func (w *Writer) LinkCompanyIssuesInstrument(ctx context.Context, companyID, instrumentID string) error {
	return w.exec(ctx, "issues:"+companyID+"->"+instrumentID, LinkCompanyIssuesInstrumentQuery(companyID, instrumentID))
}
