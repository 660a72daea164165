// Package reconciler implements the Retroactive Reconciler component
// (spec.md §4.K): after a new Event is written, it re-runs the CMNLN
// pairwise evaluation against historical events in both directions within
// a lookback window, and checks the event against open predictions for
// fulfilment (spec.md §4.J).
package reconciler

import (
	"context"
	"time"

	"github.com/shugein/ceg/internal/cmnln"
	"github.com/shugein/ceg/internal/config"
	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/models"
	"github.com/shugein/ceg/internal/watchers"
)

// EventLister finds candidate predecessor/successor events within a time
// window. internal/graphwriter.EventReader implements this.
type EventLister interface {
	EventsAfter(ctx context.Context, after time.Time, window time.Duration, limit int) ([]models.Event, error)
	EventsBefore(ctx context.Context, before time.Time, window time.Duration, limit int) ([]models.Event, error)
}

// ExistingLinkReader looks up CausalLinks already written for an event,
// so the reconciler only overwrites an edge when the new score is better
// (cmnln.ShouldReplace). internal/graphwriter.ChainReader implements
// this.
type ExistingLinkReader interface {
	Outgoing(ctx context.Context, eventID string) ([]models.CausalLink, error)
	Incoming(ctx context.Context, eventID string) ([]models.CausalLink, error)
	EventMarketConfidence(ctx context.Context, eventID string) float64
}

// LinkWriter persists a re-evaluated CausalLink. internal/graphwriter.Writer
// implements this.
type LinkWriter interface {
	WriteCausalLink(ctx context.Context, link models.CausalLink) error
}

// PredictionStore is the read/write surface prediction-fulfilment
// reconciliation needs. internal/graphwriter.{PredictionReader,Writer}
// together implement this.
type PredictionStore interface {
	OpenPredictions(ctx context.Context, predictedType models.EventType, t time.Time) ([]models.EventPrediction, error)
	FulfilPrediction(ctx context.Context, predictionID, fulfilledByEventID string) error
}

// Reconciler is the Retroactive Reconciler.
type Reconciler struct {
	cfg         config.ReconcilerConfig
	cmnlnEngine *cmnln.Engine
	events      EventLister
	links       ExistingLinkReader
	writer      LinkWriter
	predictions PredictionStore
	accuracy    *watchers.AccuracyAggregate
	logger      *logging.Logger
}

// New builds a Reconciler.
func New(cfg config.ReconcilerConfig, cmnlnEngine *cmnln.Engine, events EventLister, links ExistingLinkReader, writer LinkWriter, predictions PredictionStore, accuracy *watchers.AccuracyAggregate) *Reconciler {
	return &Reconciler{
		cfg:         cfg,
		cmnlnEngine: cmnlnEngine,
		events:      events,
		links:       links,
		writer:      writer,
		predictions: predictions,
		accuracy:    accuracy,
		logger:      logging.GetLogger("reconciler"),
	}
}

func (r *Reconciler) lookback() time.Duration {
	return time.Duration(r.cfg.LookbackDays) * 24 * time.Hour
}

// ReconcileNewEvent runs both reconciliation directions for a freshly
// written Event and checks it against open predictions. It is called once
// per new Event, after the Graph Writer has committed it (spec.md §4.L
// pipeline order).
func (r *Reconciler) ReconcileNewEvent(ctx context.Context, ev models.Event) error {
	if err := r.reconcileForward(ctx, ev); err != nil {
		return err
	}
	if err := r.reconcileBackward(ctx, ev); err != nil {
		return err
	}
	return r.reconcilePredictionFulfilment(ctx, ev)
}

// reconcileForward treats ev as a candidate cause of events that occurred
// after it within the lookback window (spec.md §4.K, primary direction).
func (r *Reconciler) reconcileForward(ctx context.Context, ev models.Event) error {
	successors, err := r.events.EventsAfter(ctx, ev.Timestamp, r.lookback(), r.cfg.RetroScanCap)
	if err != nil {
		return err
	}

	existingOut, err := r.links.Outgoing(ctx, ev.ID)
	if err != nil {
		return err
	}
	existingByEffect := make(map[string]models.CausalLink, len(existingOut))
	for _, l := range existingOut {
		existingByEffect[l.EffectEventID] = l
	}

	for _, succ := range successors {
		confMarket := r.links.EventMarketConfidence(ctx, succ.ID)
		candidate, ok := r.cmnlnEngine.Evaluate(cmnln.PairInput{
			Cause:      ev,
			Effect:     succ,
			EffectText: succ.Title,
			ConfMarket: confMarket,
		})
		if !ok {
			continue
		}
		if existing, found := existingByEffect[succ.ID]; found && !cmnln.ShouldReplace(existing, candidate) {
			continue
		}
		if err := r.writer.WriteCausalLink(ctx, candidate); err != nil {
			r.logger.Warn("reconcile forward %s->%s: write failed: %v", ev.ID, succ.ID, err)
		}
	}
	return nil
}

// reconcileBackward treats events that occurred before ev within the
// lookback window as candidate causes of ev, updating the CAUSES edge
// only when the newly computed conf_total improves on what is already
// stored (spec.md §4.K, "symmetrically ... can be updated if their
// conf_total increases").
func (r *Reconciler) reconcileBackward(ctx context.Context, ev models.Event) error {
	predecessors, err := r.events.EventsBefore(ctx, ev.Timestamp, r.lookback(), r.cfg.RetroScanCap)
	if err != nil {
		return err
	}

	existingIn, err := r.links.Incoming(ctx, ev.ID)
	if err != nil {
		return err
	}
	existingByCause := make(map[string]models.CausalLink, len(existingIn))
	for _, l := range existingIn {
		existingByCause[l.CauseEventID] = l
	}

	confMarket := r.links.EventMarketConfidence(ctx, ev.ID)
	for _, pred := range predecessors {
		candidate, ok := r.cmnlnEngine.Evaluate(cmnln.PairInput{
			Cause:      pred,
			Effect:     ev,
			EffectText: ev.Title,
			ConfMarket: confMarket,
		})
		if !ok {
			continue
		}
		candidate.Kind = models.CausalKindRetro
		if existing, found := existingByCause[pred.ID]; found && !cmnln.ShouldReplace(existing, candidate) {
			continue
		}
		if err := r.writer.WriteCausalLink(ctx, candidate); err != nil {
			r.logger.Warn("reconcile backward %s->%s: write failed: %v", pred.ID, ev.ID, err)
		}
	}
	return nil
}

// reconcilePredictionFulfilment flips any open EventPrediction matching
// ev's type and window to FULFILLED (spec.md §4.J).
func (r *Reconciler) reconcilePredictionFulfilment(ctx context.Context, ev models.Event) error {
	open, err := r.predictions.OpenPredictions(ctx, ev.Type, ev.Timestamp)
	if err != nil {
		return err
	}
	for _, p := range open {
		if err := r.predictions.FulfilPrediction(ctx, p.ID, ev.ID); err != nil {
			r.logger.Warn("fulfil prediction %s: %v", p.ID, err)
			continue
		}
		if r.accuracy != nil {
			p.Status = models.FulfilmentFulfilled
			r.accuracy.Record(p)
		}
	}
	return nil
}
