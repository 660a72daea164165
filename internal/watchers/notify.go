package watchers

import (
	"context"

	"github.com/shugein/ceg/internal/logging"
	"github.com/shugein/ceg/internal/models"
)

// Handler delivers a triggered watch to one downstream (webhook, chat,
// log). Handlers are best-effort: a failing handler never blocks delivery
// to its siblings (spec.md §4.J).
type Handler interface {
	Name() string
	Notify(ctx context.Context, tw models.TriggeredWatch) error
}

// Notifier fans a triggered watch out to every registered Handler.
type Notifier struct {
	handlers []Handler
	logger   *logging.Logger
}

// NewNotifier builds a Notifier with no handlers registered.
func NewNotifier() *Notifier {
	return &Notifier{logger: logging.GetLogger("watchers.notifier")}
}

// Register adds a delivery handler.
func (n *Notifier) Register(h Handler) {
	n.handlers = append(n.handlers, h)
}

// Dispatch delivers tw to every handler, isolating each failure as a
// models.WatcherHandlerError and continuing to the rest.
func (n *Notifier) Dispatch(ctx context.Context, tw models.TriggeredWatch) []error {
	var errs []error
	for _, h := range n.handlers {
		if err := h.Notify(ctx, tw); err != nil {
			werr := &models.WatcherHandlerError{Handler: h.Name(), Cause: err}
			n.logger.Warn("%v", werr)
			errs = append(errs, werr)
		}
	}
	return errs
}

// LogHandler delivers a triggered watch to the structured logger. It is
// always registered as a baseline handler so a deployment with no
// webhook/chat integration configured still observes triggers.
type LogHandler struct {
	logger *logging.Logger
}

// NewLogHandler builds a LogHandler.
func NewLogHandler() *LogHandler {
	return &LogHandler{logger: logging.GetLogger("watchers.handler.log")}
}

func (h *LogHandler) Name() string { return "log" }

func (h *LogHandler) Notify(ctx context.Context, tw models.TriggeredWatch) error {
	h.logger.Info("watch triggered: rule=%s level=%s event=%s", tw.RuleID, tw.Level, tw.TriggerEventID)
	return nil
}
