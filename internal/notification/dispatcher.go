package notification

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"vigil/internal/notification/registry"
	"vigil/internal/platform/metrics"
	"vigil/internal/transition"
	"vigil/pkg/domain"
)

// Directory resolves the alert recipient set.
type Directory interface {
	EnabledCaretakers(ctx context.Context) ([]string, error)
}

// Dispatcher turns events into recipient-addressed notifications. Every
// notification is persisted before any push attempt, so a failed push never
// loses it; the persisted row is what an offline recipient sees on next login.
type Dispatcher struct {
	store     Store
	directory Directory
	registry  *registry.Registry
	bridge    *Bridge
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewDispatcher(store Store, directory Directory, reg *registry.Registry, bridge *Bridge, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		store:     store,
		directory: directory,
		registry:  reg,
		bridge:    bridge,
		logger:    logger,
		metrics:   m,
	}
}

func (d *Dispatcher) Name() string { return "notification" }

// OnTransition fans a state-change alert out to all enabled caretakers. Errors
// for individual recipients are logged and do not stop the fanout; the bus
// isolates any returned error from the triggering operation.
func (d *Dispatcher) OnTransition(ctx context.Context, event transition.Event) error {
	message := RenderStateChanged(event)
	return d.fanOut(ctx, TypeStateChanged, message, event.SubjectID.String())
}

// OnAnalysisComplete alerts caretakers that an analysis finished, independent
// of whether it produced a state transition.
func (d *Dispatcher) OnAnalysisComplete(ctx context.Context, outcomeID domain.OutcomeID, subjectName string, label domain.RiskLevel) error {
	message := RenderAnalysisComplete(subjectName, label)
	return d.fanOut(ctx, TypeAnalysisComplete, message, outcomeID.String())
}

func (d *Dispatcher) fanOut(ctx context.Context, typ Type, message, resourceID string) error {
	recipients, err := d.directory.EnabledCaretakers(ctx)
	if err != nil {
		return err
	}
	for _, recipient := range recipients {
		n := &Notification{
			ID:                domain.NewNotificationID(),
			Recipient:         recipient,
			Type:              typ,
			Message:           message,
			RelatedResourceID: resourceID,
			CreatedAt:         time.Now(),
		}
		// Persist first: the row is the durable source of truth and must
		// exist before any delivery attempt.
		if err := d.store.Save(ctx, n); err != nil {
			d.logger.ErrorContext(ctx, "persist notification failed",
				"recipient", recipient,
				"type", string(typ),
				"error", err,
			)
			continue
		}
		if d.metrics != nil {
			d.metrics.NotificationsCreated.Inc()
		}
		d.push(ctx, n)
	}
	return nil
}

// push attempts live delivery. Failure is invisible to the triggering caller:
// it is logged, counted, and left for the recipient's next poll.
func (d *Dispatcher) push(ctx context.Context, n *Notification) {
	payload, err := json.Marshal(payloadFrom(n))
	if err != nil {
		d.logger.ErrorContext(ctx, "encode push payload failed", "error", err)
		return
	}
	msg := registry.Message{Event: "notification", Data: payload}

	if d.registry.Send(n.Recipient, msg) {
		if d.metrics != nil {
			d.metrics.NotificationsPushed.Inc()
		}
		d.logger.InfoContext(ctx, "notification pushed", "recipient", n.Recipient)
	} else {
		if d.metrics != nil {
			d.metrics.PushFailures.Inc()
		}
		d.logger.InfoContext(ctx, "recipient offline, notification persisted only",
			"recipient", n.Recipient,
		)
	}

	// Other instances may hold this recipient's stream.
	if d.bridge != nil {
		if err := d.bridge.Publish(ctx, n.Recipient, msg); err != nil {
			d.logger.WarnContext(ctx, "push bridge publish failed",
				"recipient", n.Recipient,
				"error", err,
			)
		}
	}
}

// Payload is the JSON body of a pushed SSE event.
type Payload struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	Message           string `json:"message"`
	RelatedResourceID string `json:"relatedResourceId"`
	CreatedAt         string `json:"createdAt"`
}

func payloadFrom(n *Notification) Payload {
	return Payload{
		ID:                n.ID.String(),
		Type:              string(n.Type),
		Message:           n.Message,
		RelatedResourceID: n.RelatedResourceID,
		CreatedAt:         n.CreatedAt.Format(time.RFC3339Nano),
	}
}
