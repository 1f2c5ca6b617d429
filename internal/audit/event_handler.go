// Package audit turns domain events into the structured audit log.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-tickets/internal/core/events"
)

type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{logger: logger.With("component", "audit")}
}

func (h *EventHandler) HandleAccessDenied(ctx context.Context, event events.Event) error {
	denied, ok := event.(*events.AccessDeniedEvent)
	if !ok {
		h.logger.Error("invalid event type for access denied handler", "event_type", event.EventType())
		return fmt.Errorf("expected AccessDeniedEvent, got %T", event)
	}

	h.logger.WarnContext(ctx, "RBAC deny",
		"subject", denied.Subject,
		"effective_role", denied.EffectiveRole,
		"required", denied.Required,
		"have", denied.Have,
		"resource", denied.Resource,
		"event_id", denied.EventID())
	return nil
}

func (h *EventHandler) HandleTicketCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(*events.TicketCreatedEvent)
	if !ok {
		return fmt.Errorf("expected TicketCreatedEvent, got %T", event)
	}

	h.logger.InfoContext(ctx, "ticket created",
		"ticket_id", created.TicketID,
		"created_by", created.CreatedBy,
		"amount", created.Amount,
		"event_id", created.EventID())
	return nil
}

func (h *EventHandler) HandleTicketAction(ctx context.Context, event events.Event) error {
	applied, ok := event.(*events.TicketActionEvent)
	if !ok {
		return fmt.Errorf("expected TicketActionEvent, got %T", event)
	}

	h.logger.InfoContext(ctx, "ticket action applied",
		"ticket_id", applied.TicketID,
		"action", applied.Action,
		"actor", applied.Actor,
		"status", applied.Status,
		"event_id", applied.EventID())
	return nil
}

func (h *EventHandler) HandleTicketDeleted(ctx context.Context, event events.Event) error {
	deleted, ok := event.(*events.TicketDeletedEvent)
	if !ok {
		return fmt.Errorf("expected TicketDeletedEvent, got %T", event)
	}

	h.logger.InfoContext(ctx, "ticket deleted",
		"ticket_id", deleted.TicketID,
		"deleted_by", deleted.DeletedBy,
		"attachment_path", deleted.AttachmentPath,
		"event_id", deleted.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypeAccessDenied, h.HandleAccessDenied)
	eventBus.Subscribe(events.EventTypeTicketCreated, h.HandleTicketCreated)
	eventBus.Subscribe(events.EventTypeTicketAction, h.HandleTicketAction)
	eventBus.Subscribe(events.EventTypeTicketDeleted, h.HandleTicketDeleted)

	h.logger.Info("audit event handlers registered",
		"handlers", []string{
			events.EventTypeAccessDenied,
			events.EventTypeTicketCreated,
			events.EventTypeTicketAction,
			events.EventTypeTicketDeleted,
		})
}
