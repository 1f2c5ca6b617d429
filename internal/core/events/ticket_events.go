package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccessDenied  = "authz.access_denied"
	EventTypeTicketCreated = "ticket.created"
	EventTypeTicketAction  = "ticket.action_applied"
	EventTypeTicketDeleted = "ticket.deleted"
)

// AccessDeniedEvent is the audit record of a failed permission check.
type AccessDeniedEvent struct {
	BaseEvent
	Subject       string   `json:"subject"`
	EffectiveRole string   `json:"effective_role"`
	Required      []string `json:"required"`
	Have          []string `json:"have"`
	Resource      string   `json:"resource"`
}

func NewAccessDeniedEvent(subject, effectiveRole string, required, have []string, resource string) *AccessDeniedEvent {
	return &AccessDeniedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeAccessDenied,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"subject":        subject,
				"effective_role": effectiveRole,
				"required":       required,
				"have":           have,
				"resource":       resource,
			},
		},
		Subject:       subject,
		EffectiveRole: effectiveRole,
		Required:      required,
		Have:          have,
		Resource:      resource,
	}
}

type TicketCreatedEvent struct {
	BaseEvent
	TicketID  int64  `json:"ticket_id"`
	CreatedBy string `json:"created_by"`
	Amount    string `json:"amount"`
}

func NewTicketCreatedEvent(ticketID int64, createdBy, amount string) *TicketCreatedEvent {
	return &TicketCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeTicketCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"ticket_id":  ticketID,
				"created_by": createdBy,
				"amount":     amount,
			},
		},
		TicketID:  ticketID,
		CreatedBy: createdBy,
		Amount:    amount,
	}
}

type TicketActionEvent struct {
	BaseEvent
	TicketID int64  `json:"ticket_id"`
	Action   string `json:"action"`
	Actor    string `json:"actor"`
	Status   string `json:"status"`
}

func NewTicketActionEvent(ticketID int64, action, actor, status string) *TicketActionEvent {
	return &TicketActionEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeTicketAction,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"ticket_id": ticketID,
				"action":    action,
				"actor":     actor,
				"status":    status,
			},
		},
		TicketID: ticketID,
		Action:   action,
		Actor:    actor,
		Status:   status,
	}
}

type TicketDeletedEvent struct {
	BaseEvent
	TicketID       int64  `json:"ticket_id"`
	DeletedBy      string `json:"deleted_by"`
	AttachmentPath string `json:"attachment_path,omitempty"`
}

func NewTicketDeletedEvent(ticketID int64, deletedBy, attachmentPath string) *TicketDeletedEvent {
	return &TicketDeletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeTicketDeleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"ticket_id":       ticketID,
				"deleted_by":      deletedBy,
				"attachment_path": attachmentPath,
			},
		},
		TicketID:       ticketID,
		DeletedBy:      deletedBy,
		AttachmentPath: attachmentPath,
	}
}
