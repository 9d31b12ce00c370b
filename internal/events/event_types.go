package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventTicketReplyAdded   EventType = "ticket_reply_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  int64        `json:"ticket_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload carries the rendered operations notification.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Category string                `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
	Mail     notifier.Message      `json:"-"`
}

// TicketStateChangedPayload carries the transition and its notification.
type TicketStateChangedPayload struct {
	OldState   domain.TicketState `json:"old_state"`
	NewState   domain.TicketState `json:"new_state"`
	AutoClosed bool               `json:"auto_closed"`
	Mail       notifier.Message   `json:"-"`
}

// TicketReplyAddedPayload carries the reply metadata and notification.
type TicketReplyAddedPayload struct {
	ReplyID     int64            `json:"reply_id"`
	SenderLabel string           `json:"sender_label"`
	Attachments int              `json:"attachments"`
	Mail        notifier.Message `json:"-"`
}
