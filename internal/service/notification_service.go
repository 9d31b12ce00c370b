package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
)

// NotificationService delivers the email attached to domain events.
// Delivery is best-effort and at-most-once: the state change has
// already been persisted by the time an event reaches this service, so
// failures are logged and never propagated.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     notifier.Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender notifier.Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStateChanged, n.handleTicketStateChanged)
	n.dispatcher.Subscribe(events.EventTicketReplyAdded, n.handleTicketReplyAdded)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.deliver(ctx, event, payload.Mail)
	return nil
}

func (n *NotificationService) handleTicketStateChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStateChangedPayload)
	if !ok {
		return nil
	}
	n.deliver(ctx, event, payload.Mail)
	return nil
}

func (n *NotificationService) handleTicketReplyAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReplyAddedPayload)
	if !ok {
		return nil
	}
	n.deliver(ctx, event, payload.Mail)
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, msg notifier.Message) {
	if msg.To == "" {
		return
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.String("to", msg.To),
		)
		return
	}
	n.logger.Debug("notification sent",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("to", msg.To),
	)
}
