package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

const auditSection = "tickets"

// TicketService coordinates the ticket lifecycle: creation, scoped
// listing, state transitions, threaded replies, and the notification
// side effects tied to each. State is always persisted before any
// notification is attempted.
type TicketService struct {
	tickets    repository.TicketRepository
	replies    repository.ReplyRepository
	audit      repository.AuditRepository
	composer   *ReplyComposer
	machine    StateMachine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	opsMailbox string
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	ReplyRepo  repository.ReplyRepository
	AuditRepo  repository.AuditRepository
	Composer   *ReplyComposer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	OpsMailbox string
	Now        func() time.Time
}

// TicketSubmitInput describes ticket creation payload.
type TicketSubmitInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		replies:    deps.ReplyRepo,
		audit:      deps.AuditRepo,
		composer:   deps.Composer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		opsMailbox: deps.OpsMailbox,
		now:        now,
	}
}

// SubmitTicket creates a ticket for the actor and fires the creation
// notification to the operations mailbox.
func (s *TicketService) SubmitTicket(ctx context.Context, actor domain.Actor, input TicketSubmitInput) (*domain.Ticket, error) {
	details := map[string]any{}
	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "required"
	}
	if len(details) > 0 {
		return nil, util.NewValidationError("missing required ticket fields", details)
	}

	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = domain.DefaultCategory
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, util.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		ExternalKey:    generateTicketKey(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		Category:       category,
		Priority:       priority,
		State:          domain.TicketStateOpen,
		RequesterName:  actor.Name,
		RequesterEmail: actor.Email,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, fmt.Sprintf("submitted ticket #%d", ticket.ID), ticket.ID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
			Mail: notifier.Message{
				To:      s.opsMailbox,
				Subject: fmt.Sprintf("New ticket #%d: %s", ticket.ID, ticket.Title),
				Text: fmt.Sprintf("%s <%s> submitted a %s priority ticket in %s.\n\n%s",
					ticket.RequesterName, ticket.RequesterEmail, ticket.Priority, ticket.Category, ticket.Description),
			},
		},
	})
	return ticket, nil
}

// ListTicketsFor returns the tickets visible to the actor: everything
// for admins, only the actor's own tickets otherwise.
func (s *TicketService) ListTicketsFor(ctx context.Context, actor domain.Actor) ([]domain.Ticket, error) {
	if actor.IsAdmin() {
		return s.tickets.ListAll(ctx)
	}
	return s.tickets.ListByRequester(ctx, actor.Email)
}

// GetTicketDetail fetches a ticket and its thread, enforcing read
// authorization: admin, or requester by email match.
func (s *TicketService) GetTicketDetail(ctx context.Context, actor domain.Actor, id int64) (*domain.Ticket, []domain.Reply, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !auth.Authorize(actor.Role, auth.ActionReadTicket, ticket.RequesterEmail, actor.Email) {
		return nil, nil, util.NewForbidden("access denied")
	}
	replies, err := s.replies.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, replies, nil
}

// Transition moves a ticket to the target state. An optional message
// and attachments accompany the transition as a reply; a system audit
// reply is inserted when a requester rejects a resolution.
func (s *TicketService) Transition(ctx context.Context, actor domain.Actor, id int64, target domain.TicketState, message string, attachments []domain.AttachmentRef) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := ticket.State

	if err := s.machine.Apply(ticket, target, actor, s.now()); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	var composed *ComposedReply
	if message != "" || len(attachments) > 0 {
		composed, err = s.composer.Compose(actor, ticket, message, attachments)
		if err != nil {
			return nil, err
		}
	}

	if err := s.tickets.UpdateState(ctx, ticket, previous); err != nil {
		return nil, err
	}
	if composed != nil {
		if err := s.replies.Create(ctx, &composed.Reply); err != nil {
			return nil, err
		}
	}
	if previous == domain.TicketStateResolved && target == domain.TicketStateOpen {
		notice := s.composer.SystemNotice(ticket, fmt.Sprintf("Resolution rejected by %s; ticket reopened.", ticket.RequesterName))
		if err := s.replies.Create(ctx, &notice); err != nil {
			return nil, err
		}
	}

	s.recordAudit(ctx, actor, fmt.Sprintf("moved ticket #%d from %s to %s", ticket.ID, previous, target), ticket.ID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStateChanged,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStateChangedPayload{
			OldState:   previous,
			NewState:   ticket.State,
			AutoClosed: ticket.AutoClosed,
			Mail:       s.transitionMail(actor, ticket, previous, message, attachments),
		},
	})
	return ticket, nil
}

// Reply appends a reply to a ticket's thread and fires the routed
// notification once the reply is durably stored.
func (s *TicketService) Reply(ctx context.Context, actor domain.Actor, id int64, message string, attachments []domain.AttachmentRef) (*domain.Reply, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.Authorize(actor.Role, auth.ActionReply, ticket.RequesterEmail, actor.Email) {
		return nil, util.NewForbidden("access denied")
	}

	composed, err := s.composer.Compose(actor, ticket, message, attachments)
	if err != nil {
		return nil, err
	}
	if err := s.replies.Create(ctx, &composed.Reply); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actor, fmt.Sprintf("replied on ticket #%d", ticket.ID), ticket.ID)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReplyAdded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketReplyAddedPayload{
			ReplyID:     composed.Reply.ID,
			SenderLabel: composed.Reply.SenderLabel,
			Attachments: len(composed.Reply.Attachments),
			Mail:        composed.Notification,
		},
	})
	return &composed.Reply, nil
}

// transitionMail renders the notification describing a state change.
// Admin-driven changes notify the requester; requester-driven ones
// notify the operations mailbox; system sweeps notify nobody.
func (s *TicketService) transitionMail(actor domain.Actor, ticket *domain.Ticket, previous domain.TicketState, message string, attachments []domain.AttachmentRef) notifier.Message {
	if actor.IsSystem() {
		return notifier.Message{}
	}
	var mail notifier.Message
	if actor.Owns(ticket) {
		mail.To = s.opsMailbox
	} else {
		mail.To = ticket.RequesterEmail
	}
	mail.Subject = fmt.Sprintf("Ticket #%d is now %s: %s", ticket.ID, ticket.State, ticket.Title)
	body := fmt.Sprintf("The state of ticket #%d changed from %s to %s.", ticket.ID, previous, ticket.State)
	if message != "" || len(attachments) > 0 {
		text, html := renderBodies(message, attachments)
		mail.Text = body + "\n\n" + text
		mail.HTML = html
	} else {
		mail.Text = body
	}
	return mail
}

func (s *TicketService) recordAudit(ctx context.Context, actor domain.Actor, action string, ticketID int64) {
	if s.audit == nil {
		return
	}
	entry := &domain.AuditEntry{
		ActorID: actor.Email,
		Action:  action,
		Section: auditSection,
		Link:    fmt.Sprintf("/tickets/%d", ticketID),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit entry not recorded", zap.Error(err), zap.Int64("ticket_id", ticketID))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
