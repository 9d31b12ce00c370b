package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// ReplyComposer builds threaded reply records and the notification that
// accompanies them. Routing depends on who replies: support replies go
// to the requester, requester replies go to the operations mailbox.
type ReplyComposer struct {
	opsMailbox string
}

// NewReplyComposer constructs the composer.
func NewReplyComposer(opsMailbox string) *ReplyComposer {
	return &ReplyComposer{opsMailbox: opsMailbox}
}

// ComposedReply bundles the reply to persist with the notification to
// deliver after the reply is durably stored.
type ComposedReply struct {
	Reply        domain.Reply
	Notification notifier.Message
}

// Compose validates the reply content and determines sender label,
// recipient, subject and rendered bodies. The caller is responsible for
// authorization; the composer assumes the actor may write to the ticket.
func (c *ReplyComposer) Compose(actor domain.Actor, ticket *domain.Ticket, message string, attachments []domain.AttachmentRef) (*ComposedReply, error) {
	message = strings.TrimSpace(message)
	if message == "" && len(attachments) == 0 {
		return nil, util.NewValidationError("reply requires a message or at least one attachment", nil)
	}
	if err := ValidateAttachments(ticket.ID, attachments); err != nil {
		return nil, err
	}

	reply := domain.Reply{
		TicketID:    ticket.ID,
		Message:     message,
		Attachments: attachments,
	}

	var msg notifier.Message
	if actor.Owns(ticket) {
		label := strings.TrimSpace(actor.Name)
		if label == "" {
			label = actor.Email
		}
		reply.SenderLabel = label
		msg.To = c.opsMailbox
		msg.Subject = fmt.Sprintf("New reply on ticket #%d: %s", ticket.ID, ticket.Title)
	} else {
		reply.SenderLabel = domain.SenderLabelSupport
		msg.To = ticket.RequesterEmail
		msg.Subject = fmt.Sprintf("Update on ticket #%d: %s", ticket.ID, ticket.Title)
	}
	msg.Text, msg.HTML = renderBodies(message, attachments)

	return &ComposedReply{Reply: reply, Notification: msg}, nil
}

// SystemNotice builds an automated audit reply carrying only a message.
func (c *ReplyComposer) SystemNotice(ticket *domain.Ticket, message string) domain.Reply {
	return domain.Reply{
		TicketID:    ticket.ID,
		Message:     message,
		SenderLabel: domain.SenderLabelSystem,
	}
}

// ValidateAttachments enforces that every attachment belongs to the
// ticket's storage namespace and carries a known media kind. Storage
// identifiers outside tickets/<id>/ are rejected outright.
func ValidateAttachments(ticketID int64, attachments []domain.AttachmentRef) error {
	prefix := AttachmentNamespace(ticketID)
	for _, att := range attachments {
		if !att.Kind.Valid() {
			return util.NewValidationError("unknown attachment kind", map[string]any{"kind": att.Kind, "name": att.Name})
		}
		if !strings.HasPrefix(att.StorageID, prefix) {
			return util.NewValidationError("attachment outside ticket namespace",
				map[string]any{"storage_id": att.StorageID, "expected_prefix": prefix})
		}
	}
	return nil
}

// AttachmentNamespace returns the storage folder prefix for a ticket.
func AttachmentNamespace(ticketID int64) string {
	return fmt.Sprintf("tickets/%d/", ticketID)
}

// renderBodies renders plain-text and HTML notification bodies. Images
// are embedded inline; documents and videos become links.
func renderBodies(message string, attachments []domain.AttachmentRef) (string, string) {
	var text strings.Builder
	var body strings.Builder

	if message != "" {
		text.WriteString(message)
		body.WriteString("<p>" + html.EscapeString(message) + "</p>")
	}

	if len(attachments) > 0 {
		if message != "" {
			text.WriteString("\n\n")
		}
		text.WriteString("Attachments:\n")
		for _, att := range attachments {
			fmt.Fprintf(&text, "- %s: %s\n", att.Name, att.URL)
			switch att.Kind {
			case domain.AttachmentKindImage:
				fmt.Fprintf(&body, `<p><img src=%q alt=%q/></p>`, att.URL, att.Name)
			default:
				fmt.Fprintf(&body, `<p><a href=%q>%s</a></p>`, att.URL, html.EscapeString(att.Name))
			}
		}
	}

	return text.String(), body.String()
}
