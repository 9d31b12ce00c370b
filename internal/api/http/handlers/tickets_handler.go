package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/blob"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	issuer  *blob.CredentialIssuer
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, issuer *blob.CredentialIssuer) *TicketsHandler {
	return &TicketsHandler{service: ticketService, issuer: issuer}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.SubmitTicket(c.UserContext(), actor, service.TicketSubmitInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	tickets, err := h.service.ListTicketsFor(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, replies, err := h.service.GetTicketDetail(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, replies)})
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Transition(c.UserContext(), actor, id, req.State, req.Message, attachmentRefs(req.Attachments))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddReply POST /tickets/:id/replies.
func (h *TicketsHandler) AddReply(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var req dto.CreateReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	reply, err := h.service.Reply(c.UserContext(), actor, id, req.Message, attachmentRefs(req.Attachments))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": replyResponse(reply)})
}

// UploadCredentials GET /tickets/:id/attachment-upload-credentials.
// Only callers who can read the ticket may upload into its folder.
func (h *TicketsHandler) UploadCredentials(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, _, err := h.service.GetTicketDetail(c.UserContext(), actor, id)
	if err != nil {
		return err
	}
	cred, err := h.issuer.Issue(c.UserContext(), actor, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": cred})
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}

func attachmentRefs(reqs []dto.AttachmentRequest) []domain.AttachmentRef {
	if len(reqs) == 0 {
		return nil
	}
	refs := make([]domain.AttachmentRef, 0, len(reqs))
	for _, req := range reqs {
		refs = append(refs, domain.AttachmentRef{
			URL:       req.URL,
			Name:      req.Name,
			StorageID: req.StorageID,
			Kind:      req.Kind,
		})
	}
	return refs
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:             ticket.ID,
		ExternalKey:    ticket.ExternalKey,
		Title:          ticket.Title,
		Category:       ticket.Category,
		Priority:       ticket.Priority,
		State:          ticket.State,
		RequesterName:  ticket.RequesterName,
		RequesterEmail: ticket.RequesterEmail,
		AutoClosed:     ticket.AutoClosed,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, replies []domain.Reply) dto.TicketDetailResponse {
	items := make([]dto.ReplyResponse, 0, len(replies))
	for i := range replies {
		items = append(items, replyResponse(&replies[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Description:   ticket.Description,
		ResolvedAt:    ticket.ResolvedAt,
		ClosedAt:      ticket.ClosedAt,
		Replies:       items,
	}
}

func replyResponse(reply *domain.Reply) dto.ReplyResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(reply.Attachments))
	for _, att := range reply.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:   att.ID,
			URL:  att.URL,
			Name: att.Name,
			Kind: att.Kind,
		})
	}
	return dto.ReplyResponse{
		ID:          reply.ID,
		Message:     reply.Message,
		SenderLabel: reply.SenderLabel,
		Attachments: attachments,
		CreatedAt:   reply.CreatedAt,
	}
}
