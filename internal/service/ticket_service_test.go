package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

type serviceHarness struct {
	svc     *TicketService
	tickets *memTicketRepo
	replies *memReplyRepo
	audit   *memAuditRepo
	sender  *captureNotifier
}

func newServiceHarness() *serviceHarness {
	h := &serviceHarness{
		tickets: newMemTicketRepo(),
		replies: &memReplyRepo{},
		audit:   &memAuditRepo{},
		sender:  &captureNotifier{},
	}
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, h.sender, logger).RegisterHandlers()
	h.svc = NewTicketService(TicketDependencies{
		TicketRepo: h.tickets,
		ReplyRepo:  h.replies,
		AuditRepo:  h.audit,
		Composer:   NewReplyComposer(opsMailbox),
		Dispatcher: dispatcher,
		Logger:     logger,
		OpsMailbox: opsMailbox,
	})
	return h
}

func (h *serviceHarness) submit(t *testing.T, actor domain.Actor) *domain.Ticket {
	t.Helper()
	ticket, err := h.svc.SubmitTicket(context.Background(), actor, TicketSubmitInput{
		Title:       "Printer broken",
		Description: "Paper jam on the third floor printer.",
	})
	require.NoError(t, err)
	return ticket
}

func TestSubmitTicketAppliesDefaultsAndNotifiesOps(t *testing.T) {
	h := newServiceHarness()

	ticket := h.submit(t, requester)

	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, domain.DefaultCategory, ticket.Category)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, "a@x.com", ticket.RequesterEmail)
	assert.NotEmpty(t, ticket.ExternalKey)
	assert.False(t, ticket.AutoClosed)

	msgs := h.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, opsMailbox, msgs[0].To)
	assert.Contains(t, msgs[0].Subject, "New ticket #1")
	assert.Contains(t, msgs[0].Text, "a@x.com")
}

func TestSubmitTicketRejectsMissingFields(t *testing.T) {
	h := newServiceHarness()

	_, err := h.svc.SubmitTicket(context.Background(), requester, TicketSubmitInput{Title: " "})
	require.Error(t, err)
	assert.True(t, util.IsValidation(err))

	var domErr *util.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Contains(t, domErr.Details, "title")
	assert.Contains(t, domErr.Details, "description")
	assert.Empty(t, h.sender.messages())
}

func TestSubmitTicketRejectsUnknownPriority(t *testing.T) {
	h := newServiceHarness()

	_, err := h.svc.SubmitTicket(context.Background(), requester, TicketSubmitInput{
		Title:       "x",
		Description: "y",
		Priority:    domain.TicketPriority("urgent"),
	})
	require.Error(t, err)
	assert.True(t, util.IsValidation(err))
}

func TestListTicketsScopedByRole(t *testing.T) {
	h := newServiceHarness()
	h.submit(t, requester)
	h.submit(t, stranger)

	all, err := h.svc.ListTicketsFor(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := h.svc.ListTicketsFor(context.Background(), requester)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "a@x.com", own[0].RequesterEmail)
}

func TestGetTicketDetailAuthorization(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)

	_, _, err := h.svc.GetTicketDetail(context.Background(), stranger, ticket.ID)
	require.Error(t, err)
	assert.True(t, util.IsForbidden(err))

	_, _, err = h.svc.GetTicketDetail(context.Background(), requester, 99)
	require.Error(t, err)
	assert.True(t, util.IsNotFound(err))

	got, replies, err := h.svc.GetTicketDetail(context.Background(), requester, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Empty(t, replies)
}

// Full lifecycle: resolve with a note, requester rejects, resolve again,
// requester confirms the close.
func TestTransitionLifecycle(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	resolved, err := h.svc.Transition(ctx, admin, ticket.ID, domain.TicketStateResolved, "Replaced cartridge", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateResolved, resolved.State)
	require.NotNil(t, resolved.ResolvedAt)

	msgs := h.sender.messages()
	require.Len(t, msgs, 2) // creation + resolution
	assert.Equal(t, "a@x.com", msgs[1].To)
	assert.Contains(t, msgs[1].Subject, "RESOLVED")
	assert.Contains(t, msgs[1].Text, "Replaced cartridge")

	reopened, err := h.svc.Transition(ctx, requester, ticket.ID, domain.TicketStateOpen, "Still jams on duplex", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, reopened.State)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.ClosedAt)

	replies, err := h.replies.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, replies, 3) // resolution note, rejection reply, system notice
	last := replies[len(replies)-1]
	assert.Equal(t, domain.SenderLabelSystem, last.SenderLabel)
	assert.Contains(t, last.Message, "Resolution rejected by Alice")

	msgs = h.sender.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, opsMailbox, msgs[2].To) // reopen notifies ops

	_, err = h.svc.Transition(ctx, admin, ticket.ID, domain.TicketStateResolved, "", nil)
	require.NoError(t, err)

	closed, err := h.svc.Transition(ctx, requester, ticket.ID, domain.TicketStateClosed, "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, closed.State)
	assert.False(t, closed.AutoClosed)
	require.NotNil(t, closed.ClosedAt)

	stored, err := h.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, stored.State)
	assert.False(t, stored.AutoClosed)
}

func TestTransitionForbiddenLeavesTicketUntouched(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, requester, ticket.ID, domain.TicketStateResolved, "", nil)
	require.Error(t, err)
	assert.True(t, util.IsForbidden(err))

	stored, err := h.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, stored.State)
	assert.Nil(t, stored.ResolvedAt)

	replies, err := h.replies.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestTransitionRejectsBadAttachmentBeforePersisting(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	atts := []domain.AttachmentRef{{
		URL:       "https://media.example.com/tickets/99/x.png",
		Name:      "x.png",
		StorageID: "tickets/99/x",
		Kind:      domain.AttachmentKindImage,
	}}
	_, err := h.svc.Transition(ctx, admin, ticket.ID, domain.TicketStateResolved, "fixed", atts)
	require.Error(t, err)
	assert.True(t, util.IsValidation(err))

	stored, err := h.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateOpen, stored.State, "state must not change when the reply is invalid")
}

func TestReplyRoutingAndPersistence(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	atts := []domain.AttachmentRef{{
		URL:       "https://media.example.com/tickets/1/shot.png",
		Name:      "shot.png",
		StorageID: "tickets/1/shot",
		Kind:      domain.AttachmentKindImage,
	}}
	reply, err := h.svc.Reply(ctx, requester, ticket.ID, "see screenshot", atts)
	require.NoError(t, err)
	assert.Equal(t, "Alice", reply.SenderLabel)
	require.Len(t, reply.Attachments, 1)
	assert.Equal(t, reply.ID, reply.Attachments[0].ReplyID)

	msgs := h.sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, opsMailbox, msgs[1].To)

	adminReply, err := h.svc.Reply(ctx, admin, ticket.ID, "on it", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SenderLabelSupport, adminReply.SenderLabel)

	msgs = h.sender.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "a@x.com", msgs[2].To)
}

func TestReplyForbiddenForStranger(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	_, err := h.svc.Reply(ctx, stranger, ticket.ID, "drive-by comment", nil)
	require.Error(t, err)
	assert.True(t, util.IsForbidden(err))

	replies, err := h.replies.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	h := newServiceHarness()
	h.sender.fail = true

	ticket, err := h.svc.SubmitTicket(context.Background(), requester, TicketSubmitInput{
		Title:       "Printer broken",
		Description: "Paper jam.",
	})
	require.NoError(t, err)

	_, err = h.svc.Reply(context.Background(), admin, ticket.ID, "looking into it", nil)
	require.NoError(t, err)

	replies, err := h.replies.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, replies, 1)
}

func TestSystemTransitionSendsNoMail(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, admin, ticket.ID, domain.TicketStateResolved, "", nil)
	require.NoError(t, err)
	before := len(h.sender.messages())

	closed, err := h.svc.Transition(ctx, domain.SystemActor, ticket.ID, domain.TicketStateClosed, "", nil)
	require.NoError(t, err)
	assert.True(t, closed.AutoClosed)
	assert.Len(t, h.sender.messages(), before, "system sweeps must not email anyone")
}

func TestAuditTrailRecordsLifecycle(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)
	ctx := context.Background()

	_, err := h.svc.Transition(ctx, admin, ticket.ID, domain.TicketStateResolved, "", nil)
	require.NoError(t, err)
	_, err = h.svc.Reply(ctx, requester, ticket.ID, "thanks", nil)
	require.NoError(t, err)

	entries, err := h.audit.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, entry := range entries {
		assert.Equal(t, "tickets", entry.Section)
		assert.Equal(t, "/tickets/1", entry.Link)
	}
}

func TestStorageFailureSurfacesRetryableError(t *testing.T) {
	h := newServiceHarness()
	h.tickets.fail = true

	_, err := h.svc.SubmitTicket(context.Background(), requester, TicketSubmitInput{
		Title:       "x",
		Description: "y",
	})
	require.Error(t, err)

	var domErr *util.DomainError
	require.ErrorAs(t, err, &domErr)
	assert.Equal(t, "STORAGE_ERROR", domErr.Code)
	assert.True(t, domErr.Retryable)
	assert.Empty(t, h.sender.messages())
}

func TestTransitionMailSubjectNamesNewState(t *testing.T) {
	h := newServiceHarness()
	ticket := h.submit(t, requester)

	_, err := h.svc.Transition(context.Background(), admin, ticket.ID, domain.TicketStateResolved, "", nil)
	require.NoError(t, err)

	msgs := h.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Subject, string(domain.TicketStateResolved))
	assert.Contains(t, msgs[1].Subject, ticket.Title)
	assert.Contains(t, msgs[1].Text, "OPEN")

	h2 := newServiceHarness()
	ticket2 := h2.submit(t, requester)
	_, err = h2.svc.Transition(context.Background(), admin, ticket2.ID, domain.TicketStateResolved, "", nil)
	require.NoError(t, err)
	_, err = h2.svc.Transition(context.Background(), requester, ticket2.ID, domain.TicketStateOpen, "", nil)
	require.NoError(t, err)
	msgs = h2.sender.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, opsMailbox, msgs[2].To)
}
