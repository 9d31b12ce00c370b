package service

import (
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// transitionRule describes one legal edge of the ticket lifecycle:
// which action it corresponds to for authorization, and the timestamp
// effects of taking it.
type transitionRule struct {
	action auth.Action
	apply  func(ticket *domain.Ticket, actor domain.Actor, now time.Time)
}

func enterResolved(ticket *domain.Ticket, _ domain.Actor, now time.Time) {
	ticket.State = domain.TicketStateResolved
	ticket.ResolvedAt = &now
	ticket.ClosedAt = nil
	ticket.AutoClosed = false
}

func enterClosed(ticket *domain.Ticket, actor domain.Actor, now time.Time) {
	ticket.State = domain.TicketStateClosed
	ticket.ClosedAt = &now
	ticket.AutoClosed = actor.IsSystem()
}

func enterOpen(ticket *domain.Ticket, _ domain.Actor, now time.Time) {
	ticket.State = domain.TicketStateOpen
	ticket.ResolvedAt = nil
	ticket.ClosedAt = nil
	ticket.AutoClosed = false
}

// transitionTable is the explicit current-state x target-state table.
// Every timestamp rule lives here and nowhere else.
var transitionTable = map[domain.TicketState]map[domain.TicketState]transitionRule{
	domain.TicketStateOpen: {
		domain.TicketStateResolved: {action: auth.ActionResolve, apply: enterResolved},
		domain.TicketStateClosed:   {action: auth.ActionForceClose, apply: enterClosed},
	},
	domain.TicketStateResolved: {
		domain.TicketStateOpen:   {action: auth.ActionReopen, apply: enterOpen},
		domain.TicketStateClosed: {action: auth.ActionClose, apply: enterClosed},
	},
	domain.TicketStateClosed: {},
}

// StateMachine validates and applies ticket state transitions.
type StateMachine struct{}

// Apply moves the ticket to the target state on behalf of the actor.
// The ticket is mutated only when the transition is both legal and
// authorized; otherwise it is returned untouched with a
// ValidationError (illegal edge) or a ForbiddenError (unauthorized
// actor).
func (StateMachine) Apply(ticket *domain.Ticket, target domain.TicketState, actor domain.Actor, now time.Time) error {
	if !target.Valid() {
		return util.NewValidationError("unknown target state", map[string]any{"state": target})
	}
	rule, ok := transitionTable[ticket.State][target]
	if !ok {
		return util.NewValidationError(
			fmt.Sprintf("cannot transition ticket from %s to %s", ticket.State, target), nil)
	}
	if !auth.Authorize(actor.Role, rule.action, ticket.RequesterEmail, actor.Email) {
		return util.NewForbidden("not allowed to change this ticket's state")
	}
	rule.apply(ticket, actor, now)
	return nil
}
