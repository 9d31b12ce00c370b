package domain

import "time"

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen     TicketState = "OPEN"
	TicketStateResolved TicketState = "RESOLVED"
	TicketStateClosed   TicketState = "CLOSED"
)

// Valid reports whether the state is a known lifecycle state.
func (s TicketState) Valid() bool {
	switch s {
	case TicketStateOpen, TicketStateResolved, TicketStateClosed:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Valid reports whether the priority is a known value.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// DefaultCategory is assigned when a ticket is submitted without one.
// Categories are an open set; no enum is enforced beyond the default.
const DefaultCategory = "Other"

// Ticket is the aggregate for support requests. RequesterEmail is
// immutable after creation and anchors non-admin authorization.
type Ticket struct {
	ID             int64
	ExternalKey    string
	Title          string
	Description    string
	Category       string
	Priority       TicketPriority
	State          TicketState
	RequesterName  string
	RequesterEmail string
	AutoClosed     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
	ClosedAt       *time.Time
}
