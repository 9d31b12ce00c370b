package auth

import "github.com/spec-kit/helpdesk-service/internal/domain"

// Action names a ticket operation subject to authorization.
type Action string

const (
	ActionReadTicket  Action = "read_ticket"
	ActionReply       Action = "reply"
	ActionResolve     Action = "resolve"
	ActionClose       Action = "close"
	ActionForceClose  Action = "force_close"
	ActionReopen      Action = "reopen"
	ActionIssueUpload Action = "issue_upload_credentials"
)

// Authorize decides whether a role may perform an action on a ticket
// owned by ownerEmail. It is a pure function of its arguments so it can
// be tested without any request or session context.
func Authorize(role domain.Role, action Action, ownerEmail, actorEmail string) bool {
	if role == domain.RoleAdmin || role == domain.RoleSystem {
		return true
	}
	owner := actorEmail != "" && actorEmail == ownerEmail
	switch action {
	case ActionReadTicket, ActionReply, ActionIssueUpload:
		return owner
	case ActionReopen, ActionClose:
		// a requester may confirm or reject resolution of their own ticket
		return owner
	case ActionResolve, ActionForceClose:
		return false
	}
	return false
}
