package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestAuthorize(t *testing.T) {
	const owner = "a@x.com"
	const stranger = "b@x.com"

	cases := []struct {
		name       string
		role       domain.Role
		action     Action
		actorEmail string
		want       bool
	}{
		{"admin may resolve", domain.RoleAdmin, ActionResolve, stranger, true},
		{"admin may force close", domain.RoleAdmin, ActionForceClose, stranger, true},
		{"system may resolve", domain.RoleSystem, ActionResolve, "system@localhost", true},
		{"system may close", domain.RoleSystem, ActionClose, "system@localhost", true},
		{"owner may read", domain.RoleMember, ActionReadTicket, owner, true},
		{"owner may reply", domain.RoleMember, ActionReply, owner, true},
		{"owner may reopen", domain.RoleMember, ActionReopen, owner, true},
		{"owner may confirm close", domain.RoleMember, ActionClose, owner, true},
		{"owner may request upload credentials", domain.RoleMember, ActionIssueUpload, owner, true},
		{"owner may not resolve", domain.RoleMember, ActionResolve, owner, false},
		{"owner may not force close", domain.RoleMember, ActionForceClose, owner, false},
		{"stranger may not read", domain.RoleMember, ActionReadTicket, stranger, false},
		{"stranger may not reply", domain.RoleMember, ActionReply, stranger, false},
		{"stranger may not reopen", domain.RoleMember, ActionReopen, stranger, false},
		{"stranger may not close", domain.RoleMember, ActionClose, stranger, false},
		{"empty email never owns", domain.RoleMember, ActionReadTicket, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Authorize(tc.role, tc.action, owner, tc.actorEmail)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAuthorizeEmptyOwnerNeverMatchesEmptyActor(t *testing.T) {
	assert.False(t, Authorize(domain.RoleMember, ActionReadTicket, "", ""))
}
