package domain

// Role describes the authorization level of an actor. Identity is
// issued by the portal's auth collaborator; this service only consumes
// it.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleSystem Role = "system"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SystemActor drives scheduled sweeps and other automated transitions.
var SystemActor = Actor{Email: "system@localhost", Name: "System", Role: RoleSystem}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsSystem reports whether the actor is the automated system identity.
func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}

// Owns reports whether the actor is the ticket's requester. An empty
// email never matches.
func (a Actor) Owns(t *Ticket) bool {
	return a.Email != "" && a.Email == t.RequesterEmail
}
