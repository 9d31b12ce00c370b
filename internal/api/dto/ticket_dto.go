package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TransitionRequest payload. Message and attachments are optional and
// become a reply accompanying the state change.
type TransitionRequest struct {
	State       domain.TicketState  `json:"state"`
	Message     string              `json:"message"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// CreateReplyRequest payload.
type CreateReplyRequest struct {
	Message     string              `json:"message"`
	Attachments []AttachmentRequest `json:"attachments"`
}

// AttachmentRequest describes an already-uploaded media object.
type AttachmentRequest struct {
	URL       string                `json:"url"`
	Name      string                `json:"name"`
	StorageID string                `json:"storage_id"`
	Kind      domain.AttachmentKind `json:"kind"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             int64                 `json:"id"`
	ExternalKey    string                `json:"external_key"`
	Title          string                `json:"title"`
	Category       string                `json:"category"`
	Priority       domain.TicketPriority `json:"priority"`
	State          domain.TicketState    `json:"state"`
	RequesterName  string                `json:"requester_name"`
	RequesterEmail string                `json:"requester_email"`
	AutoClosed     bool                  `json:"auto_closed"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info including the thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string          `json:"description"`
	ResolvedAt  *time.Time      `json:"resolved_at"`
	ClosedAt    *time.Time      `json:"closed_at"`
	Replies     []ReplyResponse `json:"replies"`
}

// ReplyResponse represents one thread entry.
type ReplyResponse struct {
	ID          int64                `json:"id"`
	Message     string               `json:"message"`
	SenderLabel string               `json:"sender_label"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID   int64                 `json:"id"`
	URL  string                `json:"url"`
	Name string                `json:"name"`
	Kind domain.AttachmentKind `json:"kind"`
}
