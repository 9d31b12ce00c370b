package domain

import "time"

// Sender labels shown in the ticket thread. Requester replies carry the
// requester's display name instead.
const (
	SenderLabelSupport = "Support"
	SenderLabelSystem  = "System"
)

// AttachmentKind classifies uploaded media for rendering purposes.
type AttachmentKind string

const (
	AttachmentKindImage    AttachmentKind = "image"
	AttachmentKindVideo    AttachmentKind = "video"
	AttachmentKindDocument AttachmentKind = "document"
)

// Valid reports whether the kind is a known media class.
func (k AttachmentKind) Valid() bool {
	switch k {
	case AttachmentKindImage, AttachmentKindVideo, AttachmentKindDocument:
		return true
	}
	return false
}

// AttachmentRef points at a media object already uploaded to the media
// host. StorageID must live inside the owning ticket's folder.
type AttachmentRef struct {
	ID        int64          `json:"id"`
	ReplyID   int64          `json:"reply_id"`
	URL       string         `json:"url"`
	Name      string         `json:"name"`
	StorageID string         `json:"storage_id"`
	Kind      AttachmentKind `json:"kind"`
	CreatedAt time.Time      `json:"created_at"`
}

// Reply is one entry in a ticket's conversation thread.
type Reply struct {
	ID          int64           `json:"id"`
	TicketID    int64           `json:"ticket_id"`
	Message     string          `json:"message"`
	SenderLabel string          `json:"sender_label"`
	Attachments []AttachmentRef `json:"attachments"`
	CreatedAt   time.Time       `json:"created_at"`
}

// HasContent reports whether the reply carries a message or attachments.
func (r Reply) HasContent() bool {
	return r.Message != "" || len(r.Attachments) > 0
}
