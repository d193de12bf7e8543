package models

import (
	"strings"

	"github.com/anonto42/nano-midea/socialape/internal/store"
)

// Notification types
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
)

// Notification document fields
const (
	FieldRecipient = "recipient"
	FieldSender    = "sender"
	FieldType      = "type"
	FieldRead      = "read"
	FieldDismissed = "dismissed"
)

// Notification is created and removed only by the fan-out triggers. Users may mark it
// read or dismissed, which hides it from listings without removing it.
// Its ID is the ID of the like or comment that produced it.
type Notification struct {
	ID        string `json:"notificationId"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	Type      string `json:"type"`
	PostID    string `json:"postId"`
	CreatedAt string `json:"createdAt"`
	Read      bool   `json:"read"`
	Dismissed bool   `json:"dismissed"`
}

func (n *Notification) Document() store.Document {
	return store.Document{
		FieldRecipient: n.Recipient,
		FieldSender:    n.Sender,
		FieldType:      n.Type,
		FieldPostID:    n.PostID,
		FieldCreatedAt: n.CreatedAt,
		FieldRead:      n.Read,
		FieldDismissed: n.Dismissed,
	}
}

func NotificationFromDocument(id string, d store.Document) *Notification {
	return &Notification{
		ID:        id,
		Recipient: d.String(FieldRecipient),
		Sender:    d.String(FieldSender),
		Type:      d.String(FieldType),
		PostID:    d.String(FieldPostID),
		CreatedAt: d.String(FieldCreatedAt),
		Read:      d.Bool(FieldRead),
		Dismissed: d.Bool(FieldDismissed),
	}
}

// NotificationCursor is the paging position just after n, as "createdAt~id".
func NotificationCursor(n Notification) string {
	return n.CreatedAt + "~" + n.ID
}

// ParseNotificationCursor splits a cursor. A bare createdAt yields an empty id.
func ParseNotificationCursor(cursor string) (createdAt, id string) {
	createdAt, id, _ = strings.Cut(cursor, "~")
	return createdAt, id
}

// NotificationIDsRequest is the body of the mark-read and dismiss endpoints
type NotificationIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}
