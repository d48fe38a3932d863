package models

import "time"

// NotificationType classifies an in-app notification.
type NotificationType string

const (
	NotificationStatusUpdate  NotificationType = "status_update"
	NotificationQuoteReceived NotificationType = "quote_received"
	NotificationProofUploaded NotificationType = "proof_uploaded"
)

// Notification is an in-app message to a user about a request event.
type Notification struct {
	ID        int              `json:"id"`
	UserID    string           `json:"user_id"`
	RequestID *int             `json:"request_id,omitempty"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationEvent describes a notification to dispatch. Exactly one of UserID
// or Role addresses the recipients; Role fans out to every user holding it.
type NotificationEvent struct {
	UserID    string
	Role      Role
	RequestID *int
	Type      NotificationType
	Subject   string
	Message   string
	SendEmail bool
}
