package models

import "time"

// Notification types emitted by the workflows.
const (
	NotificationTypeEnrollment  = "ENROLLMENT"
	NotificationTypeHours       = "HOURS"
	NotificationTypeCertificate = "CERTIFICATE"
	NotificationTypeGeneral     = "GENERAL"
)

// Notification is a per-user message record.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Type      string     `db:"type" json:"type"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// NotificationFilter captures list criteria.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
