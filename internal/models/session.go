package models

import "time"

// SessionStatus is the lifecycle state of a scheduled activity session.
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// Session is a scheduled meeting instance of an Activity holding a rotating
// QR check-in payload valid for a short window.
type Session struct {
	ID          string        `db:"id" json:"id"`
	ActivityID  string        `db:"activity_id" json:"activity_id"`
	ScheduledAt time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Status      SessionStatus `db:"status" json:"status"`
	QRCodeData  *string       `db:"qr_code_data" json:"qr_code_data,omitempty"`
	QRExpiresAt *time.Time    `db:"qr_expires_at" json:"qr_expires_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// QRPayload is the decoded content of a session check-in code. It is
// base64-encoded JSON, not signed or encrypted.
type QRPayload struct {
	SessionID   string `json:"session_id"`
	ActivityID  string `json:"activity_id"`
	Timestamp   int64  `json:"timestamp"`
	RandomToken string `json:"random_token"`
}
