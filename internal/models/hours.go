package models

import (
	"time"

	"github.com/lib/pq"
)

// HoursStatus is the review state of a logged-hours claim.
type HoursStatus string

const (
	HoursStatusPending  HoursStatus = "PENDING"
	HoursStatusApproved HoursStatus = "APPROVED"
	HoursStatusRejected HoursStatus = "REJECTED"
)

// HoursRequest is a student's claim of hours worked against a confirmed
// enrollment. PENDING is left exactly once; APPROVED and REJECTED are
// terminal.
type HoursRequest struct {
	ID             string         `db:"id" json:"id"`
	EnrollmentID   string         `db:"enrollment_id" json:"enrollment_id"`
	UserID         string         `db:"user_id" json:"user_id"`
	ActivityID     string         `db:"activity_id" json:"activity_id"`
	Hours          float64        `db:"hours" json:"hours"`
	Date           time.Time      `db:"date" json:"date"`
	Description    string         `db:"description" json:"description"`
	EvidenceURLs   pq.StringArray `db:"evidence_urls" json:"evidence_urls"`
	Status         HoursStatus    `db:"status" json:"status"`
	ProfessorNotes *string        `db:"professor_notes" json:"professor_notes,omitempty"`
	ReviewedBy     *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// HoursRequestDetail joins in student and activity context for review lists.
type HoursRequestDetail struct {
	HoursRequest
	StudentName   string `db:"student_name" json:"student_name"`
	StudentEmail  string `db:"student_email" json:"student_email"`
	ActivityTitle string `db:"activity_title" json:"activity_title"`
}

// HoursFilter captures list criteria.
type HoursFilter struct {
	UserID     string
	ActivityID string
	Status     HoursStatus
	Page       int
	PageSize   int
}
