package models

import "time"

// EnrollmentStatus is the review state of a student's application.
type EnrollmentStatus string

const (
	EnrollmentStatusPending    EnrollmentStatus = "PENDING"
	EnrollmentStatusConfirmed  EnrollmentStatus = "CONFIRMED"
	EnrollmentStatusCancelled  EnrollmentStatus = "CANCELLED"
	EnrollmentStatusWaitlisted EnrollmentStatus = "WAITLISTED"
)

// AttendanceStatus records session attendance for a confirmed enrollment.
type AttendanceStatus string

const (
	AttendanceStatusUnknown AttendanceStatus = "UNKNOWN"
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
)

// Enrollment represents a student's application to an Activity.
type Enrollment struct {
	ID               string           `db:"id" json:"id"`
	UserID           string           `db:"user_id" json:"user_id"`
	ActivityID       string           `db:"activity_id" json:"activity_id"`
	Status           EnrollmentStatus `db:"status" json:"status"`
	RejectionReason  *string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CustomMessage    *string          `db:"custom_message" json:"custom_message,omitempty"`
	ProfessorNotes   *string          `db:"professor_notes" json:"professor_notes,omitempty"`
	ReviewedAt       *time.Time       `db:"reviewed_at" json:"reviewed_at,omitempty"`
	AttendanceStatus AttendanceStatus `db:"attendance_status" json:"attendance_status"`
	DeletedAt        *time.Time       `db:"deleted_at" json:"-"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail joins in student and activity context for listings.
type EnrollmentDetail struct {
	Enrollment
	StudentName   string `db:"student_name" json:"student_name"`
	StudentEmail  string `db:"student_email" json:"student_email"`
	ActivityTitle string `db:"activity_title" json:"activity_title"`
}

// EnrollmentFilter captures list criteria.
type EnrollmentFilter struct {
	UserID     string
	ActivityID string
	Status     EnrollmentStatus
	Page       int
	PageSize   int
}
