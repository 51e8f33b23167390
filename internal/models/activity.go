package models

import "time"

// ActivityStatus is the lifecycle state of a volunteering activity.
type ActivityStatus string

const (
	ActivityStatusOpen       ActivityStatus = "OPEN"
	ActivityStatusInProgress ActivityStatus = "IN_PROGRESS"
	ActivityStatusCompleted  ActivityStatus = "COMPLETED"
	ActivityStatusCancelled  ActivityStatus = "CANCELLED"
)

// CanTransitionTo enforces the monotonic activity lifecycle. Cancellation is
// allowed from any non-terminal state; completed and cancelled are terminal.
func (s ActivityStatus) CanTransitionTo(next ActivityStatus) bool {
	switch s {
	case ActivityStatusOpen:
		return next == ActivityStatusInProgress || next == ActivityStatusCancelled
	case ActivityStatusInProgress:
		return next == ActivityStatusCompleted || next == ActivityStatusCancelled
	default:
		return false
	}
}

// Activity is a volunteering opportunity created by a professor.
type Activity struct {
	ID                  string         `db:"id" json:"id"`
	Title               string         `db:"title" json:"title"`
	Description         string         `db:"description" json:"description"`
	Status              ActivityStatus `db:"status" json:"status"`
	CreatedBy           string         `db:"created_by" json:"created_by"`
	MaxParticipants     int            `db:"max_participants" json:"max_participants"`
	CurrentParticipants int            `db:"current_participants" json:"current_participants"`
	Location            string         `db:"location" json:"location"`
	Date                time.Time      `db:"date" json:"date"`
	StartTime           string         `db:"start_time" json:"start_time"`
	EndTime             string         `db:"end_time" json:"end_time"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}

// ActivityDetail joins in the owning professor's name for listings.
type ActivityDetail struct {
	Activity
	ProfessorName string `db:"professor_name" json:"professor_name"`
}

// ActivityFilter captures list criteria.
type ActivityFilter struct {
	Status    ActivityStatus
	CreatedBy string
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
