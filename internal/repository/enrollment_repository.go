package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `e.id, e.user_id, e.activity_id, e.status, e.rejection_reason, e.custom_message, e.professor_notes, e.reviewed_at, e.attendance_status, e.deleted_at, e.created_at, e.updated_at`

// List returns enrollments filtered by the provided criteria. Soft-deleted
// rows are always excluded.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN users u ON u.id = e.user_id
LEFT JOIN activities a ON a.id = e.activity_id`
	conditions := []string{"e.deleted_at IS NULL"}
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("e.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ActivityID != "" {
		conditions = append(conditions, fmt.Sprintf("e.activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, u.full_name AS student_name, u.email AS student_email, a.title AS activity_title
        %s ORDER BY e.created_at DESC LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID, excluding soft-deleted rows.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, activity_id, status, rejection_reason, custom_message, professor_notes, reviewed_at, attendance_status, deleted_at, created_at, updated_at FROM enrollments WHERE id = $1 AND deleted_at IS NULL`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsLive checks whether a non-deleted enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsLive(ctx context.Context, userID, activityID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND activity_id = $2 AND deleted_at IS NULL LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, activityID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check live enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	if enrollment.AttendanceStatus == "" {
		enrollment.AttendanceStatus = models.AttendanceStatusUnknown
	}
	const query = `INSERT INTO enrollments (id, user_id, activity_id, status, rejection_reason, custom_message, professor_notes, reviewed_at, attendance_status, deleted_at, created_at, updated_at)
        VALUES (:id, :user_id, :activity_id, :status, :rejection_reason, :custom_message, :professor_notes, :reviewed_at, :attendance_status, :deleted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateReview records a professor's review decision.
func (r *EnrollmentRepository) UpdateReview(ctx context.Context, id string, status models.EnrollmentStatus, rejectionReason, professorNotes *string, reviewedAt time.Time) error {
	const query = `UPDATE enrollments SET status = $2, rejection_reason = $3, professor_notes = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, rejectionReason, professorNotes, reviewedAt); err != nil {
		return fmt.Errorf("update enrollment review: %w", err)
	}
	return nil
}

// UpdateAttendance stamps the attendance outcome for an enrollment.
func (r *EnrollmentRepository) UpdateAttendance(ctx context.Context, id string, status models.AttendanceStatus) error {
	const query = `UPDATE enrollments SET attendance_status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment attendance: %w", err)
	}
	return nil
}

// SoftDelete marks the enrollment withdrawn without removing the row.
func (r *EnrollmentRepository) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	const query = `UPDATE enrollments SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, deletedAt); err != nil {
		return fmt.Errorf("soft delete enrollment: %w", err)
	}
	return nil
}

// FindConfirmedByActivity returns the activity's confirmed enrollments with
// student context, used for certificate issuance.
func (r *EnrollmentRepository) FindConfirmedByActivity(ctx context.Context, activityID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, u.full_name AS student_name, u.email AS student_email, a.title AS activity_title
        FROM enrollments e
        LEFT JOIN users u ON u.id = e.user_id
        LEFT JOIN activities a ON a.id = e.activity_id
        WHERE e.activity_id = $1 AND e.status = $2 AND e.deleted_at IS NULL`, enrollmentColumns)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, activityID, models.EnrollmentStatusConfirmed); err != nil {
		return nil, fmt.Errorf("find confirmed enrollments: %w", err)
	}
	return enrollments, nil
}

// FindLiveByUserAndActivity returns the caller's live enrollment for an
// activity, used by QR check-in.
func (r *EnrollmentRepository) FindLiveByUserAndActivity(ctx context.Context, userID, activityID string) (*models.Enrollment, error) {
	const query = `SELECT id, user_id, activity_id, status, rejection_reason, custom_message, professor_notes, reviewed_at, attendance_status, deleted_at, created_at, updated_at FROM enrollments WHERE user_id = $1 AND activity_id = $2 AND deleted_at IS NULL LIMIT 1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, userID, activityID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}
