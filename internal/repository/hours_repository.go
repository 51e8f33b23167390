package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// HoursRepository handles persistence of logged-hours requests.
type HoursRepository struct {
	db *sqlx.DB
}

// NewHoursRepository constructs the repository.
func NewHoursRepository(db *sqlx.DB) *HoursRepository {
	return &HoursRepository{db: db}
}

const hoursColumns = `h.id, h.enrollment_id, h.user_id, h.activity_id, h.hours, h.date, h.description, h.evidence_urls, h.status, h.professor_notes, h.reviewed_by, h.reviewed_at, h.created_at`

// List returns hours requests filtered by the provided criteria.
func (r *HoursRepository) List(ctx context.Context, filter models.HoursFilter) ([]models.HoursRequestDetail, int, error) {
	base := `FROM hours_requests h
LEFT JOIN users u ON u.id = h.user_id
LEFT JOIN activities a ON a.id = h.activity_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("h.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ActivityID != "" {
		conditions = append(conditions, fmt.Sprintf("h.activity_id = $%d", len(args)+1))
		args = append(args, filter.ActivityID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("h.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

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
        %s ORDER BY h.created_at DESC LIMIT %d OFFSET %d`, hoursColumns, base+clause, size, offset)

	var requests []models.HoursRequestDetail
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list hours requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count hours requests: %w", err)
	}
	return requests, total, nil
}

// FindByID returns an hours request by its ID.
func (r *HoursRepository) FindByID(ctx context.Context, id string) (*models.HoursRequest, error) {
	const query = `SELECT id, enrollment_id, user_id, activity_id, hours, date, description, evidence_urls, status, professor_notes, reviewed_by, reviewed_at, created_at FROM hours_requests WHERE id = $1`
	var request models.HoursRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// Create persists a new hours request in PENDING state.
func (r *HoursRepository) Create(ctx context.Context, request *models.HoursRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	if request.Status == "" {
		request.Status = models.HoursStatusPending
	}
	const query = `INSERT INTO hours_requests (id, enrollment_id, user_id, activity_id, hours, date, description, evidence_urls, status, professor_notes, reviewed_by, reviewed_at, created_at)
        VALUES (:id, :enrollment_id, :user_id, :activity_id, :hours, :date, :description, :evidence_urls, :status, :professor_notes, :reviewed_by, :reviewed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create hours request: %w", err)
	}
	return nil
}

// UpdateReview records the professor's decision. The WHERE guard on PENDING
// makes the transition single-shot at the database level.
func (r *HoursRepository) UpdateReview(ctx context.Context, id string, status models.HoursStatus, professorNotes *string, reviewedBy string, reviewedAt time.Time) (bool, error) {
	const query = `UPDATE hours_requests SET status = $2, professor_notes = $3, reviewed_by = $4, reviewed_at = $5 WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, id, status, professorNotes, reviewedBy, reviewedAt, models.HoursStatusPending)
	if err != nil {
		return false, fmt.Errorf("update hours review: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update hours review: %w", err)
	}
	return affected > 0, nil
}

// SumApprovedByUserAndActivity totals approved hours for certificate issuance.
func (r *HoursRepository) SumApprovedByUserAndActivity(ctx context.Context, userID, activityID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(hours), 0) FROM hours_requests WHERE user_id = $1 AND activity_id = $2 AND status = $3`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, userID, activityID, models.HoursStatusApproved); err != nil {
		return 0, fmt.Errorf("sum approved hours: %w", err)
	}
	return total, nil
}
