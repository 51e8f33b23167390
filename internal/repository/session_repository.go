package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// SessionRepository handles persistence of activity sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// ListByActivity returns sessions for an activity ordered by schedule.
func (r *SessionRepository) ListByActivity(ctx context.Context, activityID string) ([]models.Session, error) {
	const query = `SELECT id, activity_id, scheduled_at, status, qr_code_data, qr_expires_at, created_at, updated_at FROM sessions WHERE activity_id = $1 ORDER BY scheduled_at ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, activityID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT id, activity_id, scheduled_at, status, qr_code_data, qr_expires_at, created_at, updated_at FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// Create persists a new scheduled session.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	if session.Status == "" {
		session.Status = models.SessionStatusScheduled
	}
	const query = `INSERT INTO sessions (id, activity_id, scheduled_at, status, qr_code_data, qr_expires_at, created_at, updated_at)
        VALUES (:id, :activity_id, :scheduled_at, :status, :qr_code_data, :qr_expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SetQRCode stores a freshly rotated check-in payload and flips the session
// to IN_PROGRESS. Regeneration replaces any previous payload.
func (r *SessionRepository) SetQRCode(ctx context.Context, id, qrData string, expiresAt time.Time) error {
	const query = `UPDATE sessions SET qr_code_data = $2, qr_expires_at = $3, status = $4, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, qrData, expiresAt, models.SessionStatusInProgress); err != nil {
		return fmt.Errorf("set session qr code: %w", err)
	}
	return nil
}

// UpdateStatus transitions the session lifecycle state.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	const query = `UPDATE sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}
