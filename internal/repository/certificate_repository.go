package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-connect-api/internal/models"
)

// CertificateRepository handles persistence of issued certificates.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository constructs the repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

// FindByCode returns a certificate by its public verification code.
func (r *CertificateRepository) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	const query = `SELECT id, user_id, activity_id, code, holder_name, activity_title, hours_total, issued_at, pdf_path FROM certificates WHERE code = $1 LIMIT 1`
	var certificate models.Certificate
	if err := r.db.GetContext(ctx, &certificate, query, code); err != nil {
		return nil, err
	}
	return &certificate, nil
}

// FindByID returns a certificate by identifier.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	const query = `SELECT id, user_id, activity_id, code, holder_name, activity_title, hours_total, issued_at, pdf_path FROM certificates WHERE id = $1`
	var certificate models.Certificate
	if err := r.db.GetContext(ctx, &certificate, query, id); err != nil {
		return nil, err
	}
	return &certificate, nil
}

// ListByUser returns a student's certificates, newest first.
func (r *CertificateRepository) ListByUser(ctx context.Context, userID string) ([]models.Certificate, error) {
	const query = `SELECT id, user_id, activity_id, code, holder_name, activity_title, hours_total, issued_at, pdf_path FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`
	var certificates []models.Certificate
	if err := r.db.SelectContext(ctx, &certificates, query, userID); err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certificates, nil
}

// ExistsForEnrollee reports whether a certificate was already issued for the
// (user, activity) pair.
func (r *CertificateRepository) ExistsForEnrollee(ctx context.Context, userID, activityID string) (bool, error) {
	const query = `SELECT 1 FROM certificates WHERE user_id = $1 AND activity_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, activityID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check certificate: %w", err)
	}
	return true, nil
}

// Create persists a newly issued certificate.
func (r *CertificateRepository) Create(ctx context.Context, certificate *models.Certificate) error {
	if certificate.ID == "" {
		certificate.ID = uuid.NewString()
	}
	if certificate.IssuedAt.IsZero() {
		certificate.IssuedAt = time.Now().UTC()
	}
	const query = `INSERT INTO certificates (id, user_id, activity_id, code, holder_name, activity_title, hours_total, issued_at, pdf_path)
        VALUES (:id, :user_id, :activity_id, :code, :holder_name, :activity_title, :hours_total, :issued_at, :pdf_path)`
	if _, err := r.db.NamedExecContext(ctx, query, certificate); err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}
