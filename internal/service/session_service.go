package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type sessionRepository interface {
	ListByActivity(ctx context.Context, activityID string) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	SetQRCode(ctx context.Context, id, qrData string, expiresAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
}

type sessionEnrollmentRepository interface {
	FindLiveByUserAndActivity(ctx context.Context, userID, activityID string) (*models.Enrollment, error)
	UpdateAttendance(ctx context.Context, id string, status models.AttendanceStatus) error
}

// ScheduleSessionRequest creates a session for an activity.
type ScheduleSessionRequest struct {
	ScheduledAt string `json:"scheduled_at" validate:"required"`
}

// CheckinRequest carries the scanned QR code content.
type CheckinRequest struct {
	QRData string `json:"qr_data" validate:"required"`
}

// SessionService manages activity sessions and QR-based attendance.
type SessionService struct {
	repo        sessionRepository
	enrollments sessionEnrollmentRepository
	activities  hoursActivityReader
	qrWindow    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSessionService constructs SessionService. qrWindow bounds how long a
// generated code stays scannable.
func NewSessionService(repo sessionRepository, enrollments sessionEnrollmentRepository, activities hoursActivityReader, qrWindow time.Duration, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if qrWindow <= 0 {
		qrWindow = 30 * time.Second
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, enrollments: enrollments, activities: activities, qrWindow: qrWindow, validator: validate, logger: logger}
}

// ListForActivity returns an activity's sessions for its owning professor.
func (s *SessionService) ListForActivity(ctx context.Context, claims *models.JWTClaims, activityID string) ([]models.Session, error) {
	if _, err := s.ownedActivity(ctx, claims, activityID); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListByActivity(ctx, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// Schedule creates a SCHEDULED session on an activity the caller owns.
func (s *SessionService) Schedule(ctx context.Context, claims *models.JWTClaims, activityID string, req ScheduleSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_at must be RFC 3339")
	}

	activity, err := s.ownedActivity(ctx, claims, activityID)
	if err != nil {
		return nil, err
	}
	if activity.Status == models.ActivityStatusCompleted || activity.Status == models.ActivityStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "activity no longer accepts sessions")
	}

	session := &models.Session{
		ActivityID:  activityID,
		ScheduledAt: scheduledAt.UTC(),
		Status:      models.SessionStatusScheduled,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// GenerateQR produces a fresh check-in code for a session. The code is
// base64-encoded JSON and expires after the configured window. Generating a
// code on a SCHEDULED session moves it to IN_PROGRESS.
func (s *SessionService) GenerateQR(ctx context.Context, claims *models.JWTClaims, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if _, err := s.ownedActivity(ctx, claims, session.ActivityID); err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "session has already completed")
	}

	token := make([]byte, 16)
	if _, err := rand.Read(token); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate check-in token")
	}
	now := time.Now().UTC()
	payload := models.QRPayload{
		SessionID:   session.ID,
		ActivityID:  session.ActivityID,
		Timestamp:   now.Unix(),
		RandomToken: hex.EncodeToString(token),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode check-in payload")
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	expiresAt := now.Add(s.qrWindow)

	if err := s.repo.SetQRCode(ctx, session.ID, encoded, expiresAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store check-in code")
	}
	return s.repo.FindByID(ctx, session.ID)
}

// Complete marks a session COMPLETED and clears its check-in window.
func (s *SessionService) Complete(ctx context.Context, claims *models.JWTClaims, sessionID string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if _, err := s.ownedActivity(ctx, claims, session.ActivityID); err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "session has already completed")
	}

	if err := s.repo.UpdateStatus(ctx, session.ID, models.SessionStatusCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete session")
	}
	return s.repo.FindByID(ctx, session.ID)
}

// Checkin validates a scanned code against the session's current one and,
// within the validity window, marks the calling student PRESENT on their
// confirmed enrollment.
func (s *SessionService) Checkin(ctx context.Context, claims *models.JWTClaims, sessionID string, req CheckinRequest) (*models.Enrollment, error) {
	if err := requireRole(claims, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "qr_data is required")
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status != models.SessionStatusInProgress || session.QRCodeData == nil || session.QRExpiresAt == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session is not accepting check-ins")
	}
	if req.QRData != *session.QRCodeData {
		return nil, appErrors.Clone(appErrors.ErrValidation, "check-in code does not match")
	}
	if time.Now().UTC().After(*session.QRExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "check-in code has expired")
	}

	raw, err := base64.StdEncoding.DecodeString(req.QRData)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "malformed check-in code")
	}
	var payload models.QRPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "malformed check-in code")
	}
	if payload.SessionID != session.ID || payload.ActivityID != session.ActivityID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "check-in code does not match this session")
	}

	enrollment, err := s.enrollments.FindLiveByUserAndActivity(ctx, claims.UserID, session.ActivityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no enrollment for this activity")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment is not confirmed")
	}

	if err := s.enrollments.UpdateAttendance(ctx, enrollment.ID, models.AttendanceStatusPresent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	enrollment.AttendanceStatus = models.AttendanceStatusPresent
	return enrollment, nil
}

func (s *SessionService) ownedActivity(ctx context.Context, claims *models.JWTClaims, activityID string) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := authorizeOwner(claims, activity.CreatedBy); err != nil {
		return nil, err
	}
	return activity, nil
}
