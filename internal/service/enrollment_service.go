package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsLive(ctx context.Context, userID, activityID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateReview(ctx context.Context, id string, status models.EnrollmentStatus, rejectionReason, professorNotes *string, reviewedAt time.Time) error
	SoftDelete(ctx context.Context, id string, deletedAt time.Time) error
}

type enrollmentActivityRepository interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	IncrementParticipants(ctx context.Context, id string) error
	DecrementParticipants(ctx context.Context, id string) error
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type workflowNotifier interface {
	Notify(ctx context.Context, userID, notificationType, title, body string)
	Email(to, subject, body string)
}

// ApplyRequest is a student's application to an activity.
type ApplyRequest struct {
	CustomMessage string `json:"custom_message" validate:"max=1000"`
}

// RejectEnrollmentRequest carries the professor's rejection decision. The
// waitlist flag routes the applicant to WAITLISTED instead of CANCELLED.
type RejectEnrollmentRequest struct {
	RejectionReason string  `json:"rejection_reason" validate:"required,min=1,max=1000"`
	ProfessorNotes  *string `json:"professor_notes" validate:"omitempty,max=1000"`
	Waitlist        bool    `json:"waitlist"`
}

// ConfirmEnrollmentRequest optionally attaches professor notes.
type ConfirmEnrollmentRequest struct {
	ProfessorNotes *string `json:"professor_notes" validate:"omitempty,max=1000"`
}

// EnrollmentService orchestrates the enrollment review workflow.
type EnrollmentService struct {
	repo       enrollmentRepository
	activities enrollmentActivityRepository
	users      userReader
	notifier   workflowNotifier
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, activities enrollmentActivityRepository, users userReader, notifier workflowNotifier, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, activities: activities, users: users, notifier: notifier, validator: validate, logger: logger}
}

// Apply registers a student's application. When the activity is already at
// capacity the application lands on the waitlist instead of PENDING.
func (s *EnrollmentService) Apply(ctx context.Context, claims *models.JWTClaims, activityID string, req ApplyRequest) (*models.Enrollment, error) {
	if err := requireRole(claims, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if activity.Status != models.ActivityStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "activity is not open for applications")
	}

	exists, err := s.repo.ExistsLive(ctx, claims.UserID, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate application")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already applied to this activity")
	}

	status := models.EnrollmentStatusPending
	if activity.CurrentParticipants >= activity.MaxParticipants {
		status = models.EnrollmentStatusWaitlisted
	}

	enrollment := &models.Enrollment{
		UserID:           claims.UserID,
		ActivityID:       activityID,
		Status:           status,
		AttendanceStatus: models.AttendanceStatusUnknown,
	}
	if req.CustomMessage != "" {
		enrollment.CustomMessage = &req.CustomMessage
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.notifier.Notify(ctx, activity.CreatedBy, models.NotificationTypeEnrollment,
		"New application received",
		fmt.Sprintf("%s applied to %q", claims.FullName, activity.Title))

	return enrollment, nil
}

// ListForActivity returns an activity's enrollments for its owning professor.
func (s *EnrollmentService) ListForActivity(ctx context.Context, claims *models.JWTClaims, activityID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := authorizeOwner(claims, activity.CreatedBy); err != nil {
		return nil, nil, err
	}

	filter.ActivityID = activityID
	return s.list(ctx, filter)
}

// ListMine returns the calling student's enrollments.
func (s *EnrollmentService) ListMine(ctx context.Context, claims *models.JWTClaims, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.UserID = claims.UserID
	return s.list(ctx, filter)
}

func (s *EnrollmentService) list(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return enrollments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Confirm moves a pending or waitlisted application to CONFIRMED, claiming a
// participant slot.
func (s *EnrollmentService) Confirm(ctx context.Context, claims *models.JWTClaims, activityID, enrollmentID string, req ConfirmEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid confirmation payload")
	}

	enrollment, activity, err := s.loadForReview(ctx, claims, activityID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusPending && enrollment.Status != models.EnrollmentStatusWaitlisted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment has already been reviewed")
	}

	if err := s.activities.IncrementParticipants(ctx, activityID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrActivityFull, "activity is at capacity")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to claim participant slot")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateReview(ctx, enrollmentID, models.EnrollmentStatusConfirmed, nil, req.ProfessorNotes, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm enrollment")
	}

	s.notifyApplicant(ctx, enrollment.UserID, activity.Title, "Application confirmed",
		fmt.Sprintf("Your application to %q was confirmed.", activity.Title))

	return s.reload(ctx, enrollmentID)
}

// Reject moves a pending or waitlisted application to CANCELLED, or to
// WAITLISTED when the waitlist flag is set. A non-empty rejection reason is
// mandatory; the validator rejects the request before any state change.
func (s *EnrollmentService) Reject(ctx context.Context, claims *models.JWTClaims, activityID, enrollmentID string, req RejectEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}
	if strings.TrimSpace(req.RejectionReason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}

	enrollment, activity, err := s.loadForReview(ctx, claims, activityID, enrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != models.EnrollmentStatusPending && enrollment.Status != models.EnrollmentStatusWaitlisted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment has already been reviewed")
	}

	target := models.EnrollmentStatusCancelled
	if req.Waitlist {
		target = models.EnrollmentStatusWaitlisted
	}
	if enrollment.Status == target {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment is already in the requested state")
	}

	reason := req.RejectionReason
	now := time.Now().UTC()
	if err := s.repo.UpdateReview(ctx, enrollmentID, target, &reason, req.ProfessorNotes, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject enrollment")
	}

	subject := "Application update"
	body := fmt.Sprintf("Your application to %q was not accepted. Reason: %s", activity.Title, reason)
	if req.Waitlist {
		body = fmt.Sprintf("Your application to %q was moved to the waitlist. Reason: %s", activity.Title, reason)
	}
	s.notifyApplicant(ctx, enrollment.UserID, activity.Title, subject, body)

	return s.reload(ctx, enrollmentID)
}

// Withdraw soft deletes the calling student's own enrollment. A confirmed
// enrollment releases its participant slot.
func (s *EnrollmentService) Withdraw(ctx context.Context, claims *models.JWTClaims, enrollmentID string) error {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if err := authorizeOwner(claims, enrollment.UserID); err != nil {
		return err
	}

	if err := s.repo.SoftDelete(ctx, enrollmentID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw enrollment")
	}

	if enrollment.Status == models.EnrollmentStatusConfirmed {
		if err := s.activities.DecrementParticipants(ctx, enrollment.ActivityID); err != nil {
			s.logger.Warn("failed to release participant slot", zap.String("activity_id", enrollment.ActivityID), zap.Error(err))
		}
	}
	return nil
}

func (s *EnrollmentService) loadForReview(ctx context.Context, claims *models.JWTClaims, activityID, enrollmentID string) (*models.Enrollment, *models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := authorizeOwner(claims, activity.CreatedBy); err != nil {
		return nil, nil, err
	}

	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.ActivityID != activityID {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found for activity")
	}
	return enrollment, activity, nil
}

func (s *EnrollmentService) reload(ctx context.Context, enrollmentID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload enrollment")
	}
	return enrollment, nil
}

// notifyApplicant records an in-app notification and queues an email when the
// applicant's address can be resolved. Neither failure surfaces to the
// caller.
func (s *EnrollmentService) notifyApplicant(ctx context.Context, userID, activityTitle, subject, body string) {
	s.notifier.Notify(ctx, userID, models.NotificationTypeEnrollment, subject, body)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to resolve applicant email", zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.notifier.Email(user.Email, subject, body)
}
