package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type hoursRepository interface {
	List(ctx context.Context, filter models.HoursFilter) ([]models.HoursRequestDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.HoursRequest, error)
	Create(ctx context.Context, request *models.HoursRequest) error
	UpdateReview(ctx context.Context, id string, status models.HoursStatus, professorNotes *string, reviewedBy string, reviewedAt time.Time) (bool, error)
}

type hoursEnrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type hoursActivityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

// LogHoursRequest is a student's claim of hours worked.
type LogHoursRequest struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required,uuid4"`
	Hours        float64  `json:"hours" validate:"required,gte=0.5,lte=24"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	Description  string   `json:"description" validate:"required,min=20,max=1000"`
	EvidenceURLs []string `json:"evidence_urls" validate:"omitempty,max=10,dive,url"`
}

// ReviewHoursRequest carries the professor's decision on a pending claim.
type ReviewHoursRequest struct {
	ProfessorNotes *string `json:"professor_notes" validate:"omitempty,max=1000"`
}

// RejectHoursRequest requires an explanation for the student.
type RejectHoursRequest struct {
	ProfessorNotes string `json:"professor_notes" validate:"required,min=1,max=1000"`
}

// RequestInfoRequest asks the student for clarification without changing the
// claim's state. It goes out by email only.
type RequestInfoRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

// HoursService manages logged-hours claims and their review.
type HoursService struct {
	repo        hoursRepository
	enrollments hoursEnrollmentReader
	activities  hoursActivityReader
	users       userReader
	notifier    workflowNotifier
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewHoursService constructs HoursService.
func NewHoursService(repo hoursRepository, enrollments hoursEnrollmentReader, activities hoursActivityReader, users userReader, notifier workflowNotifier, validate *validator.Validate, logger *zap.Logger) *HoursService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HoursService{repo: repo, enrollments: enrollments, activities: activities, users: users, notifier: notifier, validator: validate, logger: logger}
}

// Log creates a PENDING hours claim against the caller's own confirmed
// enrollment.
func (s *HoursService) Log(ctx context.Context, claims *models.JWTClaims, req LogHoursRequest) (*models.HoursRequest, error) {
	if err := requireRole(claims, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hours payload")
	}

	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot log hours on another student's enrollment")
	}
	if enrollment.Status != models.EnrollmentStatusConfirmed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "hours can only be logged on a confirmed enrollment")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	if date.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date cannot be in the future")
	}

	request := &models.HoursRequest{
		EnrollmentID: enrollment.ID,
		UserID:       claims.UserID,
		ActivityID:   enrollment.ActivityID,
		Hours:        req.Hours,
		Date:         date,
		Description:  req.Description,
		EvidenceURLs: pq.StringArray(req.EvidenceURLs),
		Status:       models.HoursStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create hours request")
	}

	if activity, err := s.activities.FindByID(ctx, enrollment.ActivityID); err == nil {
		s.notifier.Notify(ctx, activity.CreatedBy, models.NotificationTypeHours,
			"Hours submitted for review",
			fmt.Sprintf("%s logged %.1f hours on %q", claims.FullName, req.Hours, activity.Title))
	}

	return request, nil
}

// ListMine returns the calling student's hours claims.
func (s *HoursService) ListMine(ctx context.Context, claims *models.JWTClaims, filter models.HoursFilter) ([]models.HoursRequestDetail, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter.UserID = claims.UserID
	return s.list(ctx, filter)
}

// ListForActivity returns an activity's hours claims for its owning
// professor.
func (s *HoursService) ListForActivity(ctx context.Context, claims *models.JWTClaims, activityID string, filter models.HoursFilter) ([]models.HoursRequestDetail, *models.Pagination, error) {
	if _, err := s.ownedActivity(ctx, claims, activityID); err != nil {
		return nil, nil, err
	}
	filter.ActivityID = activityID
	return s.list(ctx, filter)
}

func (s *HoursService) list(ctx context.Context, filter models.HoursFilter) ([]models.HoursRequestDetail, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hours requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return requests, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Approve marks a pending claim APPROVED. A claim that has already left
// PENDING cannot be reviewed again.
func (s *HoursService) Approve(ctx context.Context, claims *models.JWTClaims, requestID string, req ReviewHoursRequest) (*models.HoursRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	return s.review(ctx, claims, requestID, models.HoursStatusApproved, req.ProfessorNotes,
		"Hours approved", "Your logged hours on %q were approved.")
}

// Reject marks a pending claim REJECTED with a mandatory explanation.
func (s *HoursService) Reject(ctx context.Context, claims *models.JWTClaims, requestID string, req RejectHoursRequest) (*models.HoursRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "professor notes are required")
	}
	if strings.TrimSpace(req.ProfessorNotes) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "professor notes are required")
	}
	notes := req.ProfessorNotes
	return s.review(ctx, claims, requestID, models.HoursStatusRejected, &notes,
		"Hours rejected", "Your logged hours on %q were rejected.")
}

func (s *HoursService) review(ctx context.Context, claims *models.JWTClaims, requestID string, status models.HoursStatus, notes *string, subject, bodyFormat string) (*models.HoursRequest, error) {
	request, activity, err := s.loadForReview(ctx, claims, requestID)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateReview(ctx, requestID, status, notes, claims.UserID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hours review")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "hours request has already been reviewed")
	}

	body := fmt.Sprintf(bodyFormat, activity.Title)
	if notes != nil && *notes != "" {
		body = fmt.Sprintf("%s Notes: %s", body, *notes)
	}
	s.notifier.Notify(ctx, request.UserID, models.NotificationTypeHours, subject, body)
	if user, err := s.users.FindByID(ctx, request.UserID); err == nil {
		s.notifier.Email(user.Email, subject, body)
	} else {
		s.logger.Warn("failed to resolve student email", zap.String("user_id", request.UserID), zap.Error(err))
	}

	reloaded, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload hours request")
	}
	return reloaded, nil
}

// RequestInfo emails the student asking for clarification. The claim stays
// PENDING; no record changes.
func (s *HoursService) RequestInfo(ctx context.Context, claims *models.JWTClaims, requestID string, req RequestInfoRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "message is required")
	}

	request, activity, err := s.loadForReview(ctx, claims, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.HoursStatusPending {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "hours request has already been reviewed")
	}

	user, err := s.users.FindByID(ctx, request.UserID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student email")
	}
	s.notifier.Email(user.Email, "More information requested",
		fmt.Sprintf("Regarding your logged hours on %q: %s", activity.Title, req.Message))
	return nil
}

func (s *HoursService) loadForReview(ctx context.Context, claims *models.JWTClaims, requestID string) (*models.HoursRequest, *models.Activity, error) {
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "hours request not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hours request")
	}
	activity, err := s.ownedActivity(ctx, claims, request.ActivityID)
	if err != nil {
		return nil, nil, err
	}
	return request, activity, nil
}

func (s *HoursService) ownedActivity(ctx context.Context, claims *models.JWTClaims, activityID string) (*models.Activity, error) {
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
