package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type activityRepository interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	FindDetailByID(ctx context.Context, id string) (*models.ActivityDetail, error)
	Create(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	UpdateStatus(ctx context.Context, id string, status models.ActivityStatus) error
}

// CreateActivityRequest describes activity creation.
type CreateActivityRequest struct {
	Title           string `json:"title" validate:"required,min=3,max=200"`
	Description     string `json:"description" validate:"required,min=10,max=5000"`
	MaxParticipants int    `json:"max_participants" validate:"required,min=1,max=1000"`
	Location        string `json:"location" validate:"required,max=300"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
}

// UpdateActivityRequest describes activity edits.
type UpdateActivityRequest struct {
	Title           string `json:"title" validate:"required,min=3,max=200"`
	Description     string `json:"description" validate:"required,min=10,max=5000"`
	MaxParticipants int    `json:"max_participants" validate:"required,min=1,max=1000"`
	Location        string `json:"location" validate:"required,max=300"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" validate:"required"`
	EndTime         string `json:"end_time" validate:"required"`
}

// UpdateActivityStatusRequest transitions the lifecycle.
type UpdateActivityStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ActivityService orchestrates the activity lifecycle.
type ActivityService struct {
	repo      activityRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs ActivityService.
func NewActivityService(repo activityRepository, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, validator: validate, logger: logger}
}

// List returns activities with pagination metadata.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityDetail, *models.Pagination, error) {
	activities, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return activities, pagination, nil
}

// Get returns one activity with professor context.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.ActivityDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return detail, nil
}

// Create registers a new OPEN activity owned by the calling professor.
func (s *ActivityService) Create(ctx context.Context, claims *models.JWTClaims, req CreateActivityRequest) (*models.ActivityDetail, error) {
	if err := requireRole(claims, models.RoleProfessor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid activity date")
	}

	activity := &models.Activity{
		Title:           req.Title,
		Description:     req.Description,
		Status:          models.ActivityStatusOpen,
		CreatedBy:       claims.UserID,
		MaxParticipants: req.MaxParticipants,
		Location:        req.Location,
		Date:            date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	}
	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create activity")
	}
	return s.Get(ctx, activity.ID)
}

// Update edits an activity owned by the caller.
func (s *ActivityService) Update(ctx context.Context, claims *models.JWTClaims, id string, req UpdateActivityRequest) (*models.ActivityDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}

	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := authorizeOwner(claims, activity.CreatedBy); err != nil {
		return nil, err
	}
	if activity.Status == models.ActivityStatusCompleted || activity.Status == models.ActivityStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "activity can no longer be edited")
	}
	if req.MaxParticipants < activity.CurrentParticipants {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max participants below current participant count")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid activity date")
	}

	activity.Title = req.Title
	activity.Description = req.Description
	activity.MaxParticipants = req.MaxParticipants
	activity.Location = req.Location
	activity.Date = date
	activity.StartTime = req.StartTime
	activity.EndTime = req.EndTime

	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity")
	}
	return s.Get(ctx, id)
}

// UpdateStatus advances the activity lifecycle for the owning professor.
func (s *ActivityService) UpdateStatus(ctx context.Context, claims *models.JWTClaims, id string, req UpdateActivityStatusRequest) (*models.ActivityDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	if err := authorizeOwner(claims, activity.CreatedBy); err != nil {
		return nil, err
	}

	next := models.ActivityStatus(req.Status)
	if !activity.Status.CanTransitionTo(next) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "activity status cannot transition to requested value")
	}

	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update activity status")
	}
	return s.Get(ctx, id)
}
