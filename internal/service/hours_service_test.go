package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type mockHoursRepo struct {
	request         *models.HoursRequest
	findByIDErr     error
	created         *models.HoursRequest
	createErr       error
	updateReturns   bool
	updateErr       error
	reviewedStatus  models.HoursStatus
	reviewCallCount int
}

func (m *mockHoursRepo) List(ctx context.Context, filter models.HoursFilter) ([]models.HoursRequestDetail, int, error) {
	return nil, 0, nil
}

func (m *mockHoursRepo) FindByID(ctx context.Context, id string) (*models.HoursRequest, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.request == nil {
		return nil, sql.ErrNoRows
	}
	return m.request, nil
}

func (m *mockHoursRepo) Create(ctx context.Context, request *models.HoursRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	request.ID = "hrs-new"
	m.created = request
	return nil
}

func (m *mockHoursRepo) UpdateReview(ctx context.Context, id string, status models.HoursStatus, professorNotes *string, reviewedBy string, reviewedAt time.Time) (bool, error) {
	m.reviewCallCount++
	if m.updateErr != nil {
		return false, m.updateErr
	}
	if !m.updateReturns {
		return false, nil
	}
	m.reviewedStatus = status
	if m.request != nil {
		m.request.Status = status
		m.request.ProfessorNotes = professorNotes
		m.request.ReviewedBy = &reviewedBy
		m.request.ReviewedAt = &reviewedAt
	}
	return true, nil
}

type mockEnrollmentReader struct {
	enrollment *models.Enrollment
	err        error
}

func (m *mockEnrollmentReader) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func confirmedEnrollment() *models.Enrollment {
	return &models.Enrollment{ID: "7f3b1c9e-4a5d-4f6e-8a9b-0c1d2e3f4a5b", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusConfirmed}
}

func pendingHours() *models.HoursRequest {
	return &models.HoursRequest{ID: "hrs-1", EnrollmentID: "enr-1", UserID: "student-1", ActivityID: "act-1", Hours: 4, Status: models.HoursStatusPending}
}

func validLogRequest() LogHoursRequest {
	return LogHoursRequest{
		EnrollmentID: "7f3b1c9e-4a5d-4f6e-8a9b-0c1d2e3f4a5b",
		Hours:        4,
		Date:         "2026-03-15",
		Description:  "Sorted donations at the food bank",
	}
}

func newHoursServiceForTest(repo *mockHoursRepo, enrollments *mockEnrollmentReader, activities *mockActivityRepo, users *mockUserReader, notifier *mockNotifier) *HoursService {
	return NewHoursService(repo, enrollments, activities, users, notifier, nil, nil)
}

func TestHoursLogSuccess(t *testing.T) {
	repo := &mockHoursRepo{}
	notifier := &mockNotifier{}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{enrollment: confirmedEnrollment()}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, notifier)

	request, err := svc.Log(context.Background(), studentClaims(), validLogRequest())
	require.NoError(t, err)
	assert.Equal(t, models.HoursStatusPending, request.Status)
	assert.Equal(t, "student-1", request.UserID)
	assert.Equal(t, "act-1", request.ActivityID)
	assert.Len(t, notifier.notifications, 1)
}

func TestHoursLogForeignEnrollment(t *testing.T) {
	enrollment := confirmedEnrollment()
	enrollment.UserID = "student-2"
	repo := &mockHoursRepo{}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{enrollment: enrollment}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Log(context.Background(), studentClaims(), validLogRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.created)
}

func TestHoursLogUnconfirmedEnrollment(t *testing.T) {
	enrollment := confirmedEnrollment()
	enrollment.Status = models.EnrollmentStatusPending
	svc := newHoursServiceForTest(&mockHoursRepo{}, &mockEnrollmentReader{enrollment: enrollment}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Log(context.Background(), studentClaims(), validLogRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestHoursLogInvalidPayload(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*LogHoursRequest)
	}{
		{"hours below minimum", func(r *LogHoursRequest) { r.Hours = 0.25 }},
		{"hours above maximum", func(r *LogHoursRequest) { r.Hours = 30 }},
		{"description too short", func(r *LogHoursRequest) { r.Description = "too short" }},
		{"description too long", func(r *LogHoursRequest) { r.Description = strings.Repeat("x", 1001) }},
		{"future date", func(r *LogHoursRequest) { r.Date = time.Now().UTC().AddDate(1, 0, 0).Format("2006-01-02") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockHoursRepo{}
			svc := newHoursServiceForTest(repo, &mockEnrollmentReader{enrollment: confirmedEnrollment()}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

			req := validLogRequest()
			tc.mutate(&req)
			_, err := svc.Log(context.Background(), studentClaims(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
			assert.Nil(t, repo.created)
		})
	}
}

func TestHoursApproveSuccess(t *testing.T) {
	repo := &mockHoursRepo{request: pendingHours(), updateReturns: true}
	notifier := &mockNotifier{}
	users := &mockUserReader{user: &models.User{ID: "student-1", Email: "ana@uni.edu"}}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, users, notifier)

	request, err := svc.Approve(context.Background(), professorClaims(), "hrs-1", ReviewHoursRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.HoursStatusApproved, request.Status)
	require.NotNil(t, request.ReviewedBy)
	assert.Equal(t, "prof-1", *request.ReviewedBy)
	assert.Len(t, notifier.emails, 1)
}

func TestHoursApproveAlreadyReviewed(t *testing.T) {
	request := pendingHours()
	request.Status = models.HoursStatusApproved
	repo := &mockHoursRepo{request: request, updateReturns: false}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Approve(context.Background(), professorClaims(), "hrs-1", ReviewHoursRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestHoursRejectRequiresNotes(t *testing.T) {
	repo := &mockHoursRepo{request: pendingHours(), updateReturns: true}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Reject(context.Background(), professorClaims(), "hrs-1", RejectHoursRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.reviewCallCount)
}

func TestHoursRejectSuccess(t *testing.T) {
	repo := &mockHoursRepo{request: pendingHours(), updateReturns: true}
	users := &mockUserReader{user: &models.User{ID: "student-1", Email: "ana@uni.edu"}}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, users, &mockNotifier{})

	request, err := svc.Reject(context.Background(), professorClaims(), "hrs-1", RejectHoursRequest{ProfessorNotes: "evidence missing"})
	require.NoError(t, err)
	assert.Equal(t, models.HoursStatusRejected, request.Status)
	require.NotNil(t, request.ProfessorNotes)
	assert.Equal(t, "evidence missing", *request.ProfessorNotes)
}

func TestHoursReviewRequiresOwnership(t *testing.T) {
	repo := &mockHoursRepo{request: pendingHours(), updateReturns: true}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	other := &models.JWTClaims{UserID: "prof-2", Role: models.RoleProfessor}
	_, err := svc.Approve(context.Background(), other, "hrs-1", ReviewHoursRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Zero(t, repo.reviewCallCount)
}

func TestHoursRequestInfoLeavesStateAlone(t *testing.T) {
	repo := &mockHoursRepo{request: pendingHours()}
	notifier := &mockNotifier{}
	users := &mockUserReader{user: &models.User{ID: "student-1", Email: "ana@uni.edu"}}
	svc := newHoursServiceForTest(repo, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, users, notifier)

	err := svc.RequestInfo(context.Background(), professorClaims(), "hrs-1", RequestInfoRequest{Message: "Which shift was this?"})
	require.NoError(t, err)
	assert.Zero(t, repo.reviewCallCount)
	assert.Len(t, notifier.emails, 1)
	assert.Empty(t, notifier.notifications)
	assert.Equal(t, models.HoursStatusPending, repo.request.Status)
}

func TestHoursRequestInfoReviewedClaim(t *testing.T) {
	request := pendingHours()
	request.Status = models.HoursStatusApproved
	svc := newHoursServiceForTest(&mockHoursRepo{request: request}, &mockEnrollmentReader{}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	err := svc.RequestInfo(context.Background(), professorClaims(), "hrs-1", RequestInfoRequest{Message: "hello"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}
