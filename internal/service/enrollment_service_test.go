package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollment      *models.Enrollment
	findByIDErr     error
	existsLive      bool
	existsLiveErr   error
	created         *models.Enrollment
	createErr       error
	reviewedStatus  models.EnrollmentStatus
	reviewedReason  *string
	updateReviewErr error
	softDeleted     bool
	listItems       []models.EnrollmentDetail
	listTotal       int
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return m.listItems, m.listTotal, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockEnrollmentRepo) ExistsLive(ctx context.Context, userID, activityID string) (bool, error) {
	return m.existsLive, m.existsLiveErr
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	enrollment.ID = "enr-new"
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateReview(ctx context.Context, id string, status models.EnrollmentStatus, rejectionReason, professorNotes *string, reviewedAt time.Time) error {
	if m.updateReviewErr != nil {
		return m.updateReviewErr
	}
	m.reviewedStatus = status
	m.reviewedReason = rejectionReason
	if m.enrollment != nil {
		m.enrollment.Status = status
		m.enrollment.RejectionReason = rejectionReason
	}
	return nil
}

func (m *mockEnrollmentRepo) SoftDelete(ctx context.Context, id string, deletedAt time.Time) error {
	m.softDeleted = true
	return nil
}

type mockActivityRepo struct {
	activity     *models.Activity
	findByIDErr  error
	incremented  bool
	incrementErr error
	decremented  bool
	decrementErr error
}

func (m *mockActivityRepo) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.activity == nil {
		return nil, sql.ErrNoRows
	}
	return m.activity, nil
}

func (m *mockActivityRepo) IncrementParticipants(ctx context.Context, id string) error {
	if m.incrementErr != nil {
		return m.incrementErr
	}
	m.incremented = true
	m.activity.CurrentParticipants++
	return nil
}

func (m *mockActivityRepo) DecrementParticipants(ctx context.Context, id string) error {
	if m.decrementErr != nil {
		return m.decrementErr
	}
	m.decremented = true
	return nil
}

type mockUserReader struct {
	user *models.User
	err  error
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

type mockNotifier struct {
	notifications []string
	emails        []string
}

func (m *mockNotifier) Notify(ctx context.Context, userID, notificationType, title, body string) {
	m.notifications = append(m.notifications, title)
}

func (m *mockNotifier) Email(to, subject, body string) {
	m.emails = append(m.emails, to)
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent, Email: "ana@uni.edu", FullName: "Ana Souza"}
}

func professorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "prof-1", Role: models.RoleProfessor, Email: "prof@uni.edu", FullName: "Prof. Lima"}
}

func openActivity() *models.Activity {
	return &models.Activity{
		ID:                  "act-1",
		Title:               "Beach Cleanup",
		Status:              models.ActivityStatusOpen,
		CreatedBy:           "prof-1",
		MaxParticipants:     10,
		CurrentParticipants: 2,
	}
}

func newEnrollmentServiceForTest(repo *mockEnrollmentRepo, activities *mockActivityRepo, users *mockUserReader, notifier *mockNotifier) *EnrollmentService {
	return NewEnrollmentService(repo, activities, users, notifier, nil, nil)
}

func TestEnrollmentApplySuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	activities := &mockActivityRepo{activity: openActivity()}
	notifier := &mockNotifier{}
	svc := newEnrollmentServiceForTest(repo, activities, &mockUserReader{}, notifier)

	enrollment, err := svc.Apply(context.Background(), studentClaims(), "act-1", ApplyRequest{CustomMessage: "I'd love to help"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusPending, enrollment.Status)
	assert.Equal(t, "student-1", enrollment.UserID)
	require.NotNil(t, repo.created)
	assert.Len(t, notifier.notifications, 1)
}

func TestEnrollmentApplyFullActivityWaitlists(t *testing.T) {
	activity := openActivity()
	activity.CurrentParticipants = activity.MaxParticipants
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: activity}, &mockUserReader{}, &mockNotifier{})

	enrollment, err := svc.Apply(context.Background(), studentClaims(), "act-1", ApplyRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, enrollment.Status)
}

func TestEnrollmentApplyDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{existsLive: true}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Apply(context.Background(), studentClaims(), "act-1", ApplyRequest{})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Nil(t, repo.created)
}

func TestEnrollmentApplyClosedActivity(t *testing.T) {
	activity := openActivity()
	activity.Status = models.ActivityStatusCompleted
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockActivityRepo{activity: activity}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Apply(context.Background(), studentClaims(), "act-1", ApplyRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentApplyRequiresStudentRole(t *testing.T) {
	svc := newEnrollmentServiceForTest(&mockEnrollmentRepo{}, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Apply(context.Background(), professorClaims(), "act-1", ApplyRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentConfirmSuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	activities := &mockActivityRepo{activity: openActivity()}
	notifier := &mockNotifier{}
	users := &mockUserReader{user: &models.User{ID: "student-1", Email: "ana@uni.edu"}}
	svc := newEnrollmentServiceForTest(repo, activities, users, notifier)

	enrollment, err := svc.Confirm(context.Background(), professorClaims(), "act-1", "enr-1", ConfirmEnrollmentRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusConfirmed, enrollment.Status)
	assert.True(t, activities.incremented)
	assert.Len(t, notifier.emails, 1)
}

func TestEnrollmentConfirmAtCapacity(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	activities := &mockActivityRepo{activity: openActivity(), incrementErr: sql.ErrNoRows}
	svc := newEnrollmentServiceForTest(repo, activities, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Confirm(context.Background(), professorClaims(), "act-1", "enr-1", ConfirmEnrollmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrActivityFull.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.reviewedStatus)
}

func TestEnrollmentConfirmAlreadyReviewed(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusConfirmed}}
	activities := &mockActivityRepo{activity: openActivity()}
	svc := newEnrollmentServiceForTest(repo, activities, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Confirm(context.Background(), professorClaims(), "act-1", "enr-1", ConfirmEnrollmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.False(t, activities.incremented)
}

func TestEnrollmentConfirmRequiresOwnership(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	other := &models.JWTClaims{UserID: "prof-2", Role: models.RoleProfessor}
	_, err := svc.Confirm(context.Background(), other, "act-1", "enr-1", ConfirmEnrollmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentRejectRequiresReason(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Reject(context.Background(), professorClaims(), "act-1", "enr-1", RejectEnrollmentRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	// no state change happened
	assert.Empty(t, repo.reviewedStatus)
	assert.Equal(t, models.EnrollmentStatusPending, repo.enrollment.Status)
}

func TestEnrollmentRejectBlankReason(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Reject(context.Background(), professorClaims(), "act-1", "enr-1", RejectEnrollmentRequest{RejectionReason: "   "})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.reviewedStatus)
}

func TestEnrollmentRejectSuccess(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	notifier := &mockNotifier{}
	users := &mockUserReader{user: &models.User{ID: "student-1", Email: "ana@uni.edu"}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, users, notifier)

	enrollment, err := svc.Reject(context.Background(), professorClaims(), "act-1", "enr-1", RejectEnrollmentRequest{RejectionReason: "schedule conflict"})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, enrollment.Status)
	require.NotNil(t, repo.reviewedReason)
	assert.Equal(t, "schedule conflict", *repo.reviewedReason)
	assert.Len(t, notifier.notifications, 1)
	assert.Len(t, notifier.emails, 1)
}

func TestEnrollmentRejectToWaitlist(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	enrollment, err := svc.Reject(context.Background(), professorClaims(), "act-1", "enr-1", RejectEnrollmentRequest{RejectionReason: "activity full", Waitlist: true})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, enrollment.Status)
}

func TestEnrollmentRejectWrongActivity(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-2", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	_, err := svc.Reject(context.Background(), professorClaims(), "act-1", "enr-1", RejectEnrollmentRequest{RejectionReason: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentWithdrawReleasesSlot(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusConfirmed}}
	activities := &mockActivityRepo{activity: openActivity()}
	svc := newEnrollmentServiceForTest(repo, activities, &mockUserReader{}, &mockNotifier{})

	require.NoError(t, svc.Withdraw(context.Background(), studentClaims(), "enr-1"))
	assert.True(t, repo.softDeleted)
	assert.True(t, activities.decremented)
}

func TestEnrollmentWithdrawForeignEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-2", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	svc := newEnrollmentServiceForTest(repo, &mockActivityRepo{activity: openActivity()}, &mockUserReader{}, &mockNotifier{})

	err := svc.Withdraw(context.Background(), studentClaims(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.softDeleted)
}
