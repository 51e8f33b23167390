package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type mockSessionRepo struct {
	session     *models.Session
	findByIDErr error
	created     *models.Session
	qrSet       bool
	status      models.SessionStatus
}

func (m *mockSessionRepo) ListByActivity(ctx context.Context, activityID string) ([]models.Session, error) {
	if m.session == nil {
		return nil, nil
	}
	return []models.Session{*m.session}, nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.session == nil {
		return nil, sql.ErrNoRows
	}
	return m.session, nil
}

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	session.ID = "sess-new"
	m.created = session
	return nil
}

func (m *mockSessionRepo) SetQRCode(ctx context.Context, id, qrData string, expiresAt time.Time) error {
	m.qrSet = true
	if m.session != nil {
		m.session.QRCodeData = &qrData
		m.session.QRExpiresAt = &expiresAt
		m.session.Status = models.SessionStatusInProgress
	}
	return nil
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	m.status = status
	if m.session != nil {
		m.session.Status = status
	}
	return nil
}

type mockSessionEnrollments struct {
	enrollment *models.Enrollment
	attendance models.AttendanceStatus
}

func (m *mockSessionEnrollments) FindLiveByUserAndActivity(ctx context.Context, userID, activityID string) (*models.Enrollment, error) {
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockSessionEnrollments) UpdateAttendance(ctx context.Context, id string, status models.AttendanceStatus) error {
	m.attendance = status
	return nil
}

func liveSession(t *testing.T, window time.Duration) *models.Session {
	t.Helper()
	payload := models.QRPayload{SessionID: "sess-1", ActivityID: "act-1", Timestamp: time.Now().Unix(), RandomToken: "deadbeef"}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)
	expiresAt := time.Now().UTC().Add(window)
	return &models.Session{
		ID:          "sess-1",
		ActivityID:  "act-1",
		Status:      models.SessionStatusInProgress,
		QRCodeData:  &encoded,
		QRExpiresAt: &expiresAt,
	}
}

func newSessionServiceForTest(repo *mockSessionRepo, enrollments *mockSessionEnrollments, activities *mockActivityRepo) *SessionService {
	return NewSessionService(repo, enrollments, activities, 30*time.Second, nil, nil)
}

func TestSessionScheduleSuccess(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionServiceForTest(repo, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	session, err := svc.Schedule(context.Background(), professorClaims(), "act-1", ScheduleSessionRequest{ScheduledAt: "2026-09-12T14:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusScheduled, session.Status)
	assert.Equal(t, "act-1", session.ActivityID)
	require.NotNil(t, repo.created)
}

func TestSessionScheduleRejectsBadTimestamp(t *testing.T) {
	svc := newSessionServiceForTest(&mockSessionRepo{}, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	_, err := svc.Schedule(context.Background(), professorClaims(), "act-1", ScheduleSessionRequest{ScheduledAt: "next tuesday"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleOnClosedActivity(t *testing.T) {
	activity := openActivity()
	activity.Status = models.ActivityStatusCompleted
	svc := newSessionServiceForTest(&mockSessionRepo{}, &mockSessionEnrollments{}, &mockActivityRepo{activity: activity})

	_, err := svc.Schedule(context.Background(), professorClaims(), "act-1", ScheduleSessionRequest{ScheduledAt: "2026-09-12T14:00:00Z"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestSessionGenerateQRStartsSession(t *testing.T) {
	repo := &mockSessionRepo{session: &models.Session{ID: "sess-1", ActivityID: "act-1", Status: models.SessionStatusScheduled}}
	svc := newSessionServiceForTest(repo, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	session, err := svc.GenerateQR(context.Background(), professorClaims(), "sess-1")
	require.NoError(t, err)
	assert.True(t, repo.qrSet)
	assert.Equal(t, models.SessionStatusInProgress, session.Status)
	require.NotNil(t, session.QRCodeData)

	raw, err := base64.StdEncoding.DecodeString(*session.QRCodeData)
	require.NoError(t, err)
	var payload models.QRPayload
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "sess-1", payload.SessionID)
	assert.Equal(t, "act-1", payload.ActivityID)
	assert.NotEmpty(t, payload.RandomToken)
}

func TestSessionGenerateQRCompletedSession(t *testing.T) {
	repo := &mockSessionRepo{session: &models.Session{ID: "sess-1", ActivityID: "act-1", Status: models.SessionStatusCompleted}}
	svc := newSessionServiceForTest(repo, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	_, err := svc.GenerateQR(context.Background(), professorClaims(), "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.qrSet)
}

func TestSessionCheckinMarksPresent(t *testing.T) {
	session := liveSession(t, 30*time.Second)
	repo := &mockSessionRepo{session: session}
	enrollments := &mockSessionEnrollments{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusConfirmed}}
	svc := newSessionServiceForTest(repo, enrollments, &mockActivityRepo{activity: openActivity()})

	enrollment, err := svc.Checkin(context.Background(), studentClaims(), "sess-1", CheckinRequest{QRData: *session.QRCodeData})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, enrollment.AttendanceStatus)
	assert.Equal(t, models.AttendanceStatusPresent, enrollments.attendance)
}

func TestSessionCheckinExpiredCode(t *testing.T) {
	session := liveSession(t, -time.Second)
	repo := &mockSessionRepo{session: session}
	enrollments := &mockSessionEnrollments{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusConfirmed}}
	svc := newSessionServiceForTest(repo, enrollments, &mockActivityRepo{activity: openActivity()})

	_, err := svc.Checkin(context.Background(), studentClaims(), "sess-1", CheckinRequest{QRData: *session.QRCodeData})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, enrollments.attendance)
}

func TestSessionCheckinWrongCode(t *testing.T) {
	session := liveSession(t, 30*time.Second)
	repo := &mockSessionRepo{session: session}
	svc := newSessionServiceForTest(repo, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	_, err := svc.Checkin(context.Background(), studentClaims(), "sess-1", CheckinRequest{QRData: "bm90LXRoZS1jb2Rl"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionCheckinUnconfirmedEnrollment(t *testing.T) {
	session := liveSession(t, 30*time.Second)
	repo := &mockSessionRepo{session: session}
	enrollments := &mockSessionEnrollments{enrollment: &models.Enrollment{ID: "enr-1", UserID: "student-1", ActivityID: "act-1", Status: models.EnrollmentStatusPending}}
	svc := newSessionServiceForTest(repo, enrollments, &mockActivityRepo{activity: openActivity()})

	_, err := svc.Checkin(context.Background(), studentClaims(), "sess-1", CheckinRequest{QRData: *session.QRCodeData})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, enrollments.attendance)
}

func TestSessionCheckinNoEnrollment(t *testing.T) {
	session := liveSession(t, 30*time.Second)
	repo := &mockSessionRepo{session: session}
	svc := newSessionServiceForTest(repo, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	_, err := svc.Checkin(context.Background(), studentClaims(), "sess-1", CheckinRequest{QRData: *session.QRCodeData})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSessionCheckinRequiresStudent(t *testing.T) {
	session := liveSession(t, 30*time.Second)
	svc := newSessionServiceForTest(&mockSessionRepo{session: session}, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	_, err := svc.Checkin(context.Background(), professorClaims(), "sess-1", CheckinRequest{QRData: *session.QRCodeData})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSessionCompleteIdempotence(t *testing.T) {
	repo := &mockSessionRepo{session: &models.Session{ID: "sess-1", ActivityID: "act-1", Status: models.SessionStatusInProgress}}
	svc := newSessionServiceForTest(repo, &mockSessionEnrollments{}, &mockActivityRepo{activity: openActivity()})

	session, err := svc.Complete(context.Background(), professorClaims(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)

	_, err = svc.Complete(context.Background(), professorClaims(), "sess-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}
