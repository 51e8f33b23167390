package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/service"
	"github.com/noah-isme/campus-connect-api/pkg/export"
	"github.com/noah-isme/campus-connect-api/pkg/response"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

type stubCertificateRepo struct {
	byCode *models.Certificate
}

func (s *stubCertificateRepo) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	if s.byCode == nil || s.byCode.Code != code {
		return nil, sql.ErrNoRows
	}
	return s.byCode, nil
}

func (s *stubCertificateRepo) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	return nil, sql.ErrNoRows
}

func (s *stubCertificateRepo) ListByUser(ctx context.Context, userID string) ([]models.Certificate, error) {
	return nil, nil
}

func (s *stubCertificateRepo) ExistsForEnrollee(ctx context.Context, userID, activityID string) (bool, error) {
	return false, nil
}

func (s *stubCertificateRepo) Create(ctx context.Context, certificate *models.Certificate) error {
	return nil
}

type stubActivityReader struct{}

func (s *stubActivityReader) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	return nil, sql.ErrNoRows
}

type stubConfirmedEnrollments struct{}

func (s *stubConfirmedEnrollments) FindConfirmedByActivity(ctx context.Context, activityID string) ([]models.EnrollmentDetail, error) {
	return nil, nil
}

type stubApprovedHours struct{}

func (s *stubApprovedHours) SumApprovedByUserAndActivity(ctx context.Context, userID, activityID string) (float64, error) {
	return 0, nil
}

type stubWorkflowNotifier struct{}

func (s *stubWorkflowNotifier) Notify(ctx context.Context, userID, notificationType, title, body string) {
}

func (s *stubWorkflowNotifier) Email(to, subject, body string) {}

func newVerifyRouter(t *testing.T, repo *stubCertificateRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 15*time.Minute)
	certificates := service.NewCertificateService(repo, &stubActivityReader{}, &stubConfirmedEnrollments{}, &stubApprovedHours{}, export.NewCertificatePDF(), files, signer, &stubWorkflowNotifier{}, nil)
	h := NewCertificateHandler(certificates, nil)

	router := gin.New()
	router.GET("/api/v1/certificates/verify/:code", h.Verify)
	return router
}

func TestCertificateVerifyEndpoint(t *testing.T) {
	issuedAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &stubCertificateRepo{byCode: &models.Certificate{
		Code:          "CC-ABCD1234",
		HolderName:    "Ana Souza",
		ActivityTitle: "Beach Cleanup",
		HoursTotal:    12.5,
		IssuedAt:      issuedAt,
	}}
	router := newVerifyRouter(t, repo)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/CC-ABCD1234", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "CC-ABCD1234", data["code"])
	assert.Equal(t, "Ana Souza", data["holder_name"])
	assert.Equal(t, "Beach Cleanup", data["activity_title"])
	assert.Equal(t, 12.5, data["hours_total"])
}

func TestCertificateVerifyEndpointMalformedCode(t *testing.T) {
	router := newVerifyRouter(t, &stubCertificateRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/not-a-code", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestCertificateVerifyEndpointUnknownCode(t *testing.T) {
	router := newVerifyRouter(t, &stubCertificateRepo{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/CC-ZZZZ9999", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}
