package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/export"
	"github.com/noah-isme/campus-connect-api/pkg/storage"
)

type certificateRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Certificate, error)
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]models.Certificate, error)
	ExistsForEnrollee(ctx context.Context, userID, activityID string) (bool, error)
	Create(ctx context.Context, certificate *models.Certificate) error
}

type certificateEnrollmentReader interface {
	FindConfirmedByActivity(ctx context.Context, activityID string) ([]models.EnrollmentDetail, error)
}

type approvedHoursReader interface {
	SumApprovedByUserAndActivity(ctx context.Context, userID, activityID string) (float64, error)
}

// CertificateService issues, verifies, and serves completion certificates.
type CertificateService struct {
	repo        certificateRepository
	activities  hoursActivityReader
	enrollments certificateEnrollmentReader
	hours       approvedHoursReader
	renderer    *export.CertificatePDF
	files       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	notifier    workflowNotifier
	logger      *zap.Logger
}

// NewCertificateService constructs CertificateService.
func NewCertificateService(repo certificateRepository, activities hoursActivityReader, enrollments certificateEnrollmentReader, hours approvedHoursReader, renderer *export.CertificatePDF, files *storage.LocalStorage, signer *storage.SignedURLSigner, notifier workflowNotifier, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CertificateService{
		repo:        repo,
		activities:  activities,
		enrollments: enrollments,
		hours:       hours,
		renderer:    renderer,
		files:       files,
		signer:      signer,
		notifier:    notifier,
		logger:      logger,
	}
}

// Verify resolves a public verification code. Codes that fail the format
// check are rejected before any lookup; unknown codes read as not found.
func (s *CertificateService) Verify(ctx context.Context, code string) (*models.CertificateVerification, error) {
	if !models.CertificateCodePattern.MatchString(code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid certificate code format")
	}

	certificate, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up certificate")
	}

	return &models.CertificateVerification{
		Code:          certificate.Code,
		HolderName:    certificate.HolderName,
		ActivityTitle: certificate.ActivityTitle,
		HoursTotal:    certificate.HoursTotal,
		IssuedAt:      certificate.IssuedAt,
	}, nil
}

// ListMine returns the caller's issued certificates.
func (s *CertificateService) ListMine(ctx context.Context, claims *models.JWTClaims) ([]models.Certificate, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	certificates, err := s.repo.ListByUser(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	return certificates, nil
}

// Issue generates certificates for every confirmed enrollee of a completed
// activity the caller owns. Enrollees who already hold one are skipped, so
// the operation can be retried.
func (s *CertificateService) Issue(ctx context.Context, claims *models.JWTClaims, activityID string) ([]models.Certificate, error) {
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
	if activity.Status != models.ActivityStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "certificates require a completed activity")
	}

	enrollees, err := s.enrollments.FindConfirmedByActivity(ctx, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollees")
	}

	issued := make([]models.Certificate, 0, len(enrollees))
	for _, enrollee := range enrollees {
		exists, err := s.repo.ExistsForEnrollee(ctx, enrollee.UserID, activityID)
		if err != nil {
			return issued, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing certificate")
		}
		if exists {
			continue
		}

		total, err := s.hours.SumApprovedByUserAndActivity(ctx, enrollee.UserID, activityID)
		if err != nil {
			return issued, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to total approved hours")
		}

		certificate, err := s.issueOne(ctx, activity, enrollee, total)
		if err != nil {
			return issued, err
		}
		issued = append(issued, *certificate)

		s.notifier.Notify(ctx, enrollee.UserID, models.NotificationTypeCertificate,
			"Certificate issued",
			fmt.Sprintf("Your certificate for %q is ready. Verification code: %s", activity.Title, certificate.Code))
		s.notifier.Email(enrollee.StudentEmail, "Certificate issued",
			fmt.Sprintf("Your volunteer service certificate for %q is ready. Verification code: %s", activity.Title, certificate.Code))
	}
	return issued, nil
}

func (s *CertificateService) issueOne(ctx context.Context, activity *models.Activity, enrollee models.EnrollmentDetail, hoursTotal float64) (*models.Certificate, error) {
	code, err := generateCertificateCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate certificate code")
	}

	issuedAt := time.Now().UTC()
	pdf, err := s.renderer.Render(export.CertificateData{
		Code:          code,
		HolderName:    enrollee.StudentName,
		ActivityTitle: activity.Title,
		HoursTotal:    hoursTotal,
		IssuedAt:      issuedAt,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}

	relPath := fmt.Sprintf("%s/%s.pdf", activity.ID, code)
	if _, err := s.files.Save(relPath, pdf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}

	certificate := &models.Certificate{
		UserID:        enrollee.UserID,
		ActivityID:    activity.ID,
		Code:          code,
		HolderName:    enrollee.StudentName,
		ActivityTitle: activity.Title,
		HoursTotal:    hoursTotal,
		IssuedAt:      issuedAt,
		PDFPath:       relPath,
	}
	if err := s.repo.Create(ctx, certificate); err != nil {
		if cleanupErr := s.files.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to clean up certificate file", zap.String("path", relPath), zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record certificate")
	}
	return certificate, nil
}

// DownloadURL returns a short-lived signed token for the caller's own
// certificate.
func (s *CertificateService) DownloadURL(ctx context.Context, claims *models.JWTClaims, certificateID string) (string, time.Time, error) {
	certificate, err := s.repo.FindByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	if err := authorizeOwner(claims, certificate.UserID); err != nil {
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.signer.Generate(certificate.ID, certificate.PDFPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download token")
	}
	return token, expiresAt, nil
}

// OpenByToken validates a signed token and opens the referenced PDF for
// streaming. The caller closes the file.
func (s *CertificateService) OpenByToken(ctx context.Context, token string) (*os.File, *models.Certificate, error) {
	certificateID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	certificate, err := s.repo.FindByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	if certificate.PDFPath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}

	file, err := s.files.Open(certificate.PDFPath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open certificate file")
	}
	return file, certificate, nil
}

const certificateCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateCertificateCode() (string, error) {
	buf := make([]byte, 8)
	alphabetLen := big.NewInt(int64(len(certificateCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = certificateCodeAlphabet[n.Int64()]
	}
	return "CC-" + string(buf), nil
}
