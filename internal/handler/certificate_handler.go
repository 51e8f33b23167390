package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/service"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

// CertificateHandler exposes certificate issuance, download, and the public
// verification endpoint.
type CertificateHandler struct {
	certificates *service.CertificateService
	metrics      *service.MetricsService
}

// NewCertificateHandler constructs CertificateHandler.
func NewCertificateHandler(certificates *service.CertificateService, metrics *service.MetricsService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates, metrics: metrics}
}

// Verify godoc
// @Summary Verify a certificate code
// @Description Public endpoint resolving a verification code to certificate details
// @Tags Certificates
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /certificates/verify/{code} [get]
func (h *CertificateHandler) Verify(c *gin.Context) {
	verification, err := h.certificates.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verification, nil)
}

// ListMine godoc
// @Summary List own certificates
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificates/me [get]
func (h *CertificateHandler) ListMine(c *gin.Context) {
	certificates, err := h.certificates.ListMine(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certificates, nil)
}

// Issue godoc
// @Summary Issue certificates for a completed activity
// @Tags Certificates
// @Produce json
// @Param id path string true "Activity ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /activities/{id}/certificates [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	issued, err := h.certificates.Issue(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	for range issued {
		h.metrics.RecordCertificateIssued()
	}
	response.Created(c, issued)
}

// DownloadURL godoc
// @Summary Get a signed download link for a certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /certificates/{id}/download-url [get]
func (h *CertificateHandler) DownloadURL(c *gin.Context) {
	token, expiresAt, err := h.certificates.DownloadURL(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"token": token, "expires_at": expiresAt}, nil)
}

// Download godoc
// @Summary Download a certificate PDF
// @Description Streams the PDF referenced by a signed token
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, certificate, err := h.certificates.OpenByToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", certificate.Code+".pdf"))
	http.ServeContent(c.Writer, c.Request, certificate.Code+".pdf", certificate.IssuedAt, file)
}
