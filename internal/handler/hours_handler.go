package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-connect-api/internal/models"
	"github.com/noah-isme/campus-connect-api/internal/service"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
	"github.com/noah-isme/campus-connect-api/pkg/response"
)

// HoursHandler exposes logged-hours endpoints.
type HoursHandler struct {
	hours   *service.HoursService
	metrics *service.MetricsService
}

// NewHoursHandler constructs HoursHandler.
func NewHoursHandler(hours *service.HoursService, metrics *service.MetricsService) *HoursHandler {
	return &HoursHandler{hours: hours, metrics: metrics}
}

// Log godoc
// @Summary Log volunteer hours
// @Tags Hours
// @Accept json
// @Produce json
// @Param payload body service.LogHoursRequest true "Hours payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /hours [post]
func (h *HoursHandler) Log(c *gin.Context) {
	var req service.LogHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.hours.Log(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// ListMine godoc
// @Summary List own hours requests
// @Tags Hours
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /hours/me [get]
func (h *HoursHandler) ListMine(c *gin.Context) {
	filter := hoursFilterFromQuery(c)

	requests, pagination, err := h.hours.ListMine(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// ListForActivity godoc
// @Summary List an activity's hours requests
// @Tags Hours
// @Produce json
// @Param id path string true "Activity ID"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /activities/{id}/hours [get]
func (h *HoursHandler) ListForActivity(c *gin.Context) {
	filter := hoursFilterFromQuery(c)

	requests, pagination, err := h.hours.ListForActivity(c.Request.Context(), claimsFromContext(c), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Approve godoc
// @Summary Approve an hours request
// @Tags Hours
// @Accept json
// @Produce json
// @Param id path string true "Hours request ID"
// @Param payload body service.ReviewHoursRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /hours/{id}/approve [put]
func (h *HoursHandler) Approve(c *gin.Context) {
	var req service.ReviewHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	request, err := h.hours.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordHoursReview("approved")
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject an hours request
// @Tags Hours
// @Accept json
// @Produce json
// @Param id path string true "Hours request ID"
// @Param payload body service.RejectHoursRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /hours/{id}/reject [put]
func (h *HoursHandler) Reject(c *gin.Context) {
	var req service.RejectHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "professor notes are required"))
		return
	}

	request, err := h.hours.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordHoursReview("rejected")
	response.JSON(c, http.StatusOK, request, nil)
}

// RequestInfo godoc
// @Summary Ask the student for more information
// @Tags Hours
// @Accept json
// @Produce json
// @Param id path string true "Hours request ID"
// @Param payload body service.RequestInfoRequest true "Message payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /hours/{id}/request-info [post]
func (h *HoursHandler) RequestInfo(c *gin.Context) {
	var req service.RequestInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "message is required"))
		return
	}

	if err := h.hours.RequestInfo(c.Request.Context(), claimsFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "information request sent"}, nil)
}

func hoursFilterFromQuery(c *gin.Context) models.HoursFilter {
	var filter models.HoursFilter
	filter.Status = models.HoursStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter
}
