package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type timetableService interface {
	List(ctx context.Context, actor *models.JWTClaims, filter models.TimetableFilter) ([]models.Timetable, *models.Pagination, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Timetable, error)
	Create(ctx context.Context, actor *models.JWTClaims, req models.CreateTimetableRequest) (*models.Timetable, error)
	Mutate(ctx context.Context, actor *models.JWTClaims, id string, req models.MutateTimetableRequest) (*models.MutationSummary, error)
	Activate(ctx context.Context, actor *models.JWTClaims, id string, req models.ActivateTimetableRequest) (*models.ActivationSummary, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string) error
	Export(ctx context.Context, actor *models.JWTClaims, id string, format models.ExportFormat) (*models.ExportFile, error)
}

// TimetableHandler exposes persisted student timetables.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs a timetable handler.
func NewTimetableHandler(svc timetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// List godoc
// @Summary List timetables
// @Description Students only see their own timetables
// @Tags Timetables
// @Produce json
// @Param student_erp query string false "Filter by student (administrators)"
// @Param term_id query string false "Filter by term"
// @Param is_active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	filter := models.TimetableFilter{
		StudentERP: c.Query("student_erp"),
		TermID:     c.Query("term_id"),
	}
	if raw := c.Query("is_active"); raw != "" {
		if val, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &val
		}
	}
	filter.Page, filter.PageSize = pageParams(c)

	timetables, pagination, err := h.service.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetables, pagination)
}

// Get godoc
// @Summary Get timetable with its classes
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	timetable, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Create godoc
// @Summary Persist a timetable
// @Description Companion classes are added automatically; conflicting selections are rejected
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body models.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req models.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	timetable, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, timetable)
}

// Mutate godoc
// @Summary Add or remove timetable classes
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body models.MutateTimetableRequest true "Classes to add and remove"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/classes [post]
func (h *TimetableHandler) Mutate(c *gin.Context) {
	var req models.MutateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mutation payload"))
		return
	}
	summary, err := h.service.Mutate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Activate godoc
// @Summary Toggle the active flag
// @Description Activating deactivates the student's other timetable for the term
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body models.ActivateTimetableRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [patch]
func (h *TimetableHandler) Activate(c *gin.Context) {
	var req models.ActivateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activation payload"))
		return
	}
	summary, err := h.service.Activate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Delete godoc
// @Summary Delete timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export timetable
// @Tags Timetables
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Timetable ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /timetables/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), claimsFromContext(c), c.Param("id"), models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Body)
}
