package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type classOfferingService interface {
	List(ctx context.Context, filter models.ClassOfferingFilter) ([]models.ClassOffering, *models.Pagination, error)
	Get(ctx context.Context, erp string) (*models.ClassOffering, error)
	Create(ctx context.Context, req models.ClassOfferingRequest) (*models.ClassOffering, error)
	Update(ctx context.Context, erp string, req models.ClassOfferingRequest) (*models.ClassOffering, error)
	Delete(ctx context.Context, erp string) error
	Occupancy(ctx context.Context, erp string) ([]models.OccupancyCell, error)
	CheckConflict(ctx context.Context, req models.ConflictCheckRequest) (*models.ConflictCheckResult, error)
}

// ClassOfferingHandler exposes class offering endpoints.
type ClassOfferingHandler struct {
	service classOfferingService
}

// NewClassOfferingHandler constructs a class offering handler.
func NewClassOfferingHandler(svc classOfferingService) *ClassOfferingHandler {
	return &ClassOfferingHandler{service: svc}
}

// List godoc
// @Summary List class offerings
// @Tags Class Offerings
// @Produce json
// @Param term_id query string false "Filter by term"
// @Param subject_code query string false "Filter by subject; comma separated for several"
// @Param teacher_id query string false "Filter by teacher"
// @Param semester query string false "Filter by semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /class-offerings [get]
func (h *ClassOfferingHandler) List(c *gin.Context) {
	filter := models.ClassOfferingFilter{
		TermID:    c.Query("term_id"),
		TeacherID: c.Query("teacher_id"),
		Semester:  c.Query("semester"),
	}
	if raw := c.Query("subject_code"); raw != "" {
		codes := strings.Split(raw, ",")
		if len(codes) == 1 {
			filter.SubjectCode = strings.TrimSpace(raw)
		} else {
			for _, code := range codes {
				if code = strings.TrimSpace(code); code != "" {
					filter.SubjectCodes = append(filter.SubjectCodes, code)
				}
			}
		}
	}
	filter.Page, filter.PageSize = pageParams(c)

	offerings, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Get godoc
// @Summary Get class offering
// @Tags Class Offerings
// @Produce json
// @Param erp path string true "Class ERP"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /class-offerings/{erp} [get]
func (h *ClassOfferingHandler) Get(c *gin.Context) {
	offering, err := h.service.Get(c.Request.Context(), c.Param("erp"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Create godoc
// @Summary Create class offering
// @Tags Class Offerings
// @Accept json
// @Produce json
// @Param payload body models.ClassOfferingRequest true "Class offering payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /class-offerings [post]
func (h *ClassOfferingHandler) Create(c *gin.Context) {
	var req models.ClassOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class offering payload"))
		return
	}
	offering, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Update class offering
// @Tags Class Offerings
// @Accept json
// @Produce json
// @Param erp path string true "Class ERP"
// @Param payload body models.ClassOfferingRequest true "Class offering payload"
// @Success 200 {object} response.Envelope
// @Router /class-offerings/{erp} [put]
func (h *ClassOfferingHandler) Update(c *gin.Context) {
	var req models.ClassOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class offering payload"))
		return
	}
	offering, err := h.service.Update(c.Request.Context(), c.Param("erp"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Delete godoc
// @Summary Delete class offering
// @Tags Class Offerings
// @Param erp path string true "Class ERP"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /class-offerings/{erp} [delete]
func (h *ClassOfferingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("erp")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Occupancy godoc
// @Summary List the (day, timeslot) cells a class occupies
// @Tags Class Offerings
// @Produce json
// @Param erp path string true "Class ERP"
// @Success 200 {object} response.Envelope
// @Router /class-offerings/{erp}/occupancy [get]
func (h *ClassOfferingHandler) Occupancy(c *gin.Context) {
	cells, err := h.service.Occupancy(c.Request.Context(), c.Param("erp"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cells, nil)
}

// Conflicts godoc
// @Summary Check whether two classes can share a timetable
// @Tags Class Offerings
// @Accept json
// @Produce json
// @Param payload body models.ConflictCheckRequest true "Class pair"
// @Success 200 {object} response.Envelope
// @Router /class-offerings/conflicts [post]
func (h *ClassOfferingHandler) Conflicts(c *gin.Context) {
	var req models.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	result, err := h.service.CheckConflict(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
