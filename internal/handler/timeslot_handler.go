package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type timeslotService interface {
	List(ctx context.Context) ([]models.Timeslot, error)
	Get(ctx context.Context, id string) (*models.Timeslot, error)
	Create(ctx context.Context, req models.TimeslotRequest) (*models.Timeslot, error)
	Update(ctx context.Context, id string, req models.TimeslotRequest) (*models.Timeslot, error)
	Delete(ctx context.Context, id string) error
}

// TimeslotHandler exposes the timeslot registry.
type TimeslotHandler struct {
	service timeslotService
}

// NewTimeslotHandler constructs a timeslot handler.
func NewTimeslotHandler(svc timeslotService) *TimeslotHandler {
	return &TimeslotHandler{service: svc}
}

// List godoc
// @Summary List timeslots
// @Tags Timeslots
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timeslots [get]
func (h *TimeslotHandler) List(c *gin.Context) {
	slots, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get timeslot
// @Tags Timeslots
// @Produce json
// @Param id path string true "Timeslot ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timeslots/{id} [get]
func (h *TimeslotHandler) Get(c *gin.Context) {
	slot, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Create timeslot
// @Description Rejects ranges overlapping an existing timeslot
// @Tags Timeslots
// @Accept json
// @Produce json
// @Param payload body models.TimeslotRequest true "Timeslot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timeslots [post]
func (h *TimeslotHandler) Create(c *gin.Context) {
	var req models.TimeslotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timeslot payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update timeslot
// @Tags Timeslots
// @Accept json
// @Produce json
// @Param id path string true "Timeslot ID"
// @Param payload body models.TimeslotRequest true "Timeslot payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timeslots/{id} [put]
func (h *TimeslotHandler) Update(c *gin.Context) {
	var req models.TimeslotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timeslot payload"))
		return
	}
	slot, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete timeslot
// @Tags Timeslots
// @Param id path string true "Timeslot ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /timeslots/{id} [delete]
func (h *TimeslotHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
