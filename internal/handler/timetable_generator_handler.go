package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

const maxRequestedSubjects = 64

type timetableGenerator interface {
	Generate(ctx context.Context, req models.GenerateTimetablesRequest) (*models.GenerateTimetablesResponse, bool, error)
}

// TimetableGeneratorHandler exposes draft generation.
type TimetableGeneratorHandler struct {
	service timetableGenerator
}

// NewTimetableGeneratorHandler constructs the handler.
func NewTimetableGeneratorHandler(svc timetableGenerator) *TimetableGeneratorHandler {
	return &TimetableGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Generate conflict-free timetable drafts
// @Description Enumerates combinations of one class per subject for the requested number of subjects. Drafts are not persisted.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body models.GenerateTimetablesRequest true "Generator payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableGeneratorHandler) Generate(c *gin.Context) {
	var req models.GenerateTimetablesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.SubjectCodes) > maxRequestedSubjects || req.NumOfSubjects > maxRequestedSubjects {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "too many subjects requested"))
		return
	}

	result, cacheHit, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, result, nil, middleware.ExtractMeta(c))
}
