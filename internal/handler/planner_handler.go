package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/confplan-api/internal/dto"
	"github.com/noah-isme/confplan-api/internal/models"
	"github.com/noah-isme/confplan-api/internal/service"
	appErrors "github.com/noah-isme/confplan-api/pkg/errors"
	"github.com/noah-isme/confplan-api/pkg/response"
)

type plannerManager interface {
	Generate(ctx context.Context, req dto.GeneratePlanRequest) (*dto.GeneratePlanResponse, error)
	Save(ctx context.Context, req dto.SavePlanRequest) (string, error)
	List(ctx context.Context, query dto.ScheduleQuery) ([]models.Schedule, error)
	GetSlots(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
	Publish(ctx context.Context, scheduleID string) error
	Delete(ctx context.Context, scheduleID string) error
}

// PlannerHandler exposes schedule planning endpoints.
type PlannerHandler struct {
	service plannerManager
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(svc *service.PlannerService) *PlannerHandler {
	return &PlannerHandler{service: svc}
}

// Generate godoc
// @Summary Generate a schedule proposal
// @Description Runs the allocation engine over the event's ballots and returns a preview. The proposal stays cached until saved or expired.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.GeneratePlanRequest true "Generate payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /plans/generate [post]
func (h *PlannerHandler) Generate(c *gin.Context) {
	var req dto.GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Save godoc
// @Summary Save a schedule proposal
// @Description Persists a generated proposal as the event's next schedule version.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.SavePlanRequest true "Save payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /plans/save [post]
func (h *PlannerHandler) Save(c *gin.Context) {
	var req dto.SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
		return
	}
	id, err := h.service.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"scheduleId": id})
}

// List godoc
// @Summary List schedule versions for an event
// @Tags Planner
// @Produce json
// @Param eventId query string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *PlannerHandler) List(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), dto.ScheduleQuery{EventID: c.Query("eventId")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Slots godoc
// @Summary Get slots for a saved schedule
// @Tags Planner
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/slots [get]
func (h *PlannerHandler) Slots(c *gin.Context) {
	slots, err := h.service.GetSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Publish godoc
// @Summary Publish a draft schedule
// @Tags Planner
// @Param id path string true "Schedule ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/publish [post]
func (h *PlannerHandler) Publish(c *gin.Context) {
	if err := h.service.Publish(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a draft schedule
// @Tags Planner
// @Param id path string true "Schedule ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *PlannerHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
