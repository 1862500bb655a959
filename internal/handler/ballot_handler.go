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

type ballotManager interface {
	Submit(ctx context.Context, eventID string, req dto.SubmitBallotRequest) (*models.Ballot, error)
	List(ctx context.Context, eventID string) ([]models.Ballot, error)
	Popularity(ctx context.Context, eventID string) (*dto.PopularitySummary, error)
	DeleteByEvent(ctx context.Context, eventID string) error
}

// BallotHandler exposes ballot endpoints scoped to an event.
type BallotHandler struct {
	service ballotManager
}

// NewBallotHandler constructs the handler.
func NewBallotHandler(svc *service.BallotService) *BallotHandler {
	return &BallotHandler{service: svc}
}

// Submit godoc
// @Summary Submit a voter ballot
// @Description Weight vector aligned to the event's presentation order; total weight must not exceed the presentation count.
// @Tags Ballots
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.SubmitBallotRequest true "Ballot payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /events/{id}/ballots [post]
func (h *BallotHandler) Submit(c *gin.Context) {
	var req dto.SubmitBallotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid ballot payload"))
		return
	}
	ballot, err := h.service.Submit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ballot)
}

// List godoc
// @Summary List ballots for an event
// @Tags Ballots
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/ballots [get]
func (h *BallotHandler) List(c *gin.Context) {
	ballots, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ballots, nil)
}

// Popularity godoc
// @Summary Popularity summary for an event
// @Description Aggregated per-presentation vote totals, cached between ballot writes.
// @Tags Ballots
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/popularity [get]
func (h *BallotHandler) Popularity(c *gin.Context) {
	summary, err := h.service.Popularity(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Delete godoc
// @Summary Delete all ballots for an event
// @Tags Ballots
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id}/ballots [delete]
func (h *BallotHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteByEvent(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
