package handler

import (
	"log/slog"

	"github.com/fincontrol-ledger/internal/api_gateway/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlanHandler handles HTTP requests for installment plans
type PlanHandler struct {
	planService service.PlanService
	logger      *slog.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(logger *slog.Logger, planService service.PlanService) *PlanHandler {
	return &PlanHandler{
		planService: planService,
		logger:      logger,
	}
}

// Create materializes a plan with all of its installments
func (h *PlanHandler) Create(c *gin.Context) {
	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	params, err := req.toParams()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	p, entries, err := h.planService.CreatePlan(c.Request.Context(), params)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapPlanToResponse(p, entries))
}

// GetByID returns a plan with its installments ordered by index
func (h *PlanHandler) GetByID(c *gin.Context) {
	id, ok := h.planID(c)
	if !ok {
		return
	}

	p, entries, err := h.planService.GetPlan(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPlanToResponse(p, entries))
}

// Cancel drops the pending installments of a plan
func (h *PlanHandler) Cancel(c *gin.Context) {
	id, ok := h.planID(c)
	if !ok {
		return
	}

	p, err := h.planService.CancelPlan(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPlanToResponse(p, nil))
}

// PayAll settles every pending installment of a plan
func (h *PlanHandler) PayAll(c *gin.Context) {
	id, ok := h.planID(c)
	if !ok {
		return
	}

	p, err := h.planService.PayAll(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, mapPlanToResponse(p, nil))
}

func (h *PlanHandler) planID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid plan ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid plan ID")
		return uuid.Nil, false
	}
	return id, true
}
