package handler

import (
	"log/slog"
	"net/http"

	"github.com/fincontrol-ledger/internal/api_gateway/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationHandler serves derived balances, used limits and the
// reconciliation journal
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// AccountBalance recomputes an account balance from its paid entries
func (h *ReconciliationHandler) AccountBalance(c *gin.Context) {
	id, ok := h.idParam(c, "account")
	if !ok {
		return
	}

	balance, err := h.reconciliationService.AccountBalance(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, BalanceResponse{AccountID: id.String(), Balance: balance.StringFixed(2)})
}

// CardUsedLimit recomputes a card used limit from its expenses
func (h *ReconciliationHandler) CardUsedLimit(c *gin.Context) {
	id, ok := h.idParam(c, "card")
	if !ok {
		return
	}

	used, err := h.reconciliationService.CardUsedLimit(c.Request.Context(), id)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, UsedLimitResponse{CardID: id.String(), UsedLimit: used.StringFixed(2)})
}

// Request queues an asynchronous reconciliation of a funding source
func (h *ReconciliationHandler) Request(c *gin.Context) {
	var req ReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	src, err := req.FundingSource.toDomain()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	event, err := h.reconciliationService.RequestReconciliation(c.Request.Context(), src, req.Reason)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondAccepted(c, ReconciliationAcceptedResponse{
		EventID:       event.EventID.String(),
		FundingSource: event.Source,
		Reason:        event.Reason,
		Status:        "QUEUED",
	})
}

// History returns the reconciliation journal of a funding source, newest first
func (h *ReconciliationHandler) History(c *gin.Context) {
	id, ok := h.idParam(c, "funding source")
	if !ok {
		return
	}

	src, err := parseSourceKind(c.Param("kind"), id)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Warn("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	snapshots, total, err := h.reconciliationService.History(c.Request.Context(), src, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	history := make([]SnapshotResponse, 0, len(snapshots))
	for _, s := range snapshots {
		history = append(history, mapSnapshotToResponse(s))
	}

	RespondWithPaginatedData(c, http.StatusOK, history, pagination.Page, pagination.PerPage, int(total))
}

func (h *ReconciliationHandler) idParam(c *gin.Context, what string) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid "+what+" ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid "+what+" ID")
		return uuid.Nil, false
	}
	return id, true
}
