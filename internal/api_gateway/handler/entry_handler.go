package handler

import (
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/api_gateway/service"
	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EntryHandler handles HTTP requests for single ledger entries
type EntryHandler struct {
	entryService service.EntryService
	logger       *slog.Logger
}

// NewEntryHandler creates a new entry handler
func NewEntryHandler(logger *slog.Logger, entryService service.EntryService) *EntryHandler {
	return &EntryHandler{
		entryService: entryService,
		logger:       logger,
	}
}

// UpdateStatus moves an entry between PENDING and PAID
func (h *EntryHandler) UpdateStatus(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Warn("Invalid entry ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	var req UpdateEntryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entry, err := h.entryService.SetStatus(c.Request.Context(), id, shared.EntryStatus(req.Status))
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// Import appends a batch of standalone entries in one transaction
func (h *EntryHandler) Import(c *gin.Context) {
	var req ImportEntriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	entries := make([]*ledger.Entry, 0, len(req.Entries))
	for i, r := range req.Entries {
		entry, err := r.toEntry()
		if err != nil {
			RespondBadRequest(c, fmt.Sprintf("entries[%d]: %v", i, err))
			return
		}
		entries = append(entries, entry)
	}

	result, err := h.entryService.Import(c.Request.Context(), entries)
	if err != nil {
		RespondServiceError(c, h.logger, err)
		return
	}

	response := ImportResponse{
		Inserted: make([]string, 0, len(result.Inserted)),
		Skipped:  result.Skipped,
	}
	if response.Skipped == nil {
		response.Skipped = []string{}
	}
	for _, id := range result.Inserted {
		response.Inserted = append(response.Inserted, id.String())
	}

	RespondOK(c, response)
}
