package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/service"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/response"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
)

// EntryHandler handles gate scans and the entry ledger
type EntryHandler struct {
	verifier service.VerifierService
	query    service.TicketQueryService
}

// NewEntryHandler creates a new EntryHandler
func NewEntryHandler(verifier service.VerifierService, query service.TicketQueryService) *EntryHandler {
	return &EntryHandler{
		verifier: verifier,
		query:    query,
	}
}

// Verify handles POST /entry/verify - admits or denies a scanned ticket.
// The scanner is the authenticated caller.
func (h *EntryHandler) Verify(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.entry.verify")
	defer span.End()

	var req dto.VerifyEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		denied := domain.Deny(domain.ReasonInvalidRequest)
		c.JSON(denied.Reason.HTTPStatus(), response.Error(denied.Reason.String(), denied.Message))
		return
	}
	req.ScannerID = callerFrom(c).UserID

	ticket, err := h.verifier.VerifyEntry(ctx, &req)
	if err != nil {
		handleError(c, err, "Failed to verify entry")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewVerifyEntryResponse(ticket)))
}

// ListLogs handles GET /parents/:kind/:id/entry-logs - lists check-ins, newest first
func (h *EntryHandler) ListLogs(c *gin.Context) {
	kind, err := domain.ParseParentKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Kind must be event or activity"))
		return
	}
	ref := domain.ParentRef{Kind: kind, ID: c.Param("id")}

	var filter dto.EntryLogListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid query parameters"))
		return
	}
	filter.SetDefaults()

	logs, total, err := h.query.ListEntryLogs(c.Request.Context(), callerFrom(c), ref, &filter)
	if err != nil {
		handleError(c, err, "Failed to list entry logs")
		return
	}

	c.JSON(http.StatusOK, response.Paginated(dto.NewEntryLogResponses(logs), filter.Page, filter.PerPage, total))
}
