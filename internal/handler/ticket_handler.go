package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/service"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/response"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/telemetry"
)

// TicketHandler handles ticket-related HTTP requests
type TicketHandler struct {
	issuer service.IssuerService
	query  service.TicketQueryService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(issuer service.IssuerService, query service.TicketQueryService) *TicketHandler {
	return &TicketHandler{
		issuer: issuer,
		query:  query,
	}
}

// CreateForBooking handles POST /bookings/:bookingId/tickets - issues the tickets of a confirmed booking
func (h *TicketHandler) CreateForBooking(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.create_for_booking")
	defer span.End()

	bookingID := c.Param("bookingId")
	if bookingID == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Booking ID is required"))
		return
	}

	var req dto.CreateTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}
	req.BookingID = bookingID

	result, err := h.issuer.CreateTicketsForBooking(ctx, &req)
	if err != nil {
		telemetry.RecordError(span, err, "issuance failed")
		handleError(c, err, "Failed to create tickets")
		return
	}

	status := http.StatusCreated
	if result.AlreadyIssued {
		status = http.StatusOK
	}
	c.JSON(status, response.Success(&dto.CreateTicketsResponse{
		BookingID:     bookingID,
		TicketIDs:     result.TicketIDs(),
		Tickets:       dto.NewTicketResponses(result.Tickets),
		AlreadyIssued: result.AlreadyIssued,
	}))
}

// ListMine handles GET /me/tickets - lists the caller's tickets
func (h *TicketHandler) ListMine(c *gin.Context) {
	caller := callerFrom(c)
	if caller.UserID == "" {
		c.JSON(http.StatusUnauthorized, response.Unauthorized("User not authenticated"))
		return
	}

	tickets, err := h.query.ListUserTickets(c.Request.Context(), caller.UserID)
	if err != nil {
		handleError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewTicketResponses(tickets)))
}

// Get handles GET /tickets/:id - retrieves a ticket
func (h *TicketHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("ID is required"))
		return
	}

	ticket, err := h.query.GetTicket(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleError(c, err, "Failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewTicketResponse(ticket)))
}

// GetByNumber handles GET /tickets/number/:ticketNumber - retrieves a ticket by its printed number
func (h *TicketHandler) GetByNumber(c *gin.Context) {
	number := c.Param("ticketNumber")
	if number == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("Ticket number is required"))
		return
	}

	ticket, err := h.query.GetTicketByNumber(c.Request.Context(), callerFrom(c), number)
	if err != nil {
		handleError(c, err, "Failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewTicketResponse(ticket)))
}

// QR handles GET /tickets/:id/qr - renders the ticket's QR code as PNG
func (h *TicketHandler) QR(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("ID is required"))
		return
	}

	png, err := h.query.RenderQR(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleError(c, err, "Failed to render QR code")
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}

// Cancel handles POST /tickets/:id/cancel - cancels an active ticket
func (h *TicketHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, response.BadRequest("ID is required"))
		return
	}

	ticket, err := h.query.CancelTicket(c.Request.Context(), callerFrom(c), id)
	if err != nil {
		handleError(c, err, "Failed to cancel ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.NewTicketResponse(ticket)))
}
