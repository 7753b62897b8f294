package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kystlys/stay-engine/internal/booking"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/pkg/request"
	"github.com/kystlys/stay-engine/internal/pkg/response"
)

// IdempotencyHeader lets clients retry a reservation safely.
const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	filter, err := req.Filter()
	if err != nil {
		response.BadRequest(c, "invalid stay range", err)
		return
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Create is the guest-facing reservation endpoint.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	checkIn, err := dates.ParseDay(body.CheckIn)
	if err != nil {
		response.BadRequest(c, "invalid check_in date", err)
		return
	}
	checkOut, err := dates.ParseDay(body.CheckOut)
	if err != nil {
		response.BadRequest(c, "invalid check_out date", err)
		return
	}

	res, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		RoomTypeID:     body.RoomTypeID,
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Guests:         body.Guests,
		GuestName:      body.GuestName,
		GuestEmail:     body.GuestEmail,
		GuestPhone:     body.GuestPhone,
		Source:         body.Source,
		Notes:          body.Notes,
		IdempotencyKey: c.GetHeader(IdempotencyHeader),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, CreateBookingResponse{
		Booking:     NewBookingResponse(res.Booking),
		SideEffects: res.SideEffects,
		Replayed:    res.Replayed,
	})
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}
	var body UpdateBookingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	b, err := h.service.Update(c.Request.Context(), uri.ID, body.Patch())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Transition(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}
	var body TransitionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	res, err := h.service.Transition(c.Request.Context(), uri.ID, booking.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, TransitionResponse{
		Booking:     NewBookingResponse(res.Booking),
		Changed:     res.Changed,
		SideEffects: res.SideEffects,
	})
}
