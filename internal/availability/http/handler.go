package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kystlys/stay-engine/internal/availability"
	"github.com/kystlys/stay-engine/internal/pkg/request"
	"github.com/kystlys/stay-engine/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListOverrides(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	overrides, err := h.service.ListOverrides(c.Request.Context(), availability.ListRequest{
		RoomTypeID: uri.ID,
		From:       q.From,
		To:         q.To,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]OverrideResponse, len(overrides))
	for i, o := range overrides {
		items[i] = NewOverrideResponse(o)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) UpsertOverrides(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	var body UpsertOverrideBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	overrides, err := h.service.UpsertOverrides(c.Request.Context(), availability.UpsertOverrideRequest{
		RoomTypeID: uri.ID,
		From:       body.From,
		To:         body.To,
		OpenUnits:  body.OpenUnits,
		Available:  body.Available,
		Price:      body.Price,
		MinStay:    body.MinStay,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]OverrideResponse, len(overrides))
	for i, o := range overrides {
		items[i] = NewOverrideResponse(o)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) DeleteOverride(c *gin.Context) {
	var uri dateURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid path parameters", err)
		return
	}
	if err := h.service.DeleteOverride(c.Request.Context(), uri.ID, uri.Date); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListDatePrices(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	prices, err := h.service.ListDatePrices(c.Request.Context(), availability.ListRequest{
		RoomTypeID: uri.ID,
		From:       q.From,
		To:         q.To,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]DatePriceResponse, len(prices))
	for i, p := range prices {
		items[i] = NewDatePriceResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) UpsertDatePrices(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid room type id", err)
		return
	}
	var body UpsertPriceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	prices, err := h.service.UpsertDatePrices(c.Request.Context(), availability.UpsertPriceRequest{
		RoomTypeID: uri.ID,
		From:       body.From,
		To:         body.To,
		Price:      body.Price,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]DatePriceResponse, len(prices))
	for i, p := range prices {
		items[i] = NewDatePriceResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) DeleteDatePrice(c *gin.Context) {
	var uri dateURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid path parameters", err)
		return
	}
	if err := h.service.DeleteDatePrice(c.Request.Context(), uri.ID, uri.Date); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
