package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kystlys/stay-engine/internal/inventory"
	"github.com/kystlys/stay-engine/internal/pkg/dates"
	"github.com/kystlys/stay-engine/internal/pkg/response"
)

type Handler struct {
	service *inventory.QueryService
}

func NewHandler(service *inventory.QueryService) *Handler {
	return &Handler{service: service}
}

// Availability renders remaining capacity and price per room type for every
// night in [from, to).
func (h *Handler) Availability(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}
	from, err := dates.ParseDay(q.From)
	if err != nil {
		response.BadRequest(c, "invalid from date", err)
		return
	}
	to, err := dates.ParseDay(q.To)
	if err != nil {
		response.BadRequest(c, "invalid to date", err)
		return
	}

	rooms, err := h.service.Availability(c.Request.Context(), inventory.Query{
		From:       from,
		To:         to,
		RoomTypeID: q.RoomTypeID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RoomResponse, len(rooms))
	for i, r := range rooms {
		items[i] = NewRoomResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"from": q.From, "to": q.To, "rooms": items})
}
