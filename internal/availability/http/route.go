package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/room-types/:id")

	// === Staff Routes ===
	group.Use(authMiddleware)
	{
		group.GET("/overrides", h.ListOverrides)
		group.PUT("/overrides", h.UpsertOverrides)
		group.DELETE("/overrides/:date", h.DeleteOverride)

		group.GET("/prices", h.ListDatePrices)
		group.PUT("/prices", h.UpsertDatePrices)
		group.DELETE("/prices/:date", h.DeleteDatePrice)
	}
}
