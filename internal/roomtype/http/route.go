package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the catalogue. optionalAuth identifies staff when a
// token is present without rejecting guests.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware, optionalAuth gin.HandlerFunc) {
	public := g.Group("/room-types", optionalAuth)
	{
		public.GET("", h.List)
		public.GET("/:id", h.Get)
		public.GET("/:id/photo", h.ServePhoto)
		public.GET("/:id/photo/thumbnail", h.ServeThumbnail)
	}

	staff := g.Group("/room-types", authMiddleware)
	{
		staff.POST("", h.Create)
		staff.PATCH("/:id", h.Update)
		staff.DELETE("/:id", h.Delete)
		staff.PUT("/:id/photo", h.UploadPhoto)
		staff.GET("/:id/units", h.ListUnits)
		staff.POST("/:id/units", h.CreateUnit)
	}

	units := g.Group("/room-units", authMiddleware)
	{
		units.PATCH("/:id", h.UpdateUnit)
		units.DELETE("/:id", h.DeleteUnit)
	}
}
