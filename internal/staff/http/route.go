package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	g.POST("/auth/login", h.Login)
	g.GET("/me", authMiddleware, h.Me)
	g.POST("/staff", authMiddleware, h.Create)
}
