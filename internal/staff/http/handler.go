package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kystlys/stay-engine/internal/auth"
	"github.com/kystlys/stay-engine/internal/pkg/response"
	"github.com/kystlys/stay-engine/internal/staff"
)

type Handler struct {
	service    staff.Service
	jwtManager *auth.JWTManager
}

func NewHandler(service staff.Service, jwtManager *auth.JWTManager) *Handler {
	return &Handler{service: service, jwtManager: jwtManager}
}

// Login issues an access token.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	m, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(m.ID, m.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		Staff:       NewStaffResponse(m),
	})
}

func (h *Handler) Me(c *gin.Context) {
	m, err := h.service.GetByID(c.Request.Context(), auth.GetStaffID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": NewStaffResponse(m)})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	m, err := h.service.Create(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewStaffResponse(m))
}
