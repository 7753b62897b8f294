package http

import (
	"time"

	"github.com/kystlys/stay-engine/internal/staff"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CreateStaffRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

type StaffResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	DisplayName *string    `json:"display_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	Staff       StaffResponse `json:"staff"`
}

func NewStaffResponse(m *staff.Member) StaffResponse {
	return StaffResponse{
		ID:          m.ID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		IsActive:    m.IsActive,
		LastLoginAt: m.LastLoginAt,
		CreatedAt:   m.CreatedAt,
	}
}
