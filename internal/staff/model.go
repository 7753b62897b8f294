package staff

import (
	"net/http"
	"time"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "staff member not found")
	ErrEmailAlreadyUsed   = apperror.New(http.StatusConflict, "email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactive           = apperror.New(http.StatusForbidden, "staff account is inactive")
	ErrEmailRequired      = apperror.New(http.StatusBadRequest, "email is required")
	ErrPasswordTooShort   = apperror.New(http.StatusBadRequest, "password is too short")
)

// Member is a front-desk or management account. Guests never log in.
type Member struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  *string
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
}
