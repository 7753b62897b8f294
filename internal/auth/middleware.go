package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
	"github.com/kystlys/stay-engine/internal/pkg/response"
)

var (
	errMissingHeader = apperror.New(http.StatusUnauthorized, "missing Authorization header")
	errBadHeader     = apperror.New(http.StatusUnauthorized, "invalid Authorization header format")
	errBadToken      = apperror.New(http.StatusUnauthorized, "invalid or expired token")
)

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errBadHeader
	}
	return parts[1], nil
}

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := bearerToken(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := jwtManager.ParseAndValidate(tokenStr)
		if err != nil {
			response.Error(c, errBadToken)
			c.Abort()
			return
		}

		c.Set(staffIDKey, claims.StaffID)
		c.Set(staffEmailKey, claims.Email)
		c.Next()
	}
}

// OptionalAuth identifies staff when a valid token is sent and lets every
// other request through as a guest.
func OptionalAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, err := bearerToken(c); err == nil {
			if claims, err := jwtManager.ParseAndValidate(tokenStr); err == nil {
				c.Set(staffIDKey, claims.StaffID)
				c.Set(staffEmailKey, claims.Email)
			}
		}
		c.Next()
	}
}
