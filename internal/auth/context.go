package auth

import "github.com/gin-gonic/gin"

const (
	staffIDKey    = "staffID"
	staffEmailKey = "staffEmail"
)

// GetStaffID returns the authenticated staff member's ID or empty string.
func GetStaffID(c *gin.Context) string {
	return c.GetString(staffIDKey)
}

// GetStaffEmail returns the authenticated staff member's email or empty string.
func GetStaffEmail(c *gin.Context) string {
	return c.GetString(staffEmailKey)
}
