package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    apperror.Kind  `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it logs the error and returns 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message, Kind: appErr.Kind, Details: appErr.Details})
		return
	}

	loggerFrom(c).Error("unhandled error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Kind: apperror.KindInternal})
}

// BadRequest sends a 400 with the binding error as details.
func BadRequest(c *gin.Context, message string, err error) {
	resp := ErrorResponse{Error: message, Kind: apperror.KindValidation}
	if err != nil {
		resp.Details = map[string]any{"reason": err.Error()}
	}
	c.JSON(http.StatusBadRequest, resp)
}

// LoggerKey is the gin context key under which the request logger is stored.
const LoggerKey = "logger"

func loggerFrom(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(LoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.L()
}
