package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/auth"
	"github.com/kystlys/stay-engine/internal/pkg/apperror"
	"github.com/kystlys/stay-engine/internal/pkg/response"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger attaches a request-scoped logger to the context and logs
// one line per request once the handler chain has finished.
func RequestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		log := base.With(zap.String("request_id", reqID))
		c.Set(response.LoggerKey, log)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if staffID := auth.GetStaffID(c); staffID != "" {
			fields = append(fields, zap.String("staff_id", staffID))
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

var errPanic = apperror.New(http.StatusInternalServerError, "internal server error")

// Recovery turns a handler panic into a 500 and logs it with the request logger.
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log := base
		if v, ok := c.Get(response.LoggerKey); ok {
			if l, ok := v.(*zap.Logger); ok {
				log = l
			}
		}
		log.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.FullPath()))
		response.Error(c, errPanic)
		c.Abort()
	})
}
