package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"stocks-simulator/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// ErrorRenderer writes an error response for the request.
type ErrorRenderer func(c *gin.Context, err error)

// RequestLogger tags every request with an id and logs it once it
// completes.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rqID := c.GetHeader(RequestIDHeader)
		if rqID == "" {
			rqID = uuid.NewString()
		}
		c.Set("rqID", rqID)
		c.Header(RequestIDHeader, rqID)

		c.Next()

		l := log.With(
			logger.StringField("rqID", rqID),
			logger.StringField("method", c.Request.Method),
			logger.StringField("path", c.Request.URL.Path),
			logger.Field("status", c.Writer.Status()),
			logger.Field("latency", time.Since(start)),
			logger.StringField("client_ip", c.ClientIP()),
		)
		if id, ok := CurrentUserID(c); ok {
			l = l.With(logger.UintField("user_id", id))
		}
		if len(c.Errors) > 0 {
			l.Error("request failed", logger.StringField("errors", c.Errors.String()))
			return
		}
		l.Info("request handled")
	}
}

// Recovery turns a panic into an error response instead of a dropped
// connection.
func Recovery(log *logger.Logger, render ErrorRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				log.Error("recovered from panic",
					logger.StringField("rqID", c.GetString("rqID")),
					logger.ErrorField(err),
					logger.StringField("stack", string(debug.Stack())))
				render(c, err)
				c.Abort()
			}
		}()
		c.Next()
	}
}

// NoCache stops browsers and proxies from caching any response.
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Expires", "0")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
