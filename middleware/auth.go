package middleware

import (
	"errors"
	"net/http"

	"stocks-simulator/logger"
	"stocks-simulator/session"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// LoadSession resolves the session cookie, when present, and records the
// user id on both the gin context and the request context.
func LoadSession(sessions *session.Manager, cookieName string, log *logger.Logger, render ErrorRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}

		userID, err := sessions.Resolve(c.Request.Context(), token)
		if errors.Is(err, session.ErrNoSession) {
			c.Next()
			return
		}
		if err != nil {
			log.Error("failed to resolve session", logger.StringField("rqID", c.GetString("rqID")), logger.ErrorField(err))
			render(c, err)
			c.Abort()
			return
		}

		c.Set(userIDKey, userID)
		c.Request = c.Request.WithContext(session.WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// RequireLogin sends anonymous visitors to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user of the request.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// ForgetUser drops the authenticated user from the rest of the request.
func ForgetUser(c *gin.Context) {
	c.Set(userIDKey, nil)
	c.Request = c.Request.WithContext(session.WithoutUser(c.Request.Context()))
}
