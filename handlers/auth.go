package handlers

import (
	"net/http"

	"stocks-simulator/apperror"
	"stocks-simulator/logger"
	"stocks-simulator/middleware"
	"stocks-simulator/trading"

	"github.com/gin-gonic/gin"
)

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

var loginMessages = map[string]string{
	"Username": "must provide username",
	"Password": "must provide password",
}

type registerForm struct {
	Username     string `form:"username" binding:"required"`
	Password     string `form:"password" binding:"required"`
	Confirmation string `form:"confirmation" binding:"required"`
}

var registerMessages = map[string]string{
	"Username":     "must provide username",
	"Password":     "must provide password",
	"Confirmation": "must confirm password",
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.endSession(c)
	h.render(c, http.StatusOK, "login.html", nil)
}

// Login verifies the credentials and opens a session.
func (h *Handler) Login(c *gin.Context) {
	h.endSession(c)

	var form loginForm
	if err := bindForm(c, &form, loginMessages); err != nil {
		h.Apology(c, err)
		return
	}

	user, err := h.trading.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.Apology(c, err)
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		h.Apology(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) Logout(c *gin.Context) {
	h.endSession(c)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", nil)
}

// Register creates the account and logs the new user in.
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := bindForm(c, &form, registerMessages); err != nil {
		h.Apology(c, err)
		return
	}

	user, err := h.trading.Register(c.Request.Context(), trading.RegisterInput{
		Username:     form.Username,
		Password:     form.Password,
		Confirmation: form.Confirmation,
	})
	if err != nil {
		h.Apology(c, err)
		return
	}

	if err := h.startSession(c, user.ID); err != nil {
		h.Apology(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// Check reports as JSON whether a username is already registered.
func (h *Handler) Check(c *gin.Context) {
	exists, err := h.trading.UsernameExists(c.Request.Context(), c.Query("username"))
	if err != nil {
		msg, status := apperror.Resolve(err)
		if status == http.StatusInternalServerError {
			h.log.Error("username check failed", logger.StringField("rqID", c.GetString("rqID")), logger.ErrorField(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, exists)
}

func (h *Handler) startSession(c *gin.Context, userID uint) error {
	token, err := h.sessions.Create(c.Request.Context(), userID)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, int(h.sessions.TTL().Seconds()), "/", "", h.cookie.Secure, true)
	return nil
}

func (h *Handler) endSession(c *gin.Context) {
	token, err := c.Cookie(h.cookie.Name)
	if err != nil {
		return
	}
	if err := h.sessions.Destroy(c.Request.Context(), token); err != nil {
		h.log.Warn("failed to destroy session", logger.StringField("rqID", c.GetString("rqID")), logger.ErrorField(err))
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	middleware.ForgetUser(c)
}
