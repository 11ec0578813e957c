package handlers

import (
	"errors"

	"stocks-simulator/apperror"
	"stocks-simulator/logger"
	"stocks-simulator/middleware"
	"stocks-simulator/session"
	"stocks-simulator/trading"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Handler serves the web pages of the simulator.
type Handler struct {
	trading  trading.Service
	sessions *session.Manager
	cookie   CookieConfig
	log      *logger.Logger
}

func New(svc trading.Service, sessions *session.Manager, cookie CookieConfig, log *logger.Logger) *Handler {
	return &Handler{trading: svc, sessions: sessions, cookie: cookie, log: log}
}

// Router builds the gin engine with every route and middleware installed.
// loginLimiter guards the credential endpoints; nil disables it.
func (h *Handler) Router(loginLimiter *middleware.RateLimiter) (*gin.Engine, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(
		middleware.RequestLogger(h.log),
		middleware.Recovery(h.log, h.Apology),
		middleware.NoCache(),
		middleware.LoadSession(h.sessions, h.cookie.Name, h.log, h.Apology),
	)
	r.NoRoute(func(c *gin.Context) {
		h.Apology(c, apperror.NotFound("page not found"))
	})

	limit := func(c *gin.Context) { c.Next() }
	if loginLimiter != nil {
		limit = loginLimiter.Middleware(h.Apology)
	}

	r.GET("/login", h.LoginPage)
	r.POST("/login", limit, h.Login)
	r.GET("/logout", h.Logout)
	r.GET("/register", h.RegisterPage)
	r.POST("/register", limit, h.Register)
	r.GET("/check", h.Check)

	auth := r.Group("/")
	auth.Use(middleware.RequireLogin())
	{
		auth.GET("/", h.Index)
		auth.GET("/buy", h.BuyPage)
		auth.POST("/buy", h.Buy)
		auth.GET("/sell", h.SellPage)
		auth.POST("/sell", h.Sell)
		auth.GET("/addcash", h.AddCashPage)
		auth.POST("/addcash", h.AddCash)
		auth.GET("/quote", h.QuotePage)
		auth.POST("/quote", h.Quote)
		auth.GET("/history", h.History)
		auth.GET("/history/export", h.ExportHistory)
	}

	return r, nil
}

// Apology renders an error page. Errors that are not user-facing are
// logged and shown as a generic server error.
func (h *Handler) Apology(c *gin.Context, err error) {
	msg, status := apperror.Resolve(err)
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		h.log.Error("request failed",
			logger.StringField("rqID", c.GetString("rqID")),
			logger.StringField("path", c.Request.URL.Path),
			logger.ErrorField(err))
	}
	h.render(c, status, "apology.html", gin.H{"Message": msg, "Code": status})
}

func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	_, data["LoggedIn"] = middleware.CurrentUserID(c)
	c.HTML(status, name, data)
}

func currentUser(c *gin.Context) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}

// bindForm binds the request form into dst. A missing required field is
// reported with the message registered for it in messages.
func bindForm(c *gin.Context, dst interface{}, messages map[string]string) error {
	err := c.ShouldBind(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if msg, ok := messages[fe.Field()]; ok {
				return apperror.Validation(msg)
			}
		}
	}
	return apperror.Validation("invalid form")
}
