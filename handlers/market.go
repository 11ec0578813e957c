package handlers

import (
	"net/http"

	"stocks-simulator/trading"

	"github.com/gin-gonic/gin"
)

type quoteForm struct {
	Symbol string `form:"symbol" binding:"required"`
}

func (h *Handler) QuotePage(c *gin.Context) {
	h.render(c, http.StatusOK, "quote.html", nil)
}

// Quote looks up a symbol and shows its name and price.
func (h *Handler) Quote(c *gin.Context) {
	var form quoteForm
	if err := bindForm(c, &form, map[string]string{"Symbol": trading.ErrMissingSymbol.Message}); err != nil {
		h.Apology(c, err)
		return
	}

	q, err := h.trading.Quote(c.Request.Context(), form.Symbol)
	if err != nil {
		h.Apology(c, err)
		return
	}
	h.render(c, http.StatusOK, "quoted.html", gin.H{"Quote": q})
}
