package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"stocks-simulator/apperror"
	"stocks-simulator/report"
	"stocks-simulator/trading"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type tradeForm struct {
	Symbol string `form:"symbol" binding:"required"`
	Shares string `form:"shares" binding:"required"`
}

type cashForm struct {
	CashAmount string `form:"cashAmount" binding:"required"`
}

// bindTrade validates a buy or sell form into a TradeInput.
func bindTrade(c *gin.Context, verb string) (trading.TradeInput, error) {
	var form tradeForm
	err := bindForm(c, &form, map[string]string{
		"Symbol": "must provide symbol",
		"Shares": "must input shares to " + verb,
	})
	if err != nil {
		return trading.TradeInput{}, err
	}

	shares, err := strconv.ParseInt(strings.TrimSpace(form.Shares), 10, 64)
	if err != nil || shares <= 0 {
		return trading.TradeInput{}, apperror.Validation("shares must be a positive integer")
	}
	return trading.TradeInput{Symbol: form.Symbol, Shares: shares}, nil
}

// Index shows the user's holdings, cash and net worth.
func (h *Handler) Index(c *gin.Context) {
	p, err := h.trading.Portfolio(c.Request.Context(), currentUser(c))
	if err != nil {
		h.Apology(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{"Portfolio": p})
}

func (h *Handler) BuyPage(c *gin.Context) {
	h.render(c, http.StatusOK, "buy.html", nil)
}

func (h *Handler) Buy(c *gin.Context) {
	in, err := bindTrade(c, "buy")
	if err != nil {
		h.Apology(c, err)
		return
	}
	if _, err := h.trading.Buy(c.Request.Context(), currentUser(c), in); err != nil {
		h.Apology(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) SellPage(c *gin.Context) {
	h.render(c, http.StatusOK, "sell.html", nil)
}

func (h *Handler) Sell(c *gin.Context) {
	in, err := bindTrade(c, "sell")
	if err != nil {
		h.Apology(c, err)
		return
	}
	if _, err := h.trading.Sell(c.Request.Context(), currentUser(c), in); err != nil {
		h.Apology(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) AddCashPage(c *gin.Context) {
	h.render(c, http.StatusOK, "addcash.html", nil)
}

func (h *Handler) AddCash(c *gin.Context) {
	var form cashForm
	if err := bindForm(c, &form, map[string]string{"CashAmount": "Please input cash amount"}); err != nil {
		h.Apology(c, err)
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(form.CashAmount))
	if err != nil {
		h.Apology(c, apperror.Validation("cash amount must be a number"))
		return
	}

	if _, err := h.trading.AddCash(c.Request.Context(), currentUser(c), amount); err != nil {
		h.Apology(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) History(c *gin.Context) {
	txns, err := h.trading.History(c.Request.Context(), currentUser(c))
	if err != nil {
		h.Apology(c, err)
		return
	}
	h.render(c, http.StatusOK, "history.html", gin.H{"Transactions": txns})
}

// ExportHistory downloads the history as an Excel workbook.
func (h *Handler) ExportHistory(c *gin.Context) {
	txns, err := h.trading.History(c.Request.Context(), currentUser(c))
	if err != nil {
		h.Apology(c, err)
		return
	}
	raw, err := report.HistoryXLSX(txns)
	if err != nil {
		h.Apology(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="history.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", raw)
}
