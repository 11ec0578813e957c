package handlers

import (
	"embed"
	"html/template"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"usd":      usd,
		"datetime": datetime,
	}).ParseFS(templateFS, "templates/*.html")
}

// usd formats an amount in dollars, e.g. $1,234.56.
func usd(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

func datetime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
