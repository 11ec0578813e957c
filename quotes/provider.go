// Package quotes looks up current stock prices from an external source.
package quotes

import (
	"context"
	"errors"
	"strings"

	"stocks-simulator/models"
)

// ErrNotFound is returned when the source does not know the symbol.
var ErrNotFound = errors.New("symbol not found")

// Provider resolves a ticker symbol to its current quote.
type Provider interface {
	Lookup(ctx context.Context, symbol string) (models.Quote, error)
}

// Normalize trims and upper-cases a ticker symbol.
func Normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
