// Package quotestest provides an in-memory quote provider for tests.
package quotestest

import (
	"context"
	"sync"

	"stocks-simulator/models"
	"stocks-simulator/quotes"

	"github.com/shopspring/decimal"
)

// Provider serves fixed prices and counts lookups.
type Provider struct {
	mu     sync.Mutex
	quotes map[string]models.Quote
	Calls  int
	Err    error
}

func New() *Provider {
	return &Provider{quotes: map[string]models.Quote{}}
}

// SetPrice registers or changes the price of symbol.
func (p *Provider) SetPrice(symbol, name string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	symbol = quotes.Normalize(symbol)
	p.quotes[symbol] = models.Quote{Symbol: symbol, Name: name, Price: decimal.NewFromFloat(price)}
}

func (p *Provider) Lookup(_ context.Context, symbol string) (models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	if p.Err != nil {
		return models.Quote{}, p.Err
	}
	q, ok := p.quotes[quotes.Normalize(symbol)]
	if !ok {
		return models.Quote{}, quotes.ErrNotFound
	}
	return q, nil
}
