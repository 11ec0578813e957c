package models

import "github.com/shopspring/decimal"

// Quote is the latest known price of a symbol.
type Quote struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}
