package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// Transaction is one executed trade. Shares is signed: positive for a
// buy, negative for a sell. Rows are never updated or deleted.
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	User          *User           `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Symbol        string          `gorm:"size:16;not null;index" json:"symbol"`
	Shares        int64           `gorm:"not null" json:"shares"`
	Time          time.Time       `gorm:"not null" json:"time"`
	Type          TransactionType `gorm:"size:4;not null" json:"type"`
	PurchasePrice decimal.Decimal `gorm:"type:numeric(19,4);not null" json:"purchase_price"`
}

// Holding is the net share count a user owns of a symbol, derived from
// the transaction log.
type Holding struct {
	Symbol string `json:"symbol"`
	Shares int64  `json:"shares"`
}
