package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one executed trade. Positive Shares is a buy, negative a sell.
// Rows are never updated or deleted.
type Transaction struct {
	ID     uint            `gorm:"primaryKey"`
	UserID uint            `gorm:"index;not null"`
	Symbol string          `gorm:"index;not null"`
	Shares int64           `gorm:"not null"`
	Price  decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	Time   time.Time       `gorm:"column:time;index;autoCreateTime"`
}

// Kind labels the trade for display.
func (t Transaction) Kind() string {
	if t.Shares < 0 {
		return "SELL"
	}
	return "BUY"
}

// Holding is a user's net position in one symbol, valued at a live quote.
type Holding struct {
	Symbol string
	Name   string
	Shares int64
	Price  decimal.Decimal
	Total  decimal.Decimal
}
