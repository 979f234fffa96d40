package models

import "github.com/shopspring/decimal"

// StartingCash is the balance every new account receives.
var StartingCash = decimal.NewFromInt(10000)

type User struct {
	ID           uint            `gorm:"primaryKey"`
	Username     string          `gorm:"uniqueIndex;not null"`
	Hash         string          `gorm:"column:hash;not null"`
	Cash         decimal.Decimal `gorm:"type:numeric(14,2);not null;default:10000.00"`
	Transactions []Transaction   `gorm:"constraint:OnDelete:CASCADE"`
}
