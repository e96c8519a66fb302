package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMaterial: Reçeteli satışlarda tüketilen hammadde (Product tablosundan bağımsız)
type RawMaterial struct {
	ID       uint `gorm:"primaryKey"`
	TenantID uint `gorm:"index;not null"`
	Tenant   Tenant
	Name     string `gorm:"size:200;not null"`
	SKU      string `gorm:"size:100;index"`
	Unit     string `gorm:"size:20;not null"` // kg, lt, adet vs.

	CostPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	StockAlert    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:10"`

	IsActive  bool `gorm:"not null;default:true"` // soft-delete
	CreatedAt time.Time
	UpdatedAt time.Time
}
