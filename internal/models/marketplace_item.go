package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketplaceItem: Platformun (super admin) sattığı katalog ürünü.
// Tenant'lar buradan restock siparişi verir.
type MarketplaceItem struct {
	ID          uint            `gorm:"primaryKey"`
	Name        string          `gorm:"size:200;not null"`
	Description string          `gorm:"size:500"`
	SKU         string          `gorm:"size:100;index"`
	Unit        string          `gorm:"size:20;not null"`
	Price       decimal.Decimal `gorm:"type:decimal(20,4);not null"` // birim satış fiyatı
	Stock       decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	IsActive    bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
