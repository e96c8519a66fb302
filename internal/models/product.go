package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID       uint `gorm:"primaryKey"`
	TenantID uint `gorm:"index;not null"`
	Tenant   Tenant
	Name     string          `gorm:"size:200;not null"`
	SKU      string          `gorm:"size:100;index"` // Stok kodu (opsiyonel)
	Unit     string          `gorm:"size:20;not null"` // adet, koli vs.
	Price    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"` // satış fiyatı

	StockQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null;default:0"`
	StockAlert    decimal.Decimal `gorm:"type:decimal(20,6);not null;default:10"`

	// false ise ürünün kendi stoğu hiç okunmaz/yazılmaz/raporlanmaz
	RequiresStockTracking bool `gorm:"not null;default:true"`
	// Aktif reçetesi var mı? Reçete kaydı/iptali ile senkron tutulur
	HasBOM bool `gorm:"column:has_bom;not null;default:false"`

	IsActive  bool `gorm:"not null;default:true"` // soft-delete
	CreatedAt time.Time
	UpdatedAt time.Time
}
