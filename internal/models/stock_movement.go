package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementReason string

const (
	MovementReasonSale       MovementReason = "sale"
	MovementReasonRestock    MovementReason = "restock"
	MovementReasonAdjustment MovementReason = "adjustment"
	MovementReasonCorrection MovementReason = "correction"
)

// StockMovement: Stok defteri günlüğü. Her delta için bir satır, asla güncellenmez;
// düzeltmeler ters yönlü yeni hareketle yapılır.
type StockMovement struct {
	ID       uint `gorm:"primaryKey"`
	TenantID uint `gorm:"index;not null"`

	// "product" veya "raw_material"
	EntityKind string `gorm:"size:20;index;not null"`
	EntityID   uint   `gorm:"index;not null"`

	Delta       decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	NewQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null"` // hareket sonrası bakiye

	Reason MovementReason `gorm:"size:20;not null"`
	// İlgili satış/restock kaydının ID'si (varsa)
	ReferenceID *uint  `gorm:"index"`
	Note        string `gorm:"size:255"`

	CreatedAt time.Time
}
