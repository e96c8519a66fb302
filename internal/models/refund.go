package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusCompleted RefundStatus = "completed"
	RefundStatusCancelled RefundStatus = "cancelled"
)

// Refund: Satışın tamamı veya bir kısmı için iade fişi. Açıldığında pending
// bekler; tamamlandığında stok, satışın tersini yazan düzeltme hareketleriyle
// geri verilir. Pending iade de kalem hakkını bloke eder.
type Refund struct {
	ID           uint `gorm:"primaryKey"`
	TenantID     uint `gorm:"index;not null"`
	Tenant       Tenant
	RefundNumber string `gorm:"size:50;uniqueIndex;not null"` // RF-YYYYMMDD-XXXXXXXX
	SaleID       uint   `gorm:"index;not null"`
	Sale         Sale
	RefundAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Reason       string          `gorm:"size:255"`
	Notes        string          `gorm:"size:255"`

	Status RefundStatus `gorm:"size:20;not null;default:'pending';index"`
	// İadeyi açan kasiyer
	UserID      uint `gorm:"index;not null"`
	ProcessedBy *uint
	ProcessedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []RefundItem `gorm:"foreignKey:RefundID;constraint:OnDelete:CASCADE"`
}

type RefundItem struct {
	ID         uint `gorm:"primaryKey"`
	RefundID   uint `gorm:"index;not null"`
	SaleItemID uint `gorm:"index;not null"`
	SaleItem   SaleItem
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt  time.Time
}
