package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale: Kasadan geçen satış fişi
type Sale struct {
	ID            uint `gorm:"primaryKey"`
	TenantID      uint `gorm:"index;not null"`
	Tenant        Tenant
	ReceiptNumber string          `gorm:"size:50;uniqueIndex;not null"` // RC-YYYYMMDD-XXXXXXXX
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	PaymentMethod string          `gorm:"size:20;not null;default:'cash'"` // cash / card
	UserID        uint            `gorm:"index;not null"`
	Notes         string          `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

type SaleItem struct {
	ID         uint `gorm:"primaryKey"`
	SaleID     uint `gorm:"index;not null"`
	ProductID  uint `gorm:"index;not null"`
	Product    Product
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt  time.Time
}
