package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DestinationType: Restock edilen stoğun hangi deftere gireceğini belirler
type DestinationType string

const (
	DestinationProduct     DestinationType = "product"      // satışa hazır ürün stoğu
	DestinationRawMaterial DestinationType = "raw_material" // üretim için hammadde stoğu
)

type RestockStatus string

const (
	RestockStatusPending  RestockStatus = "pending"
	RestockStatusVerified RestockStatus = "verified"
	RestockStatusRejected RestockStatus = "rejected"
)

// RestockOrder: Tenant'ın pazaryerinden verdiği stok yenileme siparişi.
// Admin onayladığında (verified) hedef entity'nin stoğu artırılır.
type RestockOrder struct {
	ID                uint `gorm:"primaryKey"`
	TenantID          uint `gorm:"index;not null"`
	Tenant            Tenant
	MarketplaceItemID uint `gorm:"index;not null"`
	MarketplaceItem   MarketplaceItem

	DestinationType DestinationType `gorm:"size:20;not null"`
	// Onayda stoğu artırılacak hedef (DestinationType'a göre Product veya RawMaterial ID)
	TargetID uint `gorm:"index;not null"`

	Quantity    decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Notes       string          `gorm:"size:255"`

	Status     RestockStatus `gorm:"size:20;not null;default:'pending';index"`
	VerifiedBy *uint
	VerifiedAt *time.Time
	AdminNotes string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
