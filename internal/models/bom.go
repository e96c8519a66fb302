package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOMHeader: Bir ürünün reçetesi (versiyonlu). Her kayıt yeni versiyon oluşturur,
// eski versiyonlar tarihçe için saklanır. Ürün başına en fazla bir aktif versiyon olur.
type BOMHeader struct {
	ID        uint `gorm:"primaryKey"`
	TenantID  uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Version   int    `gorm:"not null;default:1"` // ürün bazında monoton artar
	IsActive  bool   `gorm:"not null;default:true"`
	Notes     string `gorm:"size:500"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []BOMItem `gorm:"foreignKey:BOMHeaderID;constraint:OnDelete:CASCADE"`
}

// BOMItem: Reçetedeki her hammadde satırı.
// Quantity: 1 birim ürün için tüketilen hammadde miktarı.
type BOMItem struct {
	ID            uint `gorm:"primaryKey"`
	BOMHeaderID   uint `gorm:"index;not null"`
	RawMaterialID uint `gorm:"index;not null"`
	RawMaterial   RawMaterial
	Quantity      decimal.Decimal `gorm:"type:decimal(20,6);not null"`
	Unit          string          `gorm:"size:20;not null"` // hammaddenin birimi ile aynı olmalı
	Notes         string          `gorm:"size:255"`
	CreatedAt     time.Time
}
