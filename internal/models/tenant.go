package models

import "time"

type Tenant struct {
	ID      uint   `gorm:"primaryKey"`
	Name    string `gorm:"size:100;not null;unique"`
	Address string `gorm:"size:255"`
	Phone   string `gorm:"size:50"` // Opsiyonel telefon

	// Reçete hammaddesi yetersizken satışa izin verilsin mi?
	// true ise eksi stok "bakiye" olarak kalır, sıfıra çekilmez.
	AllowInsufficientBOM bool `gorm:"not null;default:false"`

	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
