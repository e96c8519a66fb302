package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// EntityKind: Stok taşıyan iki entity türü
type EntityKind string

const (
	KindProduct     EntityKind = "product"
	KindRawMaterial EntityKind = "raw_material"
)

func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(s) {
	case KindProduct, KindRawMaterial:
		return EntityKind(s), nil
	}
	return "", &InvalidItemTypeError{Value: s}
}

// Validasyon hataları mutasyondan ÖNCE tespit edilir ve yapısal bilgiyle döner.
// Handler katmanı bunları HTTP status + mesaja çevirir.

type NotFoundError struct {
	Kind EntityKind
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s bulunamadı veya pasif (id=%d)", e.Kind, e.ID)
}

type TenantMismatchError struct {
	Kind     EntityKind
	ID       uint
	TenantID uint
}

func (e *TenantMismatchError) Error() string {
	return fmt.Sprintf("%s (id=%d) bu tenant'a ait değil (tenant=%d)", e.Kind, e.ID, e.TenantID)
}

type UnitMismatchError struct {
	RawMaterialID uint
	Expected      string // hammaddenin birimi
	Got           string // reçete satırında gelen birim
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("birim uyuşmazlığı (hammadde id=%d): beklenen %q, gelen %q", e.RawMaterialID, e.Expected, e.Got)
}

var ErrEmptyRecipe = errors.New("reçete en az bir hammadde içermeli")

type DuplicateIngredientError struct {
	RawMaterialID uint
}

func (e *DuplicateIngredientError) Error() string {
	return fmt.Sprintf("hammadde reçetede birden fazla kez geçiyor (id=%d)", e.RawMaterialID)
}

type InvalidQuantityError struct {
	RawMaterialID uint
	Quantity      decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	if e.RawMaterialID != 0 {
		return fmt.Sprintf("miktar 0'dan büyük olmalı (hammadde id=%d, miktar=%s)", e.RawMaterialID, e.Quantity)
	}
	return fmt.Sprintf("miktar 0'dan büyük olmalı (miktar=%s)", e.Quantity)
}

type UnknownMaterialError struct {
	RawMaterialID uint
}

func (e *UnknownMaterialError) Error() string {
	return fmt.Sprintf("hammadde bulunamadı veya pasif (id=%d)", e.RawMaterialID)
}

// InsufficientStockError: Ürünün (veya hammaddenin) kendi stoğu yetersiz.
// allow_insufficient_bom bu hatayı ASLA bastırmaz; sadece reçete eksiklerini kapsar.
type InsufficientStockError struct {
	Kind      EntityKind
	ID        uint
	Name      string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("yetersiz stok: %s için %s istendi, %s var", e.Name, e.Requested, e.Available)
}

// IngredientAvailability: Uygunluk kontrolünde HER hammadde için raporlanan satır
// (sadece yetersiz olanlar değil).
type IngredientAvailability struct {
	RawMaterialID   uint            `json:"raw_material_id"`
	RawMaterialName string          `json:"raw_material_name"`
	Unit            string          `json:"unit"`
	Required        decimal.Decimal `json:"required"`
	Available       decimal.Decimal `json:"available"`
	Sufficient      bool            `json:"sufficient"`
	Shortage        decimal.Decimal `json:"shortage"` // max(0, required-available)
}

// InsufficientMaterialsError: Reçete hammaddeleri yetersiz. Eksik dökümünü taşır.
// allow_insufficient_bom=true ile çağrılırsa hataya değil uyarıya dönüşür.
type InsufficientMaterialsError struct {
	ProductID    uint
	ProductName  string
	Availability []IngredientAvailability
}

func (e *InsufficientMaterialsError) Error() string {
	n := 0
	for _, a := range e.Availability {
		if !a.Sufficient {
			n++
		}
	}
	return fmt.Sprintf("yetersiz hammadde: %s için %d kalem eksik", e.ProductName, n)
}

type InvalidItemTypeError struct {
	Value string
}

func (e *InvalidItemTypeError) Error() string {
	return fmt.Sprintf("item_type 'product' veya 'raw_material' olmalı (gelen: %q)", e.Value)
}

// ErrConcurrencyConflict: Atomik delta uygulaması sınırlı sayıda tekrar denendikten
// sonra hâlâ çakışıyorsa döner. İstek kapsamlıdır, süreci öldürmez.
var ErrConcurrencyConflict = errors.New("eşzamanlı stok güncellemesi çakıştı, lütfen tekrar deneyin")

// ErrStockTrackingDisabled: requires_stock_tracking=false olan ürünün stoğu
// okunmaz da yazılmaz da.
var ErrStockTrackingDisabled = errors.New("bu ürün için stok takibi kapalı")
