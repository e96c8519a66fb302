package bom

import (
	"errors"

	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecipeItemInput: Reçete kaydında gelen tek hammadde satırı.
type RecipeItemInput struct {
	RawMaterialID uint            `json:"raw_material_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	Notes         string          `json:"notes"`
}

// SetRecipe: Ürünün reçetesini komple yeni bir versiyon olarak kaydeder.
// Eski aktif versiyon aynı transaction'da pasife çekilir, ürünün has_bom
// bayrağı set edilir. Tüm validasyonlar mutasyondan önce yapılır:
// boş liste, bilinmeyen/pasif hammadde, tenant uyuşmazlığı, birim
// uyuşmazlığı, mükerrer hammadde, sıfır/negatif miktar.
func SetRecipe(db *gorm.DB, tenantID, productID uint, items []RecipeItemInput, notes string) (*models.BOMHeader, error) {
	product, err := findProduct(db, tenantID, productID)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, domain.ErrEmptyRecipe
	}

	seen := make(map[uint]bool, len(items))
	resolved := make([]models.BOMItem, 0, len(items))
	for _, in := range items {
		if seen[in.RawMaterialID] {
			// Mükerrer hammadde toplanmaz, reddedilir
			return nil, &domain.DuplicateIngredientError{RawMaterialID: in.RawMaterialID}
		}
		seen[in.RawMaterialID] = true

		if !in.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{RawMaterialID: in.RawMaterialID, Quantity: in.Quantity}
		}

		var material models.RawMaterial
		err := db.Where("id = ? AND tenant_id = ? AND is_active = ?", in.RawMaterialID, tenantID, true).
			First(&material).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				var other int64
				db.Model(&models.RawMaterial{}).
					Where("id = ? AND tenant_id <> ?", in.RawMaterialID, tenantID).
					Count(&other)
				if other > 0 {
					return nil, &domain.TenantMismatchError{Kind: domain.KindRawMaterial, ID: in.RawMaterialID, TenantID: tenantID}
				}
				return nil, &domain.UnknownMaterialError{RawMaterialID: in.RawMaterialID}
			}
			return nil, err
		}

		unit := in.Unit
		if unit == "" {
			unit = material.Unit
		} else if unit != material.Unit {
			return nil, &domain.UnitMismatchError{RawMaterialID: material.ID, Expected: material.Unit, Got: unit}
		}

		resolved = append(resolved, models.BOMItem{
			RawMaterialID: material.ID,
			Quantity:      in.Quantity,
			Unit:          unit,
			Notes:         in.Notes,
		})
	}

	var header *models.BOMHeader
	err = db.Transaction(func(tx *gorm.DB) error {
		// Versiyon, önceki aktif versiyonun üstüne monoton artar.
		// Pasifleştirilmiş üründe yeniden kayıt, tarihçedeki en yüksek
		// versiyonun devamından gider.
		var maxVersion int
		row := tx.Model(&models.BOMHeader{}).
			Where("product_id = ?", productID).
			Select("COALESCE(MAX(version), 0)").
			Row()
		if err := row.Scan(&maxVersion); err != nil {
			return err
		}

		if err := tx.Model(&models.BOMHeader{}).
			Where("product_id = ? AND is_active = ?", productID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		h := models.BOMHeader{
			TenantID:  tenantID,
			ProductID: productID,
			Version:   maxVersion + 1,
			IsActive:  true,
			Notes:     notes,
			Items:     resolved,
		}
		if err := tx.Create(&h).Error; err != nil {
			return err
		}

		if !product.HasBOM {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", productID).
				Update("has_bom", true).Error; err != nil {
				return err
			}
		}

		header = &h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return header, nil
}

// GetActiveRecipe: Ürünün aktif reçetesini hammaddeleriyle birlikte döner.
// Reçete yoksa (nil, nil).
func GetActiveRecipe(db *gorm.DB, tenantID, productID uint) (*models.BOMHeader, error) {
	var header models.BOMHeader
	err := db.Preload("Items").Preload("Items.RawMaterial").
		Where("tenant_id = ? AND product_id = ? AND is_active = ?", tenantID, productID, true).
		First(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &header, nil
}

// DeactivateRecipe: Aktif reçeteyi pasife çeker ve has_bom'u sıfırlar.
// Tarihçe silinmez. Aktif reçete yoksa da bayrak sıfırlanır (idempotent).
func DeactivateRecipe(db *gorm.DB, tenantID, productID uint) error {
	if _, err := findProduct(db, tenantID, productID); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BOMHeader{}).
			Where("tenant_id = ? AND product_id = ? AND is_active = ?", tenantID, productID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", productID).
			Update("has_bom", false).Error
	})
}

// RecipeHistory: Tüm versiyonlar, aktif olan önde, sonra yeniden eskiye.
func RecipeHistory(db *gorm.DB, tenantID, productID uint) ([]models.BOMHeader, error) {
	if _, err := findProduct(db, tenantID, productID); err != nil {
		return nil, err
	}
	var headers []models.BOMHeader
	err := db.Preload("Items").Preload("Items.RawMaterial").
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Order("is_active desc, version desc").
		Find(&headers).Error
	return headers, err
}

// TotalCost: Reçetenin CANLI maliyeti: Σ(miktar × hammaddenin güncel alış fiyatı).
// Kayıt anında snapshot alınmaz; fiyat değişirse aynı reçete farklı maliyet döner.
// Rapor yüzeyindeki cache bu yüzden zaman damgalı snapshot olarak sunulur.
func TotalCost(header *models.BOMHeader) decimal.Decimal {
	total := decimal.Zero
	if header == nil {
		return total
	}
	for _, item := range header.Items {
		total = total.Add(item.Quantity.Mul(item.RawMaterial.CostPrice))
	}
	return total
}

func findProduct(db *gorm.DB, tenantID, productID uint) (*models.Product, error) {
	var p models.Product
	err := db.Where("id = ? AND tenant_id = ? AND is_active = ?", productID, tenantID, true).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var other int64
		db.Model(&models.Product{}).Where("id = ? AND tenant_id <> ?", productID, tenantID).Count(&other)
		if other > 0 {
			return nil, &domain.TenantMismatchError{Kind: domain.KindProduct, ID: productID, TenantID: tenantID}
		}
		return nil, &domain.NotFoundError{Kind: domain.KindProduct, ID: productID}
	}
	return nil, err
}
