package stock

import (
	"esnafpos-backend/internal/models"

	"gorm.io/gorm"
)

// Düşük stok: 0 < stok <= alarm eşiği. Stok <= 0 ise "tükendi" sayılır,
// düşük stok listesine girmez.

func LowStockMaterials(db *gorm.DB, tenantID uint) ([]models.RawMaterial, error) {
	var materials []models.RawMaterial
	err := db.
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("stock_quantity > 0 AND stock_quantity <= stock_alert").
		Order("name asc").
		Find(&materials).Error
	return materials, err
}

func OutOfStockMaterials(db *gorm.DB, tenantID uint) ([]models.RawMaterial, error) {
	var materials []models.RawMaterial
	err := db.
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("stock_quantity <= 0").
		Order("name asc").
		Find(&materials).Error
	return materials, err
}

func LowStockProducts(db *gorm.DB, tenantID uint) ([]models.Product, error) {
	var products []models.Product
	err := db.
		Where("tenant_id = ? AND is_active = ? AND requires_stock_tracking = ?", tenantID, true, true).
		Where("stock_quantity > 0 AND stock_quantity <= stock_alert").
		Order("name asc").
		Find(&products).Error
	return products, err
}
