package inventory

import (
	"strings"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductResponse struct {
	ID                    uint            `json:"id"`
	Name                  string          `json:"name"`
	SKU                   string          `json:"sku"`
	Unit                  string          `json:"unit"`
	Price                 decimal.Decimal `json:"price"`
	StockQuantity         decimal.Decimal `json:"stock_quantity"`
	StockAlert            decimal.Decimal `json:"stock_alert"`
	RequiresStockTracking bool            `json:"requires_stock_tracking"`
	HasBOM                bool            `json:"has_bom"`
	IsActive              bool            `json:"is_active"`
}

type CreateProductRequest struct {
	TenantID              *uint            `json:"tenant_id"` // super_admin için
	Name                  string           `json:"name"`
	SKU                   string           `json:"sku"`
	Unit                  string           `json:"unit"`
	Price                 decimal.Decimal  `json:"price"`
	StockQuantity         decimal.Decimal  `json:"stock_quantity"`
	StockAlert            *decimal.Decimal `json:"stock_alert"`
	RequiresStockTracking *bool            `json:"requires_stock_tracking"`
}

type UpdateProductRequest struct {
	Name                  *string          `json:"name"`
	SKU                   *string          `json:"sku"`
	Unit                  *string          `json:"unit"`
	Price                 *decimal.Decimal `json:"price"`
	StockAlert            *decimal.Decimal `json:"stock_alert"`
	RequiresStockTracking *bool            `json:"requires_stock_tracking"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		SKU:                   p.SKU,
		Unit:                  p.Unit,
		Price:                 p.Price,
		StockQuantity:         p.StockQuantity,
		StockAlert:            p.StockAlert,
		RequiresStockTracking: p.RequiresStockTracking,
		HasBOM:                p.HasBOM,
		IsActive:              p.IsActive,
	}
}

// GET /api/products
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("tenant_id = ?", tenantID)
		if c.Query("include_inactive") != "true" {
			dbq = dbq.Where("is_active = ?", true)
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			dbq = dbq.Where("name LIKE ?", "%"+search+"%")
		}

		var products []models.Product
		if err := dbq.Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		res := make([]ProductResponse, 0, len(products))
		for i := range products {
			res = append(res, toProductResponse(&products[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Unit = strings.TrimSpace(body.Unit)
		if body.Name == "" || body.Unit == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim ve birim zorunlu")
		}
		if body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
		}

		p := models.Product{
			TenantID:              tenantID,
			Name:                  body.Name,
			SKU:                   strings.TrimSpace(body.SKU),
			Unit:                  body.Unit,
			Price:                 body.Price,
			StockQuantity:         body.StockQuantity,
			RequiresStockTracking: true,
			IsActive:              true,
		}
		if body.StockAlert != nil {
			p.StockAlert = *body.StockAlert
		} else {
			p.StockAlert = decimal.NewFromInt(10)
		}
		if body.RequiresStockTracking != nil {
			p.RequiresStockTracking = *body.RequiresStockTracking
		}

		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(&p))
	}
}

// PUT /api/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		p, err := findTenantProduct(c, tenantID)
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "İsim boş olamaz")
			}
			p.Name = name
		}
		if body.SKU != nil {
			p.SKU = strings.TrimSpace(*body.SKU)
		}
		if body.Unit != nil {
			unit := strings.TrimSpace(*body.Unit)
			if unit == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Birim boş olamaz")
			}
			p.Unit = unit
		}
		if body.Price != nil {
			if body.Price.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Fiyat negatif olamaz")
			}
			p.Price = *body.Price
		}
		if body.StockAlert != nil {
			p.StockAlert = *body.StockAlert
		}
		if body.RequiresStockTracking != nil {
			p.RequiresStockTracking = *body.RequiresStockTracking
		}

		if err := database.DB.Save(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
		}
		return c.JSON(toProductResponse(p))
	}
}

// DELETE /api/products/:id
// Soft-delete: satış tarihçesi ve hareket günlüğü ürüne referans verdiği için
// satır silinmez, pasife çekilir. Aktif reçetesi varsa o da pasife çekilir.
func DeactivateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		p, err := findTenantProduct(c, tenantID)
		if err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if p.HasBOM {
				if err := tx.Model(&models.BOMHeader{}).
					Where("tenant_id = ? AND product_id = ? AND is_active = ?", tenantID, p.ID, true).
					Update("is_active", false).Error; err != nil {
					return err
				}
			}
			return tx.Model(&models.Product{}).Where("id = ?", p.ID).
				Updates(map[string]any{"is_active": false, "has_bom": false}).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün pasife çekilemedi")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// PUT /api/products/:id/activate
func ActivateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		id := c.Params("id")
		result := database.DB.Model(&models.Product{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Update("is_active", true)
		if result.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün aktifleştirilemedi")
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func findTenantProduct(c *fiber.Ctx, tenantID uint) (*models.Product, error) {
	id := c.Params("id")
	var p models.Product
	if err := database.DB.Where("tenant_id = ?", tenantID).First(&p, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
	}
	return &p, nil
}
