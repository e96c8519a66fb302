package marketplace

import (
	"errors"
	"strconv"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/stock"
	"esnafpos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MarketplaceItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Stock       decimal.Decimal `json:"stock"`
}

type PurchaseRequest struct {
	TenantID *uint           `json:"tenant_id"` // super_admin için
	ItemType string          `json:"item_type"` // product | raw_material
	TargetID uint            `json:"target_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

type CreateRestockOrderRequest struct {
	TenantID          *uint           `json:"tenant_id"` // super_admin için
	MarketplaceItemID uint            `json:"marketplace_item_id"`
	DestinationType   string          `json:"destination_type"` // product | raw_material
	TargetID          uint            `json:"target_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	Notes             string          `json:"notes"`
}

type VerifyOrderRequest struct {
	Approve    bool   `json:"approve"`
	AdminNotes string `json:"admin_notes"`
}

// GET /api/marketplace/items
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []models.MarketplaceItem
		q := database.DB.Order("name asc")
		if c.Query("include_inactive") != "true" {
			q = q.Where("is_active = ?", true)
		}
		if err := q.Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Pazaryeri ürünleri listelenemedi")
		}
		return c.JSON(items)
	}
}

// POST /api/marketplace/items (super_admin)
func CreateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MarketplaceItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Name == "" || body.Unit == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim ve birim zorunlu")
		}
		if body.Price.IsNegative() || body.Stock.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat ve stok negatif olamaz")
		}

		item := models.MarketplaceItem{
			Name:        body.Name,
			Description: body.Description,
			SKU:         body.SKU,
			Unit:        body.Unit,
			Price:       body.Price,
			Stock:       body.Stock,
			IsActive:    true,
		}
		if err := database.DB.Create(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Pazaryeri ürünü oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// PUT /api/marketplace/items/:id (super_admin)
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		var item models.MarketplaceItem
		if err := database.DB.First(&item, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Pazaryeri ürünü bulunamadı")
		}

		var body MarketplaceItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Price.IsNegative() || body.Stock.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Fiyat ve stok negatif olamaz")
		}

		item.Name = body.Name
		item.Description = body.Description
		item.SKU = body.SKU
		item.Unit = body.Unit
		item.Price = body.Price
		item.Stock = body.Stock
		if err := database.DB.Save(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Pazaryeri ürünü güncellenemedi")
		}
		return c.JSON(item)
	}
}

// POST /api/marketplace/purchase
// Doğrudan stok girişi: item_type'a göre ürün veya hammadde stoğuna pozitif delta.
func PurchaseHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PurchaseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		result, err := ProcessPurchase(database.DB, tenantID, body.ItemType, body.TargetID, body.Quantity, nil)
		if err != nil {
			return web.DomainError(c, err)
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"item_type":    result.Kind,
			"target_id":    result.TargetID,
			"name":         result.Name,
			"new_quantity": result.NewQuantity,
		})
	}
}

// POST /api/marketplace/restock-orders
// Sipariş pending açılır; stok ancak admin onayında hareket eder.
func CreateRestockOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRestockOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		kind, err := domain.ParseEntityKind(body.DestinationType)
		if err != nil {
			return web.DomainError(c, err)
		}
		if !body.Quantity.IsPositive() {
			return web.DomainError(c, &domain.InvalidQuantityError{Quantity: body.Quantity})
		}

		var item models.MarketplaceItem
		if err := database.DB.First(&item, "id = ? AND is_active = ?", body.MarketplaceItemID, true).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Pazaryeri ürünü bulunamadı")
		}
		if item.Stock.LessThan(body.Quantity) {
			return fiber.NewError(fiber.StatusBadRequest, "Pazaryeri stoğu yetersiz")
		}

		// Hedef sipariş anında da mevcut olmalı; onay anında tekrar doğrulanır
		if _, err := stock.GetQuantity(database.DB, tenantID, kind, body.TargetID); err != nil {
			return web.DomainError(c, err)
		}

		order := models.RestockOrder{
			TenantID:          tenantID,
			MarketplaceItemID: item.ID,
			DestinationType:   models.DestinationType(kind),
			TargetID:          body.TargetID,
			Quantity:          body.Quantity,
			UnitPrice:         item.Price,
			TotalAmount:       body.Quantity.Mul(item.Price),
			Notes:             body.Notes,
			Status:            models.RestockStatusPending,
		}
		if err := database.DB.Create(&order).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Sipariş oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":      true,
			"order_id":     order.ID,
			"status":       order.Status,
			"total_amount": order.TotalAmount,
		})
	}
}

// GET /api/marketplace/restock-orders
// super_admin tüm siparişleri, tenant kullanıcıları kendi siparişlerini görür.
func ListRestockOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Preload("MarketplaceItem").Preload("Tenant").
			Order("created_at desc")

		roleVal := c.Locals(auth.CtxUserRoleKey)
		if role, ok := roleVal.(models.UserRole); !ok || role != models.RoleSuperAdmin {
			var bodyTenant *uint
			tenantID, err := auth.ResolveTenantID(c, bodyTenant)
			if err != nil {
				return err
			}
			q = q.Where("tenant_id = ?", tenantID)
		} else if s := c.Query("tenant_id"); s != "" {
			if t, err := strconv.ParseUint(s, 10, 64); err == nil {
				q = q.Where("tenant_id = ?", uint(t))
			}
		}

		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var orders []models.RestockOrder
		if err := q.Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Siparişler listelenemedi")
		}
		return c.JSON(orders)
	}
}

// PUT /api/marketplace/restock-orders/:id/verify (super_admin)
func VerifyRestockOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz sipariş ID")
		}

		var body VerifyOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		verifierID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		result, err := VerifyOrder(database.DB, uint(id), verifierID, body.Approve, body.AdminNotes)
		if err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Sipariş bulunamadı")
			case errors.Is(err, ErrOrderAlreadyProcessed):
				return fiber.NewError(fiber.StatusConflict, err.Error())
			case errors.Is(err, ErrMarketplaceStock):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return web.DomainError(c, err)
		}

		res := fiber.Map{"success": true}
		if body.Approve {
			res["status"] = models.RestockStatusVerified
			res["target"] = result
		} else {
			res["status"] = models.RestockStatusRejected
		}
		return c.JSON(res)
	}
}
