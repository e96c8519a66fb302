package stock

import (
	"strconv"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type AdjustRequest struct {
	TenantID *uint           `json:"tenant_id"` // super_admin için
	Kind     string          `json:"kind"`      // product | raw_material
	EntityID uint            `json:"entity_id"`
	Mode     string          `json:"mode"` // add | subtract | set
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note"`
}

// POST /api/stock/adjust
// Manuel stok düzeltmesi. "set" modunda hedef miktara ulaşan fark delta olarak
// uygulanır; günlükte her zaman gerçek delta görünür.
func AdjustHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body AdjustRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		kind, err := domain.ParseEntityKind(body.Kind)
		if err != nil {
			return web.DomainError(c, err)
		}

		return applyAdjust(c, tenantID, kind, body.EntityID, body.Mode, body.Quantity, body.Note)
	}
}

// POST /api/raw-materials/:id/stock
// AdjustHandler'ın hammaddeye sabitlenmiş hali.
func AdjustMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || id == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz hammadde ID")
		}

		var body AdjustRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		return applyAdjust(c, tenantID, domain.KindRawMaterial, uint(id), body.Mode, body.Quantity, body.Note)
	}
}

func applyAdjust(c *fiber.Ctx, tenantID uint, kind domain.EntityKind, entityID uint, mode string, quantity decimal.Decimal, note string) error {
	var delta decimal.Decimal
	switch mode {
	case "add":
		if !quantity.IsPositive() {
			return web.DomainError(c, &domain.InvalidQuantityError{Quantity: quantity})
		}
		delta = quantity
	case "subtract":
		if !quantity.IsPositive() {
			return web.DomainError(c, &domain.InvalidQuantityError{Quantity: quantity})
		}
		delta = quantity.Neg()
	case "set":
		if quantity.IsNegative() {
			return web.DomainError(c, &domain.InvalidQuantityError{Quantity: quantity})
		}
		current, err := GetQuantity(database.DB, tenantID, kind, entityID)
		if err != nil {
			return web.DomainError(c, err)
		}
		delta = quantity.Sub(current)
		if delta.IsZero() {
			return c.JSON(fiber.Map{
				"success":      true,
				"new_quantity": current,
				"delta":        decimal.Zero,
			})
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "mode add, subtract veya set olmalı")
	}

	applied, err := ApplyDelta(database.DB, tenantID, Delta{
		Kind:     kind,
		EntityID: entityID,
		Delta:    delta,
		Reason:   models.MovementReasonAdjustment,
		Note:     note,
	})
	if err != nil {
		return web.DomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"new_quantity": applied.NewQuantity,
		"delta":        applied.Delta,
	})
}

// GET /api/stock/movements?kind=raw_material&entity_id=5&reason=sale
// Günlük salt-okunurdur, bu uç sadece listeler.
func MovementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("tenant_id = ?", tenantID)
		if kindStr := c.Query("kind"); kindStr != "" {
			kind, err := domain.ParseEntityKind(kindStr)
			if err != nil {
				return web.DomainError(c, err)
			}
			dbq = dbq.Where("entity_kind = ?", string(kind))
		}
		if idStr := c.Query("entity_id"); idStr != "" {
			if id, err := strconv.ParseUint(idStr, 10, 64); err == nil {
				dbq = dbq.Where("entity_id = ?", uint(id))
			}
		}
		if reason := c.Query("reason"); reason != "" {
			dbq = dbq.Where("reason = ?", reason)
		}

		var movements []models.StockMovement
		if err := dbq.Order("id desc").Limit(500).Find(&movements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok hareketleri listelenemedi")
		}
		return c.JSON(movements)
	}
}

// GET /api/raw-materials/alerts
func AlertsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		lowMaterials, err := LowStockMaterials(database.DB, tenantID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Alarmlar okunamadı")
		}
		outMaterials, err := OutOfStockMaterials(database.DB, tenantID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Alarmlar okunamadı")
		}
		lowProducts, err := LowStockProducts(database.DB, tenantID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Alarmlar okunamadı")
		}

		return c.JSON(fiber.Map{
			"low_stock_materials":    lowMaterials,
			"out_of_stock_materials": outMaterials,
			"low_stock_products":     lowProducts,
		})
	}
}

func resolveTenantFromQuery(c *fiber.Ctx) (uint, error) {
	var bodyTenant *uint
	if q := c.Query("tenant_id"); q != "" {
		if t, err := strconv.ParseUint(q, 10, 64); err == nil {
			tid := uint(t)
			bodyTenant = &tid
		}
	}
	return auth.ResolveTenantID(c, bodyTenant)
}
