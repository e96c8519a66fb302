package bom

import (
	"fmt"
	"strconv"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/cache"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type SetRecipeRequest struct {
	ProductID uint              `json:"product_id"`
	Items     []RecipeItemInput `json:"items"`
	Notes     string            `json:"notes"`
	TenantID  *uint             `json:"tenant_id"` // super_admin için
}

type ValidateRequest struct {
	ProductID uint `json:"product_id"`
	// Verilmezse 1 varsayılır; verilmişse pozitif olmalı
	Quantity *int  `json:"quantity"`
	TenantID *uint `json:"tenant_id"` // super_admin için
}

type RecipeItemResponse struct {
	RawMaterialID   uint            `json:"raw_material_id"`
	RawMaterialName string          `json:"raw_material_name"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	TotalCost       decimal.Decimal `json:"total_cost"`
}

type RecipeResponse struct {
	BOMID     uint                 `json:"bom_id"`
	ProductID uint                 `json:"product_id"`
	Version   int                  `json:"version"`
	IsActive  bool                 `json:"is_active"`
	Notes     string               `json:"notes"`
	TotalCost decimal.Decimal      `json:"total_cost"`
	Items     []RecipeItemResponse `json:"items"`
	CreatedAt string               `json:"created_at"`
}

func toRecipeResponse(h *models.BOMHeader) RecipeResponse {
	res := RecipeResponse{
		BOMID:     h.ID,
		ProductID: h.ProductID,
		Version:   h.Version,
		IsActive:  h.IsActive,
		Notes:     h.Notes,
		TotalCost: TotalCost(h),
		CreatedAt: h.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	for _, item := range h.Items {
		res.Items = append(res.Items, RecipeItemResponse{
			RawMaterialID:   item.RawMaterialID,
			RawMaterialName: item.RawMaterial.Name,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			CostPerUnit:     item.RawMaterial.CostPrice,
			TotalCost:       item.Quantity.Mul(item.RawMaterial.CostPrice),
		})
	}
	return res
}

// POST /api/bom
// Her kayıt yeni versiyon oluşturur; önceki aktif versiyon pasife çekilir.
func SetRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SetRecipeRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		header, err := SetRecipe(database.DB, tenantID, body.ProductID, body.Items, body.Notes)
		if err != nil {
			return web.DomainError(c, err)
		}

		// Reçete değişti: bu tenant'ın rapor snapshot'ları artık bayat
		cache.DeletePattern(c.Context(), fmt.Sprintf("reports:*:tenant:%d", tenantID))

		// TotalCost hammadde fiyatlarını ister; taze preload ile dön
		full, err := GetActiveRecipe(database.DB, tenantID, body.ProductID)
		if err != nil || full == nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Reçete kaydedildi ama okunamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":    true,
			"bom_id":     header.ID,
			"version":    header.Version,
			"total_cost": TotalCost(full),
		})
	}
}

// POST /api/bom/validate
// Kuru çalışma: hiçbir stok değişmez. Sepete eklemeden önce ve ödeme anında
// tekrar çağrılır.
func ValidateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ValidateRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}
		qty := 1
		if body.Quantity != nil {
			qty = *body.Quantity
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		result, err := CheckAvailability(database.DB, tenantID, body.ProductID, qty)
		if err != nil {
			return web.DomainError(c, err)
		}

		return c.JSON(result)
	}
}

// GET /api/bom/:product_id
func GetActiveRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, tenantID, err := parseProductAndTenant(c)
		if err != nil {
			return err
		}

		header, err := GetActiveRecipe(database.DB, tenantID, productID)
		if err != nil {
			return web.DomainError(c, err)
		}
		if header == nil {
			return fiber.NewError(fiber.StatusNotFound, "Bu ürünün aktif reçetesi yok")
		}

		return c.JSON(toRecipeResponse(header))
	}
}

// GET /api/bom/:product_id/history
// Tüm versiyonlar; maliyetler güncel hammadde fiyatıyla CANLI hesaplanır,
// kayıt anındaki fiyat değildir.
func RecipeHistoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, tenantID, err := parseProductAndTenant(c)
		if err != nil {
			return err
		}

		headers, err := RecipeHistory(database.DB, tenantID, productID)
		if err != nil {
			return web.DomainError(c, err)
		}

		res := make([]RecipeResponse, 0, len(headers))
		for i := range headers {
			res = append(res, toRecipeResponse(&headers[i]))
		}
		return c.JSON(res)
	}
}

// DELETE /api/bom/:product_id
// Aktif reçeteyi pasife çeker; tarihçe silinmez.
func DeactivateRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		productID, tenantID, err := parseProductAndTenant(c)
		if err != nil {
			return err
		}

		if err := DeactivateRecipe(database.DB, tenantID, productID); err != nil {
			return web.DomainError(c, err)
		}

		cache.DeletePattern(c.Context(), fmt.Sprintf("reports:*:tenant:%d", tenantID))

		return c.JSON(fiber.Map{"success": true})
	}
}

func parseProductAndTenant(c *fiber.Ctx) (uint, uint, error) {
	idStr := c.Params("product_id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		return 0, 0, fiber.NewError(fiber.StatusBadRequest, "Geçersiz product_id")
	}

	var bodyTenant *uint
	if q := c.Query("tenant_id"); q != "" {
		if t, err := strconv.ParseUint(q, 10, 64); err == nil {
			tid := uint(t)
			bodyTenant = &tid
		}
	}
	tenantID, err := auth.ResolveTenantID(c, bodyTenant)
	if err != nil {
		return 0, 0, err
	}
	return uint(id), tenantID, nil
}
