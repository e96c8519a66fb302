package web

import (
	"errors"
	"log"

	"esnafpos-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
)

// DomainError: Çekirdekten dönen tipli hataları HTTP cevabına çevirir.
// Her cevap {success:false, error, error_kind} taşır; eksik dökümü gibi
// yapısal alanlar hatanın türüne göre eklenir.
func DomainError(c *fiber.Ctx, err error) error {
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		return respond(c, fiber.StatusNotFound, "entity_not_found", err.Error(), nil)
	}

	var tenantMismatch *domain.TenantMismatchError
	if errors.As(err, &tenantMismatch) {
		return respond(c, fiber.StatusForbidden, "tenant_mismatch", err.Error(), nil)
	}

	var unitMismatch *domain.UnitMismatchError
	if errors.As(err, &unitMismatch) {
		return respond(c, fiber.StatusBadRequest, "unit_mismatch", err.Error(), fiber.Map{
			"raw_material_id": unitMismatch.RawMaterialID,
			"expected_unit":   unitMismatch.Expected,
			"got_unit":        unitMismatch.Got,
		})
	}

	if errors.Is(err, domain.ErrEmptyRecipe) {
		return respond(c, fiber.StatusBadRequest, "empty_recipe", err.Error(), nil)
	}

	var duplicate *domain.DuplicateIngredientError
	if errors.As(err, &duplicate) {
		return respond(c, fiber.StatusBadRequest, "duplicate_ingredient", err.Error(), fiber.Map{
			"raw_material_id": duplicate.RawMaterialID,
		})
	}

	var invalidQty *domain.InvalidQuantityError
	if errors.As(err, &invalidQty) {
		return respond(c, fiber.StatusBadRequest, "invalid_quantity", err.Error(), nil)
	}

	var unknownMaterial *domain.UnknownMaterialError
	if errors.As(err, &unknownMaterial) {
		return respond(c, fiber.StatusBadRequest, "unknown_material", err.Error(), fiber.Map{
			"raw_material_id": unknownMaterial.RawMaterialID,
		})
	}

	var insufficientStock *domain.InsufficientStockError
	if errors.As(err, &insufficientStock) {
		return respond(c, fiber.StatusBadRequest, "insufficient_stock", err.Error(), fiber.Map{
			"kind":      insufficientStock.Kind,
			"entity_id": insufficientStock.ID,
			"requested": insufficientStock.Requested,
			"available": insufficientStock.Available,
		})
	}

	var insufficientMaterials *domain.InsufficientMaterialsError
	if errors.As(err, &insufficientMaterials) {
		return respond(c, fiber.StatusBadRequest, "insufficient_materials", err.Error(), fiber.Map{
			"product_id":   insufficientMaterials.ProductID,
			"product_name": insufficientMaterials.ProductName,
			"shortages":    insufficientMaterials.Availability,
		})
	}

	var invalidType *domain.InvalidItemTypeError
	if errors.As(err, &invalidType) {
		return respond(c, fiber.StatusBadRequest, "invalid_item_type", err.Error(), nil)
	}

	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return respond(c, fiber.StatusConflict, "concurrency_conflict", err.Error(), nil)
	}

	if errors.Is(err, domain.ErrStockTrackingDisabled) {
		return respond(c, fiber.StatusBadRequest, "stock_tracking_disabled", err.Error(), nil)
	}

	log.Println("Beklenmeyen domain hatası:", err)
	return respond(c, fiber.StatusInternalServerError, "internal", "Beklenmeyen sunucu hatası", nil)
}

func respond(c *fiber.Ctx, status int, kind, msg string, extra fiber.Map) error {
	body := fiber.Map{
		"success":    false,
		"error":      msg,
		"error_kind": kind,
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}
