package reports

import (
	"fmt"
	"strconv"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/cache"
	"esnafpos-backend/internal/database"

	"github.com/gofiber/fiber/v2"
)

// GET /api/reports/bom-cost-analysis
func BOMCostReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		key := fmt.Sprintf("reports:bom-cost:tenant:%d", tenantID)
		var cached BOMCostReport
		if cache.GetJSON(c.Context(), key, &cached) {
			return c.JSON(&cached)
		}

		report, err := BuildBOMCostReport(database.DB, tenantID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Maliyet raporu oluşturulamadı")
		}

		cache.SetJSON(c.Context(), key, report, SnapshotTTL)
		return c.JSON(report)
	}
}

// GET /api/reports/inventory-value
func InventoryValueReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		key := fmt.Sprintf("reports:inventory-value:tenant:%d", tenantID)
		var cached InventoryValueReport
		if cache.GetJSON(c.Context(), key, &cached) {
			return c.JSON(&cached)
		}

		report, err := BuildInventoryValueReport(database.DB, tenantID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Envanter raporu oluşturulamadı")
		}

		cache.SetJSON(c.Context(), key, report, SnapshotTTL)
		return c.JSON(report)
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
