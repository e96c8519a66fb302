package inventory

import (
	"fmt"
	"time"

	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// GET /api/raw-materials/export
// Ürün ve hammadde envanterini iki sayfalık xlsx olarak indirir.
func ExportInventoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		var products []models.Product
		if err := database.DB.
			Where("tenant_id = ? AND is_active = ?", tenantID, true).
			Order("name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler okunamadı")
		}

		var materials []models.RawMaterial
		if err := database.DB.
			Where("tenant_id = ? AND is_active = ?", tenantID, true).
			Order("name asc").Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hammaddeler okunamadı")
		}

		f := excelize.NewFile()
		defer f.Close()

		productSheet := "Ürünler"
		f.SetSheetName(f.GetSheetName(0), productSheet)
		headers := []string{"ID", "İsim", "SKU", "Birim", "Fiyat", "Stok", "Alarm Eşiği", "Reçeteli"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(productSheet, cell, h)
		}
		for row, p := range products {
			values := []any{p.ID, p.Name, p.SKU, p.Unit, p.Price.String(), p.StockQuantity.String(), p.StockAlert.String(), p.HasBOM}
			if !p.RequiresStockTracking {
				values[5] = "takip dışı"
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(productSheet, cell, v)
			}
		}

		materialSheet := "Hammaddeler"
		f.NewSheet(materialSheet)
		mHeaders := []string{"ID", "İsim", "SKU", "Birim", "Birim Maliyet", "Stok", "Alarm Eşiği"}
		for i, h := range mHeaders {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(materialSheet, cell, h)
		}
		for row, m := range materials {
			values := []any{m.ID, m.Name, m.SKU, m.Unit, m.CostPrice.String(), m.StockQuantity.String(), m.StockAlert.String()}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				f.SetCellValue(materialSheet, cell, v)
			}
		}

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		filename := fmt.Sprintf("envanter-%d-%s.xlsx", tenantID, time.Now().Format("20060102"))
		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(buf.Bytes())
	}
}
