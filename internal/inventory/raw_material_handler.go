package inventory

import (
	"strconv"
	"strings"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type RawMaterialResponse struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	SKU           string          `json:"sku"`
	Unit          string          `json:"unit"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	StockAlert    decimal.Decimal `json:"stock_alert"`
	IsActive      bool            `json:"is_active"`
}

type CreateRawMaterialRequest struct {
	TenantID      *uint            `json:"tenant_id"` // super_admin için
	Name          string           `json:"name"`
	SKU           string           `json:"sku"`
	Unit          string           `json:"unit"`
	CostPrice     decimal.Decimal  `json:"cost_price"`
	StockQuantity decimal.Decimal  `json:"stock_quantity"`
	StockAlert    *decimal.Decimal `json:"stock_alert"`
}

type UpdateRawMaterialRequest struct {
	Name       *string          `json:"name"`
	SKU        *string          `json:"sku"`
	Unit       *string          `json:"unit"`
	CostPrice  *decimal.Decimal `json:"cost_price"`
	StockAlert *decimal.Decimal `json:"stock_alert"`
}

func toRawMaterialResponse(m *models.RawMaterial) RawMaterialResponse {
	return RawMaterialResponse{
		ID:            m.ID,
		Name:          m.Name,
		SKU:           m.SKU,
		Unit:          m.Unit,
		CostPrice:     m.CostPrice,
		StockQuantity: m.StockQuantity,
		StockAlert:    m.StockAlert,
		IsActive:      m.IsActive,
	}
}

// GET /api/raw-materials
func ListRawMaterialsHandler() fiber.Handler {
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

		var materials []models.RawMaterial
		if err := dbq.Order("name asc").Find(&materials).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hammaddeler listelenemedi")
		}

		res := make([]RawMaterialResponse, 0, len(materials))
		for i := range materials {
			res = append(res, toRawMaterialResponse(&materials[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/raw-materials
func CreateRawMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRawMaterialRequest
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
		if body.CostPrice.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "Maliyet negatif olamaz")
		}

		m := models.RawMaterial{
			TenantID:      tenantID,
			Name:          body.Name,
			SKU:           strings.TrimSpace(body.SKU),
			Unit:          body.Unit,
			CostPrice:     body.CostPrice,
			StockQuantity: body.StockQuantity,
			IsActive:      true,
		}
		if body.StockAlert != nil {
			m.StockAlert = *body.StockAlert
		} else {
			m.StockAlert = decimal.NewFromInt(10)
		}

		if err := database.DB.Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hammadde oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toRawMaterialResponse(&m))
	}
}

// PUT /api/raw-materials/:id
// Maliyet güncellemesi geriye dönük çalışır: reçete maliyetleri her zaman
// güncel fiyattan hesaplandığı için eski versiyonların maliyeti de değişir.
func UpdateRawMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		m, err := findTenantRawMaterial(c, tenantID)
		if err != nil {
			return err
		}

		var body UpdateRawMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "İsim boş olamaz")
			}
			m.Name = name
		}
		if body.SKU != nil {
			m.SKU = strings.TrimSpace(*body.SKU)
		}
		if body.Unit != nil {
			unit := strings.TrimSpace(*body.Unit)
			if unit == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Birim boş olamaz")
			}
			// Birim değişirse aktif reçetelerdeki kalemlerle uyumsuzluk doğar
			var count int64
			database.DB.Model(&models.BOMItem{}).
				Joins("JOIN bom_headers ON bom_headers.id = bom_items.bom_header_id").
				Where("bom_items.raw_material_id = ? AND bom_headers.is_active = ?", m.ID, true).
				Count(&count)
			if count > 0 && unit != m.Unit {
				return fiber.NewError(fiber.StatusBadRequest, "Aktif reçetelerde kullanılan hammaddenin birimi değiştirilemez")
			}
			m.Unit = unit
		}
		if body.CostPrice != nil {
			if body.CostPrice.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "Maliyet negatif olamaz")
			}
			m.CostPrice = *body.CostPrice
		}
		if body.StockAlert != nil {
			m.StockAlert = *body.StockAlert
		}

		if err := database.DB.Save(m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hammadde güncellenemedi")
		}
		return c.JSON(toRawMaterialResponse(m))
	}
}

// DELETE /api/raw-materials/:id
// Aktif bir reçetede kullanılan hammadde pasife çekilemez.
func DeactivateRawMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		m, err := findTenantRawMaterial(c, tenantID)
		if err != nil {
			return err
		}

		var count int64
		database.DB.Model(&models.BOMItem{}).
			Joins("JOIN bom_headers ON bom_headers.id = bom_items.bom_header_id").
			Where("bom_items.raw_material_id = ? AND bom_headers.is_active = ?", m.ID, true).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Bu hammadde aktif reçetelerde kullanılıyor, önce reçeteleri güncelleyin")
		}

		if err := database.DB.Model(&models.RawMaterial{}).
			Where("id = ?", m.ID).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hammadde pasife çekilemedi")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// PUT /api/raw-materials/:id/activate
func ActivateRawMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		id := c.Params("id")
		result := database.DB.Model(&models.RawMaterial{}).
			Where("id = ? AND tenant_id = ?", id, tenantID).
			Update("is_active", true)
		if result.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hammadde aktifleştirilemedi")
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Hammadde bulunamadı")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

func findTenantRawMaterial(c *fiber.Ctx, tenantID uint) (*models.RawMaterial, error) {
	id := c.Params("id")
	var m models.RawMaterial
	if err := database.DB.Where("tenant_id = ?", tenantID).First(&m, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Hammadde bulunamadı")
	}
	return &m, nil
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
