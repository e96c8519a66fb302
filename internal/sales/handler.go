package sales

import (
	"errors"
	"strconv"
	"time"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProcessSaleRequest struct {
	TenantID *uint      `json:"tenant_id"` // super_admin için
	Items    []LineItem `json:"items"`
	// Tenant politikası izin veriyorsa reçete eksiklerini bastırır.
	// Tenant'ta allow_insufficient_bom kapalıysa bu alan etkisizdir.
	AllowInsufficientBOM *bool  `json:"allow_insufficient_bom"`
	PaymentMethod        string `json:"payment_method"`
	Notes                string `json:"notes"`
}

type SaleItemResponse struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type SaleResponse struct {
	ID            uint               `json:"id"`
	ReceiptNumber string             `json:"receipt_number"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
	Notes         string             `json:"notes"`
	CreatedAt     string             `json:"created_at"`
	Items         []SaleItemResponse `json:"items"`
}

// POST /api/sales
func ProcessSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProcessSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "En az bir satış kalemi gerekli")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}

		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		var tenant models.Tenant
		if err := database.DB.First(&tenant, "id = ? AND is_active = ?", tenantID, true).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tenant bulunamadı")
		}

		// Override kapısı tenant politikasıdır; istek sadece kapatabilir
		allowInsufficient := tenant.AllowInsufficientBOM
		if body.AllowInsufficientBOM != nil {
			allowInsufficient = allowInsufficient && *body.AllowInsufficientBOM
		}

		result, err := ProcessSale(database.DB, tenantID, body.Items, Policy{
			AllowInsufficientBOM: allowInsufficient,
			PaymentMethod:        body.PaymentMethod,
			Notes:                body.Notes,
			UserID:               userID,
		})
		if err != nil {
			if errors.Is(err, ErrNoItems) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return web.DomainError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":        true,
			"sale_id":        result.SaleID,
			"receipt_number": result.ReceiptNumber,
			"total_amount":   result.TotalAmount,
			"deltas":         result.Deltas,
			"warnings":       result.Warnings,
		})
	}
}

// GET /api/sales?from=2026-01-01&to=2026-01-31
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Items").Preload("Items.Product").
			Where("tenant_id = ?", tenantID)

		if from := c.Query("from"); from != "" {
			if d, err := time.Parse("2006-01-02", from); err == nil {
				dbq = dbq.Where("created_at >= ?", d)
			}
		}
		if to := c.Query("to"); to != "" {
			if d, err := time.Parse("2006-01-02", to); err == nil {
				dbq = dbq.Where("created_at < ?", d.AddDate(0, 0, 1))
			}
		}

		var sales []models.Sale
		if err := dbq.Order("created_at desc").Limit(200).Find(&sales).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Satışlar listelenemedi")
		}

		res := make([]SaleResponse, 0, len(sales))
		for i := range sales {
			res = append(res, toSaleResponse(&sales[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/sales/:id
func GetSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		id := c.Params("id")
		var sale models.Sale
		err = database.DB.Preload("Items").Preload("Items.Product").
			Where("tenant_id = ?", tenantID).
			First(&sale, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Satış bulunamadı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Satış okunamadı")
		}

		return c.JSON(toSaleResponse(&sale))
	}
}

func toSaleResponse(s *models.Sale) SaleResponse {
	res := SaleResponse{
		ID:            s.ID,
		ReceiptNumber: s.ReceiptNumber,
		TotalAmount:   s.TotalAmount,
		PaymentMethod: s.PaymentMethod,
		Notes:         s.Notes,
		CreatedAt:     s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	for _, item := range s.Items {
		res.Items = append(res.Items, SaleItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return res
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
