package sales

import (
	"errors"
	"strconv"

	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateRefundRequest struct {
	TenantID *uint            `json:"tenant_id"` // super_admin için
	Items    []RefundLineItem `json:"items"`
	Reason   string           `json:"reason"`
	Notes    string           `json:"notes"`
}

type RefundItemResponse struct {
	SaleItemID uint            `json:"sale_item_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type RefundResponse struct {
	ID           uint                 `json:"id"`
	RefundNumber string               `json:"refund_number"`
	SaleID       uint                 `json:"sale_id"`
	RefundAmount decimal.Decimal      `json:"refund_amount"`
	Reason       string               `json:"reason"`
	Notes        string               `json:"notes"`
	Status       models.RefundStatus  `json:"status"`
	CreatedAt    string               `json:"created_at"`
	Items        []RefundItemResponse `json:"items"`
}

// POST /api/sales/:id/refunds
// İadeyi pending açar; stok /refunds/:id/process ile geri verilir.
func CreateRefundHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		saleID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || saleID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz satış ID")
		}

		var body CreateRefundRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		tenantID, err := auth.ResolveTenantID(c, body.TenantID)
		if err != nil {
			return err
		}
		userID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		refund, err := CreateRefund(database.DB, tenantID, uint(saleID), body.Items, body.Reason, body.Notes, userID)
		if err != nil {
			return refundError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success":       true,
			"refund_id":     refund.ID,
			"refund_number": refund.RefundNumber,
			"refund_amount": refund.RefundAmount,
			"status":        refund.Status,
		})
	}
}

// PUT /api/refunds/:id/process
func ProcessRefundHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		refundID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || refundID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz iade ID")
		}

		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}
		verifierID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		result, err := ProcessRefund(database.DB, tenantID, uint(refundID), verifierID)
		if err != nil {
			return refundError(c, err)
		}

		return c.JSON(fiber.Map{
			"success":       true,
			"refund_number": result.RefundNumber,
			"refund_amount": result.RefundAmount,
			"deltas":        result.Deltas,
		})
	}
}

// PUT /api/refunds/:id/cancel
func CancelRefundHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		refundID, err := strconv.ParseUint(c.Params("id"), 10, 64)
		if err != nil || refundID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz iade ID")
		}

		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}
		verifierID, err := auth.CurrentUserID(c)
		if err != nil {
			return err
		}

		if err := CancelRefund(database.DB, tenantID, uint(refundID), verifierID); err != nil {
			return refundError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "status": models.RefundStatusCancelled})
	}
}

// GET /api/refunds?status=pending&sale_id=12
func ListRefundsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, err := resolveTenantFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Items").Where("tenant_id = ?", tenantID)
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}
		if saleStr := c.Query("sale_id"); saleStr != "" {
			if id, err := strconv.ParseUint(saleStr, 10, 64); err == nil {
				dbq = dbq.Where("sale_id = ?", uint(id))
			}
		}

		var refunds []models.Refund
		if err := dbq.Order("created_at desc").Limit(200).Find(&refunds).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İadeler listelenemedi")
		}

		res := make([]RefundResponse, 0, len(refunds))
		for i := range refunds {
			res = append(res, toRefundResponse(&refunds[i]))
		}
		return c.JSON(res)
	}
}

func toRefundResponse(r *models.Refund) RefundResponse {
	res := RefundResponse{
		ID:           r.ID,
		RefundNumber: r.RefundNumber,
		SaleID:       r.SaleID,
		RefundAmount: r.RefundAmount,
		Reason:       r.Reason,
		Notes:        r.Notes,
		Status:       r.Status,
		CreatedAt:    r.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	for _, item := range r.Items {
		res.Items = append(res.Items, RefundItemResponse{
			SaleItemID: item.SaleItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return res
}

func refundError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, ErrRefundNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrRefundNoItems),
		errors.Is(err, ErrRefundDuplicateItem),
		errors.Is(err, ErrRefundItemNotInSale):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRefundAlreadyProcessed):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}

	var qtyErr *RefundQuantityError
	if errors.As(err, &qtyErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success":      false,
			"error":        qtyErr.Error(),
			"error_kind":   "refund_quantity_exceeded",
			"sale_item_id": qtyErr.SaleItemID,
			"requested":    qtyErr.Requested,
			"refundable":   qtyErr.Refundable,
		})
	}

	return web.DomainError(c, err)
}
