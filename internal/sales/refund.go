package sales

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"esnafpos-backend/internal/bom"
	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/stock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RefundLineItem struct {
	SaleItemID uint `json:"sale_item_id"`
	Quantity   int  `json:"quantity"`
}

type RefundResult struct {
	RefundID     uint            `json:"refund_id"`
	RefundNumber string          `json:"refund_number"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Deltas       []stock.Applied `json:"deltas"`
}

var (
	ErrRefundNoItems          = errors.New("iadede en az bir kalem olmalı")
	ErrRefundDuplicateItem    = errors.New("aynı satış kalemi iadede birden fazla geçemez")
	ErrSaleNotFound           = errors.New("satış bulunamadı")
	ErrRefundNotFound         = errors.New("iade bulunamadı")
	ErrRefundItemNotInSale    = errors.New("iade kalemi bu satışa ait değil")
	ErrRefundAlreadyProcessed = errors.New("bu iade zaten sonuçlandırılmış")
)

// RefundQuantityError: Kalemin kalan iade hakkından fazlası istendi.
type RefundQuantityError struct {
	SaleItemID uint
	Requested  int
	Refundable int
}

func (e *RefundQuantityError) Error() string {
	return fmt.Sprintf("satış kalemi %d için en fazla %d adet iade edilebilir, %d istendi",
		e.SaleItemID, e.Refundable, e.Requested)
}

// CreateRefund: İade fişini pending olarak açar; stok bu aşamada DEĞİŞMEZ.
// Her kalemin iade hakkı, satılan adetten iptal edilmemiş iadelerdeki adetler
// düşülerek bulunur. İade tutarı kalemin satış anındaki birim fiyatından
// hesaplanır, güncel liste fiyatından değil.
func CreateRefund(db *gorm.DB, tenantID, saleID uint, items []RefundLineItem, reason, notes string, userID uint) (*models.Refund, error) {
	if len(items) == 0 {
		return nil, ErrRefundNoItems
	}

	var sale models.Sale
	err := db.Preload("Items").Where("tenant_id = ?", tenantID).First(&sale, "id = ?", saleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}

	saleItems := make(map[uint]*models.SaleItem, len(sale.Items))
	for i := range sale.Items {
		saleItems[sale.Items[i].ID] = &sale.Items[i]
	}

	total := decimal.Zero
	seen := make(map[uint]bool, len(items))
	refundItems := make([]models.RefundItem, 0, len(items))

	for _, in := range items {
		si, ok := saleItems[in.SaleItemID]
		if !ok {
			return nil, ErrRefundItemNotInSale
		}
		if seen[in.SaleItemID] {
			return nil, ErrRefundDuplicateItem
		}
		seen[in.SaleItemID] = true

		if in.Quantity <= 0 {
			return nil, &domain.InvalidQuantityError{Quantity: decimal.NewFromInt(int64(in.Quantity))}
		}

		refunded, err := refundedQuantity(db, si.ID)
		if err != nil {
			return nil, err
		}
		refundable := si.Quantity - refunded
		if in.Quantity > refundable {
			return nil, &RefundQuantityError{SaleItemID: si.ID, Requested: in.Quantity, Refundable: refundable}
		}

		lineTotal := si.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		total = total.Add(lineTotal)
		refundItems = append(refundItems, models.RefundItem{
			SaleItemID: si.ID,
			Quantity:   in.Quantity,
			UnitPrice:  si.UnitPrice,
			TotalPrice: lineTotal,
		})
	}

	refund := models.Refund{
		TenantID:     tenantID,
		RefundNumber: newRefundNumber(),
		SaleID:       sale.ID,
		RefundAmount: total,
		Reason:       reason,
		Notes:        notes,
		Status:       models.RefundStatusPending,
		UserID:       userID,
		Items:        refundItems,
	}
	if err := db.Create(&refund).Error; err != nil {
		return nil, err
	}
	return &refund, nil
}

// ProcessRefund: Pending iadeyi tamamlar ve stoğu geri verir. Satışın
// düştüğünün tersi yazılır: takipli ürünün kendi stoğu artar, reçeteli ürünün
// GÜNCEL aktif reçetesindeki hammaddeler artar. Reçete satıştan sonra
// değiştiyse geri verilen hammaddeler satış anındakinden farklı olabilir;
// reçete artık yoksa sadece ürün stoğu (takipliyse) geri döner. İade kaydı
// transaction içinde kilitli okunur, aynı iade iki kez işlenemez.
func ProcessRefund(db *gorm.DB, tenantID, refundID, verifierID uint) (*RefundResult, error) {
	var result *RefundResult
	err := db.Transaction(func(tx *gorm.DB) error {
		refund, err := findRefundLocked(tx, tenantID, refundID)
		if err != nil {
			return err
		}
		if refund.Status != models.RefundStatusPending {
			return ErrRefundAlreadyProcessed
		}

		var items []models.RefundItem
		if err := tx.Preload("SaleItem").Find(&items, "refund_id = ?", refund.ID).Error; err != nil {
			return err
		}

		refID := refund.ID
		var deltas []stock.Delta
		for _, ri := range items {
			product, err := findProduct(tx, tenantID, ri.SaleItem.ProductID)
			if err != nil {
				return err
			}
			qty := decimal.NewFromInt(int64(ri.Quantity))

			if product.RequiresStockTracking {
				deltas = append(deltas, stock.Delta{
					Kind:        domain.KindProduct,
					EntityID:    product.ID,
					Delta:       qty,
					Reason:      models.MovementReasonCorrection,
					ReferenceID: &refID,
					Note:        refund.RefundNumber,
				})
			}

			recipe, err := bom.GetActiveRecipe(tx, tenantID, product.ID)
			if err != nil {
				return err
			}
			if recipe != nil {
				for _, bi := range recipe.Items {
					deltas = append(deltas, stock.Delta{
						Kind:        domain.KindRawMaterial,
						EntityID:    bi.RawMaterialID,
						Delta:       bi.Quantity.Mul(qty),
						Reason:      models.MovementReasonCorrection,
						ReferenceID: &refID,
						Note:        refund.RefundNumber,
					})
				}
			}
		}

		var applied []stock.Applied
		if len(deltas) > 0 {
			applied, err = stock.ApplyDeltasTx(tx, tenantID, deltas)
			if err != nil {
				return err
			}
		}

		now := time.Now()
		refund.Status = models.RefundStatusCompleted
		refund.ProcessedBy = &verifierID
		refund.ProcessedAt = &now
		if err := tx.Save(refund).Error; err != nil {
			return err
		}

		result = &RefundResult{
			RefundID:     refund.ID,
			RefundNumber: refund.RefundNumber,
			RefundAmount: refund.RefundAmount,
			Deltas:       applied,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelRefund: Pending iadeyi iptal eder; hiçbir deftere dokunulmaz ve
// kalemlerin iade hakkı geri açılır.
func CancelRefund(db *gorm.DB, tenantID, refundID, verifierID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		refund, err := findRefundLocked(tx, tenantID, refundID)
		if err != nil {
			return err
		}
		if refund.Status != models.RefundStatusPending {
			return ErrRefundAlreadyProcessed
		}

		now := time.Now()
		refund.Status = models.RefundStatusCancelled
		refund.ProcessedBy = &verifierID
		refund.ProcessedAt = &now
		return tx.Save(refund).Error
	})
}

func findRefundLocked(tx *gorm.DB, tenantID, refundID uint) (*models.Refund, error) {
	q := tx
	// SQLite FOR UPDATE desteklemez; test ortamında tek yazar var
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var refund models.Refund
	err := q.Where("tenant_id = ?", tenantID).First(&refund, "id = ?", refundID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRefundNotFound
		}
		return nil, err
	}
	return &refund, nil
}

// İptal edilmemiş (pending + completed) iadelerdeki toplam adet
func refundedQuantity(db *gorm.DB, saleItemID uint) (int, error) {
	var total int64
	err := db.Model(&models.RefundItem{}).
		Joins("JOIN refunds ON refunds.id = refund_items.refund_id").
		Where("refund_items.sale_item_id = ? AND refunds.status <> ?", saleItemID, models.RefundStatusCancelled).
		Select("COALESCE(SUM(refund_items.quantity), 0)").
		Scan(&total).Error
	return int(total), err
}

func newRefundNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RF-%s-%s", time.Now().Format("20060102"), suffix)
}
