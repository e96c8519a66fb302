package marketplace

import (
	"errors"
	"time"

	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/stock"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RestockResult struct {
	Kind        domain.EntityKind `json:"item_type"`
	TargetID    uint              `json:"target_id"`
	Name        string            `json:"name"`
	NewQuantity decimal.Decimal   `json:"new_quantity"`
}

var (
	ErrOrderAlreadyProcessed = errors.New("bu sipariş zaten sonuçlandırılmış")
	ErrMarketplaceStock      = errors.New("pazaryeri stoğu yetersiz")
)

// ProcessPurchase: Satın alınan stoğu item_type'a göre doğru deftere yönlendirir:
// "product" ise ürün stoğuna, "raw_material" ise hammadde stoğuna pozitif delta.
// Hedef entity aynı tenant'ta mevcut ve aktif olmalıdır.
func ProcessPurchase(db *gorm.DB, tenantID uint, itemType string, targetID uint, quantity decimal.Decimal, referenceID *uint) (*RestockResult, error) {
	kind, err := domain.ParseEntityKind(itemType)
	if err != nil {
		return nil, err
	}
	if !quantity.IsPositive() {
		return nil, &domain.InvalidQuantityError{Quantity: quantity}
	}

	applied, err := stock.ApplyDelta(db, tenantID, stock.Delta{
		Kind:        kind,
		EntityID:    targetID,
		Delta:       quantity, // pozitif delta için AllowNegative anlamsız
		Reason:      models.MovementReasonRestock,
		ReferenceID: referenceID,
	})
	if err != nil {
		return nil, err
	}

	return &RestockResult{
		Kind:        kind,
		TargetID:    targetID,
		Name:        applied.Name,
		NewQuantity: applied.NewQuantity,
	}, nil
}

// VerifyOrder: Admin onay/red akışı. Sipariş transaction içinde kilitli okunur
// ve pending kontrolü bu kilit altında yapılır; aynı siparişe eşzamanlı iki
// onay gelirse ikincisi defteri işletemez. Onayda pazaryeri stoğu düşülür ve
// hedef defter aynı transaction'da artırılır; redde hiçbir defter dokunulmaz.
func VerifyOrder(db *gorm.DB, orderID, verifierID uint, approve bool, adminNotes string) (*RestockResult, error) {
	var result *RestockResult
	err := db.Transaction(func(tx *gorm.DB) error {
		q := tx
		// SQLite FOR UPDATE desteklemez; test ortamında tek yazar var
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var order models.RestockOrder
		if err := q.First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}
		if order.Status != models.RestockStatusPending {
			return ErrOrderAlreadyProcessed
		}

		now := time.Now()
		order.VerifiedBy = &verifierID
		order.VerifiedAt = &now
		order.AdminNotes = adminNotes

		if !approve {
			order.Status = models.RestockStatusRejected
			return tx.Save(&order).Error
		}

		// Aynı kalemden beslenen farklı siparişlerin onayı da sıralanmalı
		var item models.MarketplaceItem
		if err := q.First(&item, "id = ?", order.MarketplaceItemID).Error; err != nil {
			return err
		}
		if item.Stock.LessThan(order.Quantity) {
			return ErrMarketplaceStock
		}
		if err := tx.Model(&models.MarketplaceItem{}).
			Where("id = ?", item.ID).
			Update("stock", item.Stock.Sub(order.Quantity)).Error; err != nil {
			return err
		}

		refID := order.ID
		applied, err := stock.ApplyDeltasTx(tx, order.TenantID, []stock.Delta{{
			Kind:        domain.EntityKind(order.DestinationType),
			EntityID:    order.TargetID,
			Delta:       order.Quantity,
			Reason:      models.MovementReasonRestock,
			ReferenceID: &refID,
		}})
		if err != nil {
			return err
		}

		order.Status = models.RestockStatusVerified
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		result = &RestockResult{
			Kind:        domain.EntityKind(order.DestinationType),
			TargetID:    order.TargetID,
			Name:        applied[0].Name,
			NewQuantity: applied[0].NewQuantity,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
