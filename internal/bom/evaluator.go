package bom

import (
	"esnafpos-backend/internal/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AvailabilityResult: Kuru çalışma (dry-run) sonucu. Hiçbir stok mutasyonu
// yapılmaz; sepete eklemeden önce ve commit'ten hemen önce tekrar çağrılır,
// çünkü iki çağrı arasında başka kasalar stoğu değiştirmiş olabilir.
type AvailabilityResult struct {
	Valid       bool            `json:"valid"`
	Reason      string          `json:"reason,omitempty"` // reçetesiz üründe "no BOM"
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	TotalCost   decimal.Decimal `json:"total_cost"` // canlı maliyet, istenen adet için
	// Her hammadde raporlanır, sadece yetersizler değil
	Availability []domain.IngredientAvailability `json:"availability"`
}

// CheckAvailability: Ürünün aktif reçetesi istenen adet için karşılanabilir mi?
// Reçete yoksa trivially geçerli. Salt-okunurdur ve araya mutasyon girmedikçe
// aynı sonucu döner.
func CheckAvailability(db *gorm.DB, tenantID, productID uint, desiredQty int) (*AvailabilityResult, error) {
	if desiredQty <= 0 {
		return nil, &domain.InvalidQuantityError{Quantity: decimal.NewFromInt(int64(desiredQty))}
	}

	product, err := findProduct(db, tenantID, productID)
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{
		Valid:       true,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    desiredQty,
		TotalCost:   decimal.Zero,
	}

	header, err := GetActiveRecipe(db, tenantID, productID)
	if err != nil {
		return nil, err
	}
	if header == nil {
		result.Reason = "no BOM"
		return result, nil
	}

	qty := decimal.NewFromInt(int64(desiredQty))
	for _, item := range header.Items {
		required := item.Quantity.Mul(qty)
		available := item.RawMaterial.StockQuantity
		sufficient := available.GreaterThanOrEqual(required)

		shortage := decimal.Zero
		if !sufficient {
			shortage = required.Sub(available)
			result.Valid = false
		}

		result.TotalCost = result.TotalCost.Add(item.Quantity.Mul(item.RawMaterial.CostPrice).Mul(qty))
		result.Availability = append(result.Availability, domain.IngredientAvailability{
			RawMaterialID:   item.RawMaterialID,
			RawMaterialName: item.RawMaterial.Name,
			Unit:            item.Unit,
			Required:        required,
			Available:       available,
			Sufficient:      sufficient,
			Shortage:        shortage,
		})
	}

	return result, nil
}
