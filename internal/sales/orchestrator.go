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
)

type LineItem struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
	// Boş bırakılırsa ürünün güncel satış fiyatı kullanılır
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Policy: Tenant seviyesinden gelen satış politikası.
// AllowInsufficientBOM SADECE reçete eksiklerini kapsar; ürünün kendi stok
// yetersizliğini asla bastırmaz.
type Policy struct {
	AllowInsufficientBOM bool
	PaymentMethod        string
	Notes                string
	UserID               uint
}

// Warning: Politika gereği bastırılan reçete eksiği (satış yine de işlendi,
// hammadde stoğu eksiye düştü).
type Warning struct {
	ProductID    uint                            `json:"product_id"`
	ProductName  string                          `json:"product_name"`
	Availability []domain.IngredientAvailability `json:"availability"`
}

type SaleResult struct {
	SaleID        uint            `json:"sale_id"`
	ReceiptNumber string          `json:"receipt_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Deltas        []stock.Applied `json:"deltas"`
	Warnings      []Warning       `json:"warnings,omitempty"`
}

var ErrNoItems = errors.New("satışta en az bir kalem olmalı")

// ProcessSale: Çok kalemli satışın tamamı tek atomik birimdir; kısmi karşılama
// yoktur. Akış:
//  1. Her kalem için ürün çözülür (pasif/yabancı tenant → hata).
//  2. Stok takipli + reçetesiz ürünlerin kendi stoğu ön-kontrol edilir.
//  3. Reçeteli ürünler için uygunluk değerlendirilir; eksikse ve politika izin
//     vermiyorsa tam eksik dökümüyle reddedilir, hiçbir kalem işlenmez.
//  4. Tüm deltalar hesaplanır: takipli her ürünün kendi stoğuna düşüm + tüm
//     reçete hammaddelerine düşüm (aynı hammaddeyi paylaşan kalemler toplanır).
//  5. Satış kaydı ve deltalar tek transaction'da commit edilir. Eşzamanlı
//     satışların ön-kontrolü aynı anlık görüntüye denk gelse bile commit
//     anındaki defter kontrolü ikinci satışı reddeder.
func ProcessSale(db *gorm.DB, tenantID uint, lines []LineItem, policy Policy) (*SaleResult, error) {
	if len(lines) == 0 {
		return nil, ErrNoItems
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, &domain.InvalidQuantityError{Quantity: decimal.NewFromInt(int64(line.Quantity))}
		}
	}

	type resolvedLine struct {
		product *models.Product
		recipe  *models.BOMHeader
		line    LineItem
	}

	resolved := make([]resolvedLine, 0, len(lines))
	var warnings []Warning

	// 1-3: Mutasyonsuz validasyon geçişi
	for _, line := range lines {
		product, err := findProduct(db, tenantID, line.ProductID)
		if err != nil {
			return nil, err
		}

		recipe, err := bom.GetActiveRecipe(db, tenantID, product.ID)
		if err != nil {
			return nil, err
		}

		if recipe == nil && product.RequiresStockTracking {
			qty := decimal.NewFromInt(int64(line.Quantity))
			if product.StockQuantity.LessThan(qty) {
				return nil, &domain.InsufficientStockError{
					Kind:      domain.KindProduct,
					ID:        product.ID,
					Name:      product.Name,
					Requested: qty,
					Available: product.StockQuantity,
				}
			}
		}

		if recipe != nil {
			availability, err := bom.CheckAvailability(db, tenantID, product.ID, line.Quantity)
			if err != nil {
				return nil, err
			}
			if !availability.Valid {
				if !policy.AllowInsufficientBOM {
					return nil, &domain.InsufficientMaterialsError{
						ProductID:    product.ID,
						ProductName:  product.Name,
						Availability: availability.Availability,
					}
				}
				warnings = append(warnings, Warning{
					ProductID:    product.ID,
					ProductName:  product.Name,
					Availability: availability.Availability,
				})
			}
		}

		resolved = append(resolved, resolvedLine{product: product, recipe: recipe, line: line})
	}

	// 4: Delta seti
	var deltas []stock.Delta
	total := decimal.Zero
	saleItems := make([]models.SaleItem, 0, len(resolved))

	for _, r := range resolved {
		qty := decimal.NewFromInt(int64(r.line.Quantity))

		unitPrice := r.line.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = r.product.Price
		}
		lineTotal := unitPrice.Mul(qty)
		total = total.Add(lineTotal)
		saleItems = append(saleItems, models.SaleItem{
			ProductID:  r.product.ID,
			Quantity:   r.line.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: lineTotal,
		})

		if r.product.RequiresStockTracking {
			// Ürünün kendi stoğu: eksiye düşme izni YOK, politika ne olursa olsun
			deltas = append(deltas, stock.Delta{
				Kind:     domain.KindProduct,
				EntityID: r.product.ID,
				Delta:    qty.Neg(),
				Reason:   models.MovementReasonSale,
			})
		}

		if r.recipe != nil {
			overridden := policy.AllowInsufficientBOM
			for _, item := range r.recipe.Items {
				deltas = append(deltas, stock.Delta{
					Kind:          domain.KindRawMaterial,
					EntityID:      item.RawMaterialID,
					Delta:         item.Quantity.Mul(qty).Neg(),
					AllowNegative: overridden,
					Reason:        models.MovementReasonSale,
				})
			}
		}
	}

	// 5: Satış kaydı + deltalar tek transaction'da
	var result *SaleResult
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = db.Transaction(func(tx *gorm.DB) error {
			sale := models.Sale{
				TenantID:      tenantID,
				ReceiptNumber: newReceiptNumber(),
				TotalAmount:   total,
				PaymentMethod: paymentMethodOrDefault(policy.PaymentMethod),
				UserID:        policy.UserID,
				Notes:         policy.Notes,
				Items:         saleItems,
			}
			if err := tx.Create(&sale).Error; err != nil {
				return err
			}

			saleID := sale.ID
			for i := range deltas {
				deltas[i].ReferenceID = &saleID
				deltas[i].Note = sale.ReceiptNumber
			}

			applied, err := stock.ApplyDeltasTx(tx, tenantID, deltas)
			if err != nil {
				return err
			}

			result = &SaleResult{
				SaleID:        sale.ID,
				ReceiptNumber: sale.ReceiptNumber,
				TotalAmount:   total,
				Deltas:        applied,
				Warnings:      warnings,
			}
			return nil
		})
		if err == nil {
			return result, nil
		}
		if !stock.IsRetryableConflict(err) {
			return nil, err
		}
	}
	return nil, domain.ErrConcurrencyConflict
}

func newReceiptNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RC-%s-%s", time.Now().Format("20060102"), suffix)
}

func paymentMethodOrDefault(m string) string {
	if m == "" {
		return "cash"
	}
	return m
}

func findProduct(db *gorm.DB, tenantID, productID uint) (*models.Product, error) {
	var p models.Product
	err := db.Where("id = ? AND tenant_id = ? AND is_active = ?", productID, tenantID, true).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		var other int64
		db.Model(&models.Product{}).Where("id = ? AND tenant_id <> ?", productID, tenantID).Count(&other)
		if other > 0 {
			return nil, &domain.TenantMismatchError{Kind: domain.KindProduct, ID: productID, TenantID: tenantID}
		}
		return nil, &domain.NotFoundError{Kind: domain.KindProduct, ID: productID}
	}
	return nil, err
}
