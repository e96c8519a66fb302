package reports

import (
	"time"

	"esnafpos-backend/internal/bom"
	"esnafpos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Rapor snapshot'ları 5 dakika cache'lenir. Maliyetler canlı fiyattan
// hesaplandığı için cevap her zaman generated_at damgası taşır; istemci
// "ne zamanki fiyatlarla" sorusunun cevabını oradan okur.
const SnapshotTTL = 5 * time.Minute

type BOMCostRow struct {
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Version      int             `json:"version"`
	ItemCount    int             `json:"item_count"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	ProfitAmount decimal.Decimal `json:"profit_amount"`
	ProfitMargin decimal.Decimal `json:"profit_margin"` // yüzde; fiyat 0 ise 0
}

type BOMCostReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	TenantID    uint         `json:"tenant_id"`
	Rows        []BOMCostRow `json:"rows"`
}

type InventoryValueReport struct {
	GeneratedAt time.Time `json:"generated_at"`
	TenantID    uint      `json:"tenant_id"`

	ProductCount     int             `json:"product_count"`
	ProductValue     decimal.Decimal `json:"product_value"` // Σ stok × satış fiyatı
	RawMaterialCount int             `json:"raw_material_count"`
	RawMaterialValue decimal.Decimal `json:"raw_material_value"` // Σ stok × birim maliyet
	TotalValue       decimal.Decimal `json:"total_value"`

	LowStockMaterialCount int `json:"low_stock_material_count"`
	OutOfStockCount       int `json:"out_of_stock_count"`
	NegativeStockCount    int `json:"negative_stock_count"` // backlog'a düşmüş hammaddeler
}

// BuildBOMCostReport: Aktif reçetesi olan her ürün için canlı maliyet ve kâr.
func BuildBOMCostReport(db *gorm.DB, tenantID uint) (*BOMCostReport, error) {
	var products []models.Product
	err := db.Where("tenant_id = ? AND is_active = ? AND has_bom = ?", tenantID, true, true).
		Order("name asc").Find(&products).Error
	if err != nil {
		return nil, err
	}

	report := &BOMCostReport{
		GeneratedAt: time.Now(),
		TenantID:    tenantID,
		Rows:        make([]BOMCostRow, 0, len(products)),
	}

	hundred := decimal.NewFromInt(100)
	for i := range products {
		p := &products[i]
		header, err := bom.GetActiveRecipe(db, tenantID, p.ID)
		if err != nil {
			return nil, err
		}
		if header == nil {
			// has_bom bayrağı reçeteyle senkron gitmemişse satır atlanır
			continue
		}

		cost := bom.TotalCost(header)
		profit := p.Price.Sub(cost)
		margin := decimal.Zero
		if p.Price.IsPositive() {
			margin = profit.Div(p.Price).Mul(hundred).Round(2)
		}

		report.Rows = append(report.Rows, BOMCostRow{
			ProductID:    p.ID,
			ProductName:  p.Name,
			Version:      header.Version,
			ItemCount:    len(header.Items),
			TotalCost:    cost,
			SalePrice:    p.Price,
			ProfitAmount: profit,
			ProfitMargin: margin,
		})
	}
	return report, nil
}

// BuildInventoryValueReport: Envanterin parasal değeri ve stok sağlığı özeti.
// Negatif stok (backlog) değere sıfır katılır ama ayrı sayılır.
func BuildInventoryValueReport(db *gorm.DB, tenantID uint) (*InventoryValueReport, error) {
	var products []models.Product
	err := db.Where("tenant_id = ? AND is_active = ?", tenantID, true).Find(&products).Error
	if err != nil {
		return nil, err
	}

	var materials []models.RawMaterial
	err = db.Where("tenant_id = ? AND is_active = ?", tenantID, true).Find(&materials).Error
	if err != nil {
		return nil, err
	}

	report := &InventoryValueReport{
		GeneratedAt:      time.Now(),
		TenantID:         tenantID,
		ProductCount:     len(products),
		RawMaterialCount: len(materials),
		ProductValue:     decimal.Zero,
		RawMaterialValue: decimal.Zero,
	}

	for _, p := range products {
		if !p.RequiresStockTracking {
			continue
		}
		if p.StockQuantity.IsPositive() {
			report.ProductValue = report.ProductValue.Add(p.StockQuantity.Mul(p.Price))
		}
	}

	for _, m := range materials {
		if m.StockQuantity.IsPositive() {
			report.RawMaterialValue = report.RawMaterialValue.Add(m.StockQuantity.Mul(m.CostPrice))
		}
		switch {
		case m.StockQuantity.IsNegative():
			report.NegativeStockCount++
			report.OutOfStockCount++
		case m.StockQuantity.IsZero():
			report.OutOfStockCount++
		case m.StockQuantity.LessThanOrEqual(m.StockAlert):
			report.LowStockMaterialCount++
		}
	}

	report.TotalValue = report.ProductValue.Add(report.RawMaterialValue)
	return report, nil
}
