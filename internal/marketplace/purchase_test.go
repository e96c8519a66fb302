package marketplace

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:marketplace_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("test veritabanı açılamadı: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB alınamadı: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migration hatası: %v", err)
	}
	return db
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("geçersiz decimal %q: %v", s, err)
	}
	return d
}

func seedBase(t *testing.T, db *gorm.DB) (*models.Tenant, *models.Product, *models.RawMaterial) {
	t.Helper()
	tenant := models.Tenant{Name: "market", IsActive: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatal(err)
	}
	product := models.Product{
		TenantID: tenant.ID, Name: "kola", Unit: "adet",
		Price: decimal.NewFromInt(10), StockQuantity: decimal.NewFromInt(5),
		StockAlert: decimal.NewFromInt(5), RequiresStockTracking: true, IsActive: true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatal(err)
	}
	material := models.RawMaterial{
		TenantID: tenant.ID, Name: "şeker", Unit: "kg",
		CostPrice: decimal.NewFromInt(2), StockQuantity: decimal.NewFromInt(8),
		StockAlert: decimal.NewFromInt(3), IsActive: true,
	}
	if err := db.Create(&material).Error; err != nil {
		t.Fatal(err)
	}
	return &tenant, &product, &material
}

// item_type=raw_material: hammadde defteri artar, hiçbir Product satırına dokunulmaz.
func TestPurchaseRoutesToRawMaterial(t *testing.T) {
	db := newTestDB(t)
	tenant, product, material := seedBase(t, db)

	result, err := ProcessPurchase(db, tenant.ID, "raw_material", material.ID, mustDecimal(t, "50"), nil)
	if err != nil {
		t.Fatalf("ProcessPurchase hata döndü: %v", err)
	}
	if result.Kind != domain.KindRawMaterial {
		t.Errorf("sonuç raw_material göstermeli: %s", result.Kind)
	}
	if !result.NewQuantity.Equal(mustDecimal(t, "58")) {
		t.Errorf("şeker 58 kg olmalı: %s", result.NewQuantity)
	}

	var freshProduct models.Product
	db.First(&freshProduct, product.ID)
	if !freshProduct.StockQuantity.Equal(mustDecimal(t, "5")) {
		t.Errorf("ürün stoğuna dokunulmamalı: %s", freshProduct.StockQuantity)
	}

	var mv models.StockMovement
	if err := db.First(&mv).Error; err != nil {
		t.Fatal(err)
	}
	if mv.Reason != models.MovementReasonRestock || mv.EntityKind != string(domain.KindRawMaterial) {
		t.Errorf("hareket restock/raw_material olmalı: %s/%s", mv.Reason, mv.EntityKind)
	}
}

func TestPurchaseRoutesToProduct(t *testing.T) {
	db := newTestDB(t)
	tenant, product, material := seedBase(t, db)

	result, err := ProcessPurchase(db, tenant.ID, "product", product.ID, mustDecimal(t, "20"), nil)
	if err != nil {
		t.Fatalf("ProcessPurchase hata döndü: %v", err)
	}
	if !result.NewQuantity.Equal(mustDecimal(t, "25")) {
		t.Errorf("kola 25 adet olmalı: %s", result.NewQuantity)
	}

	var freshMaterial models.RawMaterial
	db.First(&freshMaterial, material.ID)
	if !freshMaterial.StockQuantity.Equal(mustDecimal(t, "8")) {
		t.Errorf("hammadde stoğuna dokunulmamalı: %s", freshMaterial.StockQuantity)
	}
}

func TestPurchaseValidation(t *testing.T) {
	db := newTestDB(t)
	tenant, product, _ := seedBase(t, db)

	_, err := ProcessPurchase(db, tenant.ID, "gider", product.ID, mustDecimal(t, "5"), nil)
	var invalidType *domain.InvalidItemTypeError
	if !errors.As(err, &invalidType) {
		t.Errorf("geçersiz item_type reddedilmeli, gelen: %v", err)
	}

	_, err = ProcessPurchase(db, tenant.ID, "product", product.ID, decimal.Zero, nil)
	var invalidQty *domain.InvalidQuantityError
	if !errors.As(err, &invalidQty) {
		t.Errorf("sıfır miktar reddedilmeli, gelen: %v", err)
	}

	_, err = ProcessPurchase(db, tenant.ID, "product", 9999, mustDecimal(t, "5"), nil)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("bilinmeyen hedef NotFound olmalı, gelen: %v", err)
	}
}

func seedOrder(t *testing.T, db *gorm.DB, tenantID, targetID uint, dest models.DestinationType, qty string) *models.RestockOrder {
	t.Helper()
	item := models.MarketplaceItem{
		Name: "toz şeker çuvalı", Unit: "kg",
		Price: decimal.NewFromInt(2), Stock: decimal.NewFromInt(100), IsActive: true,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatal(err)
	}
	order := models.RestockOrder{
		TenantID:          tenantID,
		MarketplaceItemID: item.ID,
		DestinationType:   dest,
		TargetID:          targetID,
		Quantity:          mustDecimal(t, qty),
		UnitPrice:         item.Price,
		TotalAmount:       mustDecimal(t, qty).Mul(item.Price),
		Status:            models.RestockStatusPending,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatal(err)
	}
	return &order
}

func TestVerifyOrderApprove(t *testing.T) {
	db := newTestDB(t)
	tenant, _, material := seedBase(t, db)
	order := seedOrder(t, db, tenant.ID, material.ID, models.DestinationRawMaterial, "30")

	result, err := VerifyOrder(db, order.ID, 7, true, "uygun")
	if err != nil {
		t.Fatalf("onay başarısız: %v", err)
	}
	if !result.NewQuantity.Equal(mustDecimal(t, "38")) {
		t.Errorf("şeker 8+30=38 olmalı: %s", result.NewQuantity)
	}

	// Pazaryeri stoğu aynı transaction'da düşer
	var item models.MarketplaceItem
	db.First(&item, order.MarketplaceItemID)
	if !item.Stock.Equal(mustDecimal(t, "70")) {
		t.Errorf("pazaryeri stoğu 70 olmalı: %s", item.Stock)
	}

	var fresh models.RestockOrder
	db.First(&fresh, order.ID)
	if fresh.Status != models.RestockStatusVerified || fresh.VerifiedBy == nil || *fresh.VerifiedBy != 7 {
		t.Errorf("sipariş verified olmalı: %s / %v", fresh.Status, fresh.VerifiedBy)
	}

	// Aynı sipariş ikinci kez sonuçlandırılamaz
	if _, err := VerifyOrder(db, order.ID, 7, true, ""); !errors.Is(err, ErrOrderAlreadyProcessed) {
		t.Errorf("ikinci onay reddedilmeli, gelen: %v", err)
	}
}

// Sonuçlanmış siparişin tekrar onayı deftere hiç dokunmamalı: ne hedef stok
// ikinci kez artar, ne pazaryeri stoğu ikinci kez düşer, ne de yeni hareket
// satırı yazılır.
func TestVerifyOrderRepeatApprovalNoDoubleCredit(t *testing.T) {
	db := newTestDB(t)
	tenant, _, material := seedBase(t, db)
	order := seedOrder(t, db, tenant.ID, material.ID, models.DestinationRawMaterial, "30")

	if _, err := VerifyOrder(db, order.ID, 7, true, ""); err != nil {
		t.Fatalf("ilk onay başarısız: %v", err)
	}

	var movementsBefore int64
	db.Model(&models.StockMovement{}).Count(&movementsBefore)

	if _, err := VerifyOrder(db, order.ID, 7, true, ""); !errors.Is(err, ErrOrderAlreadyProcessed) {
		t.Fatalf("ikinci onay ErrOrderAlreadyProcessed dönmeli, gelen: %v", err)
	}

	var freshMaterial models.RawMaterial
	db.First(&freshMaterial, material.ID)
	if !freshMaterial.StockQuantity.Equal(mustDecimal(t, "38")) {
		t.Errorf("hedef stok tek onay kadar artmalı (38): %s", freshMaterial.StockQuantity)
	}

	var item models.MarketplaceItem
	db.First(&item, order.MarketplaceItemID)
	if !item.Stock.Equal(mustDecimal(t, "70")) {
		t.Errorf("pazaryeri stoğu bir kez düşmeli (70): %s", item.Stock)
	}

	var movementsAfter int64
	db.Model(&models.StockMovement{}).Count(&movementsAfter)
	if movementsAfter != movementsBefore {
		t.Errorf("ikinci onay hareket yazmamalı: %d -> %d", movementsBefore, movementsAfter)
	}
}

func TestVerifyOrderReject(t *testing.T) {
	db := newTestDB(t)
	tenant, _, material := seedBase(t, db)
	order := seedOrder(t, db, tenant.ID, material.ID, models.DestinationRawMaterial, "30")

	result, err := VerifyOrder(db, order.ID, 7, false, "fiyat yanlış")
	if err != nil {
		t.Fatalf("red başarısız: %v", err)
	}
	if result != nil {
		t.Error("redde hedef sonucu dönmemeli")
	}

	// Red hiçbir deftere dokunmaz
	var freshMaterial models.RawMaterial
	db.First(&freshMaterial, material.ID)
	if !freshMaterial.StockQuantity.Equal(mustDecimal(t, "8")) {
		t.Errorf("hammadde stoğu değişmemeli: %s", freshMaterial.StockQuantity)
	}
	var item models.MarketplaceItem
	db.First(&item, order.MarketplaceItemID)
	if !item.Stock.Equal(mustDecimal(t, "100")) {
		t.Errorf("pazaryeri stoğu değişmemeli: %s", item.Stock)
	}

	var fresh models.RestockOrder
	db.First(&fresh, order.ID)
	if fresh.Status != models.RestockStatusRejected || fresh.AdminNotes != "fiyat yanlış" {
		t.Errorf("sipariş rejected olmalı: %s / %q", fresh.Status, fresh.AdminNotes)
	}
}

func TestVerifyOrderMarketplaceStockGuard(t *testing.T) {
	db := newTestDB(t)
	tenant, _, material := seedBase(t, db)
	order := seedOrder(t, db, tenant.ID, material.ID, models.DestinationRawMaterial, "30")

	// Sipariş verildikten sonra pazaryeri stoğu eriyebilir
	db.Model(&models.MarketplaceItem{}).
		Where("id = ?", order.MarketplaceItemID).
		Update("stock", decimal.NewFromInt(10))

	_, err := VerifyOrder(db, order.ID, 7, true, "")
	if !errors.Is(err, ErrMarketplaceStock) {
		t.Fatalf("yetersiz pazaryeri stoğu reddedilmeli, gelen: %v", err)
	}

	// Başarısız onay siparişi pending bırakır, hedef defter değişmez
	var fresh models.RestockOrder
	db.First(&fresh, order.ID)
	if fresh.Status != models.RestockStatusPending {
		t.Errorf("sipariş pending kalmalı: %s", fresh.Status)
	}
	var freshMaterial models.RawMaterial
	db.First(&freshMaterial, material.ID)
	if !freshMaterial.StockQuantity.Equal(mustDecimal(t, "8")) {
		t.Errorf("hammadde stoğu değişmemeli: %s", freshMaterial.StockQuantity)
	}
}
