package reports

import (
	"fmt"
	"sync/atomic"
	"testing"

	"esnafpos-backend/internal/bom"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:reports_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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

func TestBuildBOMCostReport(t *testing.T) {
	db := newTestDB(t)
	tenant := models.Tenant{Name: "kafe", IsActive: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatal(err)
	}

	milk := models.RawMaterial{
		TenantID: tenant.ID, Name: "süt", Unit: "lt",
		CostPrice: mustDecimal(t, "2"), StockQuantity: decimal.NewFromInt(20),
		StockAlert: decimal.NewFromInt(5), IsActive: true,
	}
	if err := db.Create(&milk).Error; err != nil {
		t.Fatal(err)
	}

	latte := models.Product{
		TenantID: tenant.ID, Name: "latte", Unit: "adet",
		Price: mustDecimal(t, "10"), StockQuantity: decimal.Zero,
		StockAlert: decimal.NewFromInt(5), RequiresStockTracking: false, IsActive: true,
	}
	if err := db.Create(&latte).Error; err != nil {
		t.Fatal(err)
	}
	// Reçetesiz ürün rapora girmez
	water := models.Product{
		TenantID: tenant.ID, Name: "su", Unit: "adet",
		Price: mustDecimal(t, "2"), StockQuantity: decimal.NewFromInt(50),
		StockAlert: decimal.NewFromInt(5), RequiresStockTracking: true, IsActive: true,
	}
	if err := db.Create(&water).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := bom.SetRecipe(db, tenant.ID, latte.ID, []bom.RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.5")},
	}, ""); err != nil {
		t.Fatal(err)
	}

	report, err := BuildBOMCostReport(db, tenant.ID)
	if err != nil {
		t.Fatalf("rapor oluşturulamadı: %v", err)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("snapshot zaman damgası taşımalı")
	}
	if len(report.Rows) != 1 {
		t.Fatalf("1 satır beklenirdi, %d var", len(report.Rows))
	}

	row := report.Rows[0]
	if row.ProductID != latte.ID || row.Version != 1 || row.ItemCount != 1 {
		t.Errorf("satır başlığı yanlış: %+v", row)
	}
	// maliyet 0.5×2=1, kâr 10-1=9, marj 90%
	if !row.TotalCost.Equal(mustDecimal(t, "1")) ||
		!row.ProfitAmount.Equal(mustDecimal(t, "9")) ||
		!row.ProfitMargin.Equal(mustDecimal(t, "90")) {
		t.Errorf("maliyet/kâr/marj yanlış: %s / %s / %s", row.TotalCost, row.ProfitAmount, row.ProfitMargin)
	}
}

func TestBuildInventoryValueReport(t *testing.T) {
	db := newTestDB(t)
	tenant := models.Tenant{Name: "kafe", IsActive: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatal(err)
	}

	seedMaterial := func(name, qty string) {
		m := models.RawMaterial{
			TenantID: tenant.ID, Name: name, Unit: "kg",
			CostPrice: mustDecimal(t, "2"), StockQuantity: mustDecimal(t, qty),
			StockAlert: mustDecimal(t, "5"), IsActive: true,
		}
		if err := db.Create(&m).Error; err != nil {
			t.Fatal(err)
		}
	}
	seedMaterial("bol", "20")    // 40 TL değer
	seedMaterial("azalan", "3")  // düşük stok, 6 TL
	seedMaterial("biten", "0")   // tükendi
	seedMaterial("borçlu", "-4") // backlog

	cola := models.Product{
		TenantID: tenant.ID, Name: "kola", Unit: "adet",
		Price: mustDecimal(t, "10"), StockQuantity: mustDecimal(t, "6"),
		StockAlert: mustDecimal(t, "5"), RequiresStockTracking: true, IsActive: true,
	}
	if err := db.Create(&cola).Error; err != nil {
		t.Fatal(err)
	}
	// Takipsiz ürün değere katılmaz
	tea := models.Product{
		TenantID: tenant.ID, Name: "çay", Unit: "adet",
		Price: mustDecimal(t, "5"), StockQuantity: mustDecimal(t, "100"),
		StockAlert: mustDecimal(t, "5"), RequiresStockTracking: false, IsActive: true,
	}
	if err := db.Create(&tea).Error; err != nil {
		t.Fatal(err)
	}

	report, err := BuildInventoryValueReport(db, tenant.ID)
	if err != nil {
		t.Fatalf("rapor oluşturulamadı: %v", err)
	}

	if !report.ProductValue.Equal(mustDecimal(t, "60")) {
		t.Errorf("ürün değeri 6×10=60 olmalı: %s", report.ProductValue)
	}
	if !report.RawMaterialValue.Equal(mustDecimal(t, "46")) {
		t.Errorf("hammadde değeri 40+6=46 olmalı: %s", report.RawMaterialValue)
	}
	if !report.TotalValue.Equal(mustDecimal(t, "106")) {
		t.Errorf("toplam 106 olmalı: %s", report.TotalValue)
	}
	if report.LowStockMaterialCount != 1 {
		t.Errorf("1 düşük stok beklenirdi: %d", report.LowStockMaterialCount)
	}
	if report.OutOfStockCount != 2 {
		t.Errorf("2 tükenmiş beklenirdi (0 ve -4): %d", report.OutOfStockCount)
	}
	if report.NegativeStockCount != 1 {
		t.Errorf("1 backlog beklenirdi: %d", report.NegativeStockCount)
	}
}
