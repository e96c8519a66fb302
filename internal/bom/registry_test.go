package bom

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
	dsn := fmt.Sprintf("file:bom_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
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

func seedTenant(t *testing.T, db *gorm.DB, name string) *models.Tenant {
	t.Helper()
	tenant := models.Tenant{Name: name, IsActive: true}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("tenant oluşturulamadı: %v", err)
	}
	return &tenant
}

func seedMaterial(t *testing.T, db *gorm.DB, tenantID uint, name, unit, qty, cost string) *models.RawMaterial {
	t.Helper()
	m := models.RawMaterial{
		TenantID:      tenantID,
		Name:          name,
		Unit:          unit,
		CostPrice:     mustDecimal(t, cost),
		StockQuantity: mustDecimal(t, qty),
		StockAlert:    decimal.NewFromInt(10),
		IsActive:      true,
	}
	if err := db.Create(&m).Error; err != nil {
		t.Fatalf("hammadde oluşturulamadı: %v", err)
	}
	return &m
}

func seedProduct(t *testing.T, db *gorm.DB, tenantID uint, name string) *models.Product {
	t.Helper()
	p := models.Product{
		TenantID:              tenantID,
		Name:                  name,
		Unit:                  "adet",
		Price:                 decimal.NewFromInt(30),
		StockQuantity:         decimal.NewFromInt(100),
		StockAlert:            decimal.NewFromInt(5),
		RequiresStockTracking: true,
		IsActive:              true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("ürün oluşturulamadı: %v", err)
	}
	return &p
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("geçersiz decimal %q: %v", s, err)
	}
	return d
}

func TestSetRecipeCreatesVersions(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "latte")
	milk := seedMaterial(t, db, tenant.ID, "süt", "lt", "20", "1.5")
	coffee := seedMaterial(t, db, tenant.ID, "kahve", "kg", "5", "40")

	v1, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.2")},
		{RawMaterialID: coffee.ID, Quantity: mustDecimal(t, "0.02")},
	}, "ilk reçete")
	if err != nil {
		t.Fatalf("SetRecipe hata döndü: %v", err)
	}
	if v1.Version != 1 || !v1.IsActive {
		t.Errorf("ilk kayıt version=1 ve aktif olmalı: v%d aktif=%v", v1.Version, v1.IsActive)
	}

	// has_bom bayrağı senkron set edilmeli
	var fresh models.Product
	db.First(&fresh, p.ID)
	if !fresh.HasBOM {
		t.Error("reçete kaydından sonra has_bom=true olmalı")
	}

	v2, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.25")},
	}, "süt artırıldı")
	if err != nil {
		t.Fatalf("ikinci kayıt hata döndü: %v", err)
	}
	if v2.Version != 2 {
		t.Errorf("ikinci kayıt version=2 olmalı: v%d", v2.Version)
	}

	// En fazla bir aktif versiyon olabilir
	var activeCount int64
	db.Model(&models.BOMHeader{}).
		Where("product_id = ? AND is_active = ?", p.ID, true).
		Count(&activeCount)
	if activeCount != 1 {
		t.Errorf("1 aktif versiyon olmalı, %d var", activeCount)
	}

	active, err := GetActiveRecipe(db, tenant.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active.Version != 2 || len(active.Items) != 1 {
		t.Errorf("aktif reçete v2 ve tek kalemli olmalı: v%d, %d kalem", active.Version, len(active.Items))
	}
}

func TestSetRecipeValidation(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	other := seedTenant(t, db, "kafe-b")
	p := seedProduct(t, db, tenant.ID, "latte")
	milk := seedMaterial(t, db, tenant.ID, "süt", "lt", "20", "1.5")
	foreign := seedMaterial(t, db, other.ID, "şeker", "kg", "10", "2")

	if _, err := SetRecipe(db, tenant.ID, p.ID, nil, ""); !errors.Is(err, domain.ErrEmptyRecipe) {
		t.Errorf("boş reçete reddedilmeli, gelen: %v", err)
	}

	_, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.2")},
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.1")},
	}, "")
	var dup *domain.DuplicateIngredientError
	if !errors.As(err, &dup) {
		t.Errorf("mükerrer hammadde reddedilmeli, gelen: %v", err)
	}

	_, err = SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: decimal.Zero},
	}, "")
	var invalidQty *domain.InvalidQuantityError
	if !errors.As(err, &invalidQty) {
		t.Errorf("sıfır miktar reddedilmeli, gelen: %v", err)
	}

	_, err = SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: 9999, Quantity: mustDecimal(t, "1")},
	}, "")
	var unknown *domain.UnknownMaterialError
	if !errors.As(err, &unknown) {
		t.Errorf("bilinmeyen hammadde reddedilmeli, gelen: %v", err)
	}

	_, err = SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: foreign.ID, Quantity: mustDecimal(t, "1")},
	}, "")
	var mismatch *domain.TenantMismatchError
	if !errors.As(err, &mismatch) {
		t.Errorf("yabancı tenant hammaddesi TenantMismatch olmalı, gelen: %v", err)
	}

	_, err = SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.2"), Unit: "kg"},
	}, "")
	var unitErr *domain.UnitMismatchError
	if !errors.As(err, &unitErr) {
		t.Errorf("birim uyuşmazlığı reddedilmeli, gelen: %v", err)
	}

	// Hatalı denemeler versiyon tarihçesi bırakmamalı
	var count int64
	db.Model(&models.BOMHeader{}).Where("product_id = ?", p.ID).Count(&count)
	if count != 0 {
		t.Errorf("hiç versiyon yazılmamalıydı, %d var", count)
	}
}

func TestDeactivateRecipe(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "latte")
	milk := seedMaterial(t, db, tenant.ID, "süt", "lt", "20", "1.5")

	if _, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.2")},
	}, ""); err != nil {
		t.Fatal(err)
	}

	if err := DeactivateRecipe(db, tenant.ID, p.ID); err != nil {
		t.Fatalf("DeactivateRecipe hata döndü: %v", err)
	}

	var fresh models.Product
	db.First(&fresh, p.ID)
	if fresh.HasBOM {
		t.Error("pasifleştirme sonrası has_bom=false olmalı")
	}

	active, err := GetActiveRecipe(db, tenant.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if active != nil {
		t.Error("aktif reçete kalmamalıydı")
	}

	// Tarihçe silinmez
	history, err := RecipeHistory(db, tenant.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("tarihçede 1 versiyon olmalı, %d var", len(history))
	}

	// İkinci çağrı idempotent
	if err := DeactivateRecipe(db, tenant.ID, p.ID); err != nil {
		t.Errorf("ikinci pasifleştirme hatasız olmalı: %v", err)
	}

	// Yeniden kayıt tarihçenin devamından versiyonlanır
	v, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.3")},
	}, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.Version != 2 {
		t.Errorf("yeniden kayıt version=2 olmalı: v%d", v.Version)
	}
}

func TestTotalCostIsLive(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "latte")
	milk := seedMaterial(t, db, tenant.ID, "süt", "lt", "20", "2")

	if _, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.5")},
	}, ""); err != nil {
		t.Fatal(err)
	}

	header, err := GetActiveRecipe(db, tenant.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := TotalCost(header); !got.Equal(mustDecimal(t, "1")) {
		t.Errorf("maliyet 0.5×2=1 olmalı: %s", got)
	}

	// Fiyat değişince AYNI versiyonun maliyeti de değişir (snapshot yok)
	db.Model(&models.RawMaterial{}).Where("id = ?", milk.ID).Update("cost_price", "4")

	header, err = GetActiveRecipe(db, tenant.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got := TotalCost(header); !got.Equal(mustDecimal(t, "2")) {
		t.Errorf("güncel fiyattan maliyet 0.5×4=2 olmalı: %s", got)
	}
}
