package bom

import (
	"errors"
	"testing"

	"esnafpos-backend/internal/domain"
	"esnafpos-backend/internal/models"
)

func TestCheckAvailabilitySufficient(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "latte")
	milk := seedMaterial(t, db, tenant.ID, "süt", "lt", "10", "2")
	coffee := seedMaterial(t, db, tenant.ID, "kahve", "kg", "1", "40")

	if _, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.2")},
		{RawMaterialID: coffee.ID, Quantity: mustDecimal(t, "0.02")},
	}, ""); err != nil {
		t.Fatal(err)
	}

	result, err := CheckAvailability(db, tenant.ID, p.ID, 5)
	if err != nil {
		t.Fatalf("CheckAvailability hata döndü: %v", err)
	}
	if !result.Valid {
		t.Error("stok yeterliyken valid=true olmalı")
	}
	// Sadece eksikler değil, her hammadde raporlanır
	if len(result.Availability) != 2 {
		t.Fatalf("2 hammadde satırı beklenirdi, %d var", len(result.Availability))
	}
	for _, row := range result.Availability {
		if !row.Sufficient || !row.Shortage.IsZero() {
			t.Errorf("yeterli satırda shortage=0 olmalı: %+v", row)
		}
	}
	// 5 adet için: 5×(0.2×2 + 0.02×40) = 5×1.2 = 6
	if !result.TotalCost.Equal(mustDecimal(t, "6")) {
		t.Errorf("toplam maliyet 6 olmalı: %s", result.TotalCost)
	}
}

func TestCheckAvailabilityShortage(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "latte")
	milk := seedMaterial(t, db, tenant.ID, "süt", "lt", "0.5", "2")
	coffee := seedMaterial(t, db, tenant.ID, "kahve", "kg", "1", "40")

	if _, err := SetRecipe(db, tenant.ID, p.ID, []RecipeItemInput{
		{RawMaterialID: milk.ID, Quantity: mustDecimal(t, "0.2")},
		{RawMaterialID: coffee.ID, Quantity: mustDecimal(t, "0.02")},
	}, ""); err != nil {
		t.Fatal(err)
	}

	result, err := CheckAvailability(db, tenant.ID, p.ID, 5)
	if err != nil {
		t.Fatal(err)
	}
	if result.Valid {
		t.Error("süt yetersizken valid=false olmalı")
	}

	var milkRow, coffeeRow *domain.IngredientAvailability
	for i := range result.Availability {
		switch result.Availability[i].RawMaterialID {
		case milk.ID:
			milkRow = &result.Availability[i]
		case coffee.ID:
			coffeeRow = &result.Availability[i]
		}
	}
	if milkRow == nil || coffeeRow == nil {
		t.Fatal("her iki hammadde de raporlanmalı")
	}
	if milkRow.Sufficient || !milkRow.Shortage.Equal(mustDecimal(t, "0.5")) {
		t.Errorf("süt için eksik 1-0.5=0.5 olmalı: %+v", milkRow)
	}
	if !coffeeRow.Sufficient {
		t.Errorf("kahve yeterli olmalı: %+v", coffeeRow)
	}

	// Kuru çalışma: stok değişmemeli
	var fresh models.RawMaterial
	db.First(&fresh, milk.ID)
	if !fresh.StockQuantity.Equal(mustDecimal(t, "0.5")) {
		t.Errorf("dry-run stok değiştirmemeli: %s", fresh.StockQuantity)
	}
}

func TestCheckAvailabilityNoRecipe(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "su")

	result, err := CheckAvailability(db, tenant.ID, p.ID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Valid || result.Reason != "no BOM" {
		t.Errorf("reçetesiz ürün trivially geçerli olmalı: %+v", result)
	}
	if len(result.Availability) != 0 {
		t.Errorf("reçetesiz üründe hammadde satırı olmamalı")
	}
}

// Sıfır veya negatif adet onarılmaz, reddedilir
func TestCheckAvailabilityRejectsNonPositiveQuantity(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")
	p := seedProduct(t, db, tenant.ID, "latte")

	for _, qty := range []int{0, -3} {
		_, err := CheckAvailability(db, tenant.ID, p.ID, qty)
		var invalidQty *domain.InvalidQuantityError
		if !errors.As(err, &invalidQty) {
			t.Errorf("adet %d InvalidQuantity olmalı, gelen: %v", qty, err)
		}
	}
}

func TestCheckAvailabilityUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	tenant := seedTenant(t, db, "kafe-a")

	_, err := CheckAvailability(db, tenant.ID, 9999, 1)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("bilinmeyen ürün NotFound olmalı, gelen: %v", err)
	}
}
