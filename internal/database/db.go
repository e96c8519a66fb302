package database

import (
	"log"

	"esnafpos-backend/internal/config"
	"esnafpos-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Veritabanına bağlanılamadı: %v", err)
	}

	// Tenant.allow_insufficient_bom sonradan eklendi; eski kayıtlarda NULL kalmasın
	if DB.Migrator().HasTable(&models.Tenant{}) &&
		DB.Migrator().HasColumn(&models.Tenant{}, "allow_insufficient_bom") {
		DB.Exec("UPDATE tenants SET allow_insufficient_bom = false WHERE allow_insufficient_bom IS NULL")
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate hatası: %v", err)
	}

	log.Println("Veritabanı bağlantısı başarılı. Migration tamamlandı.")
}

// Migrate: Tüm model tablolarını oluşturur/günceller. Testler aynı listeyi
// in-memory SQLite üzerinde çalıştırır.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Product{},
		&models.RawMaterial{},
		&models.BOMHeader{},
		&models.BOMItem{},
		&models.Sale{},
		&models.SaleItem{},
		&models.Refund{},
		&models.RefundItem{},
		&models.MarketplaceItem{},
		&models.RestockOrder{},
		&models.StockMovement{},
	)
}
