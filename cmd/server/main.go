package main

import (
	"log"
	"strings"

	"esnafpos-backend/internal/admin"
	"esnafpos-backend/internal/auth"
	"esnafpos-backend/internal/bom"
	"esnafpos-backend/internal/cache"
	"esnafpos-backend/internal/config"
	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/inventory"
	"esnafpos-backend/internal/marketplace"
	"esnafpos-backend/internal/models"
	"esnafpos-backend/internal/reports"
	"esnafpos-backend/internal/sales"
	"esnafpos-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)
	cache.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Tenant yönetimi
	adminRoutes.Post("/tenants", admin.CreateTenantHandler())
	adminRoutes.Get("/tenants", admin.ListTenantsHandler())
	adminRoutes.Get("/tenants/:id", admin.GetTenantHandler())
	adminRoutes.Put("/tenants/:id", admin.UpdateTenantHandler())
	adminRoutes.Delete("/tenants/:id", admin.DeactivateTenantHandler())
	adminRoutes.Post("/tenants/:id/admin", admin.CreateTenantAdminHandler())
	adminRoutes.Get("/tenants/:id/users", admin.ListTenantUsersHandler())

	// Pazaryeri katalog yönetimi
	adminRoutes.Post("/marketplace/items", marketplace.CreateItemHandler())
	adminRoutes.Put("/marketplace/items/:id", marketplace.UpdateItemHandler())
	adminRoutes.Put("/marketplace/restock-orders/:id/verify", marketplace.VerifyRestockOrderHandler())

	// Ürünler
	protected.Get("/products", inventory.ListProductsHandler())
	protected.Post("/products", inventory.CreateProductHandler())
	protected.Put("/products/:id", inventory.UpdateProductHandler())
	protected.Delete("/products/:id", inventory.DeactivateProductHandler())
	protected.Put("/products/:id/activate", inventory.ActivateProductHandler())

	// Hammaddeler
	protected.Get("/raw-materials", inventory.ListRawMaterialsHandler())
	protected.Get("/raw-materials/alerts", stock.AlertsHandler())
	protected.Get("/raw-materials/export", inventory.ExportInventoryHandler())
	protected.Post("/raw-materials", inventory.CreateRawMaterialHandler())
	protected.Put("/raw-materials/:id", inventory.UpdateRawMaterialHandler())
	protected.Delete("/raw-materials/:id", inventory.DeactivateRawMaterialHandler())
	protected.Put("/raw-materials/:id/activate", inventory.ActivateRawMaterialHandler())
	protected.Post("/raw-materials/:id/stock", stock.AdjustMaterialHandler())

	// Reçeteler
	protected.Post("/bom", bom.SetRecipeHandler())
	protected.Post("/bom/validate", bom.ValidateHandler())
	protected.Get("/bom/:product_id", bom.GetActiveRecipeHandler())
	protected.Get("/bom/:product_id/history", bom.RecipeHistoryHandler())
	protected.Delete("/bom/:product_id", bom.DeactivateRecipeHandler())

	// Satış
	protected.Post("/sales", sales.ProcessSaleHandler())
	protected.Get("/sales", sales.ListSalesHandler())
	protected.Get("/sales/:id", sales.GetSaleHandler())

	// İade
	protected.Post("/sales/:id/refunds", sales.CreateRefundHandler())
	protected.Get("/refunds", sales.ListRefundsHandler())
	protected.Put("/refunds/:id/process", sales.ProcessRefundHandler())
	protected.Put("/refunds/:id/cancel", sales.CancelRefundHandler())

	// Stok defteri
	protected.Post("/stock/adjust", stock.AdjustHandler())
	protected.Get("/stock/movements", stock.MovementsHandler())

	// Pazaryeri
	protected.Get("/marketplace/items", marketplace.ListItemsHandler())
	protected.Post("/marketplace/purchase", marketplace.PurchaseHandler())
	protected.Post("/marketplace/restock-orders", marketplace.CreateRestockOrderHandler())
	protected.Get("/marketplace/restock-orders", marketplace.ListRestockOrdersHandler())

	// Raporlar
	protected.Get("/reports/bom-cost-analysis", reports.BOMCostReportHandler())
	protected.Get("/reports/inventory-value", reports.InventoryValueReportHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
