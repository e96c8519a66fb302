package admin

import (
	"strings"

	"esnafpos-backend/internal/database"
	"esnafpos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type TenantResponse struct {
	ID                   uint   `json:"id"`
	Name                 string `json:"name"`
	Address              string `json:"address"`
	Phone                string `json:"phone"`
	AllowInsufficientBOM bool   `json:"allow_insufficient_bom"`
	IsActive             bool   `json:"is_active"`
	CreatedAt            string `json:"created_at"`
}

type CreateTenantRequest struct {
	Name                 string  `json:"name"`
	Address              string  `json:"address"`
	Phone                *string `json:"phone"` // Opsiyonel
	AllowInsufficientBOM bool    `json:"allow_insufficient_bom"`
}

type UpdateTenantRequest struct {
	Name                 *string `json:"name"`
	Address              *string `json:"address"`
	Phone                *string `json:"phone"`
	AllowInsufficientBOM *bool   `json:"allow_insufficient_bom"`
	IsActive             *bool   `json:"is_active"`
}

type CreateTenantAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TenantUserResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID *uint  `json:"tenant_id"`
}

func toTenantResponse(t *models.Tenant) TenantResponse {
	return TenantResponse{
		ID:                   t.ID,
		Name:                 t.Name,
		Address:              t.Address,
		Phone:                t.Phone,
		AllowInsufficientBOM: t.AllowInsufficientBOM,
		IsActive:             t.IsActive,
		CreatedAt:            t.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// TENANT CRUD (sadece super_admin)
// ----------------------------------------

// POST /api/admin/tenants
func CreateTenantHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTenantRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Tenant adı boş olamaz")
		}

		tenant := models.Tenant{
			Name:                 body.Name,
			Address:              body.Address,
			AllowInsufficientBOM: body.AllowInsufficientBOM,
			IsActive:             true,
		}
		if body.Phone != nil {
			tenant.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.Create(&tenant).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tenant oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toTenantResponse(&tenant))
	}
}

// GET /api/admin/tenants
func ListTenantsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var tenants []models.Tenant
		if err := database.DB.Order("name asc").Find(&tenants).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tenant'lar listelenemedi")
		}

		res := make([]TenantResponse, 0, len(tenants))
		for i := range tenants {
			res = append(res, toTenantResponse(&tenants[i]))
		}
		return c.JSON(res)
	}
}

// GET /api/admin/tenants/:id
func GetTenantHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var tenant models.Tenant
		if err := database.DB.First(&tenant, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tenant bulunamadı")
		}
		return c.JSON(toTenantResponse(&tenant))
	}
}

// PUT /api/admin/tenants/:id
// allow_insufficient_bom buradan yönetilir; satış isteği bu politikayı
// genişletemez, sadece daraltabilir.
func UpdateTenantHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var tenant models.Tenant
		if err := database.DB.First(&tenant, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tenant bulunamadı")
		}

		var body UpdateTenantRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Tenant adı boş olamaz")
			}
			tenant.Name = name
		}
		if body.Address != nil {
			tenant.Address = *body.Address
		}
		if body.Phone != nil {
			tenant.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.AllowInsufficientBOM != nil {
			tenant.AllowInsufficientBOM = *body.AllowInsufficientBOM
		}
		if body.IsActive != nil {
			tenant.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&tenant).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tenant güncellenemedi")
		}
		return c.JSON(toTenantResponse(&tenant))
	}
}

// DELETE /api/admin/tenants/:id
// Soft-delete: tenant pasife çekilir, kullanıcıları giriş yapsa da
// tenant doğrulaması satış/stok işlemlerini reddeder.
func DeactivateTenantHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		result := database.DB.Model(&models.Tenant{}).
			Where("id = ?", id).
			Update("is_active", false)
		if result.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tenant pasife çekilemedi")
		}
		if result.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Tenant bulunamadı")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// ----------------------------------------
// TENANT KULLANICILARI
// ----------------------------------------

// POST /api/admin/tenants/:id/admin
func CreateTenantAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var tenant models.Tenant
		if err := database.DB.First(&tenant, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Tenant bulunamadı")
		}

		var body CreateTenantAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim, email ve şifre zorunlu")
		}

		var existing models.User
		if err := database.DB.Where("email = ?", body.Email).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bu email zaten kayıtlı")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			TenantID:     &tenant.ID,
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleTenantAdmin,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(TenantUserResponse{
			ID:       user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Role:     string(user.Role),
			TenantID: user.TenantID,
		})
	}
}

// GET /api/admin/tenants/:id/users
func ListTenantUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var users []models.User
		if err := database.DB.Where("tenant_id = ?", id).Order("name asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]TenantUserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, TenantUserResponse{
				ID:       u.ID,
				Name:     u.Name,
				Email:    u.Email,
				Role:     string(u.Role),
				TenantID: u.TenantID,
			})
		}
		return c.JSON(res)
	}
}
