package auth

import (
	"fmt"
	"strings"

	"esnafpos-backend/internal/config"
	"esnafpos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxTenantIDKey = "tenant_id"
)

func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header eksik")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization formatı 'Bearer <token>' olmalı")
		}

		tokenStr := parts[1]

		token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("geçersiz imzalama yöntemi")
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Geçersiz veya süresi dolmuş token")
		}

		claims, ok := token.Claims.(*JWTCustomClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Token çözümlenemedi")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxTenantIDKey, claims.TenantID)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleVal := c.Locals(CtxUserRoleKey)
		role, ok := roleVal.(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "Bu işlem için yetkiniz yok")
	}
}

// ResolveTenantID: Normal kullanıcı token'ındaki tenant ile sınırlıdır.
// super_admin ise istekte tenant_id belirtmek zorundadır.
func ResolveTenantID(c *fiber.Ctx, bodyTenantID *uint) (uint, error) {
	roleVal := c.Locals(CtxUserRoleKey)
	role, ok := roleVal.(models.UserRole)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}

	if role == models.RoleSuperAdmin {
		if bodyTenantID == nil || *bodyTenantID == 0 {
			return 0, fiber.NewError(fiber.StatusBadRequest, "super_admin için tenant_id zorunlu")
		}
		return *bodyTenantID, nil
	}

	tVal := c.Locals(CtxTenantIDKey)
	tPtr, ok := tVal.(*uint)
	if !ok || tPtr == nil {
		return 0, fiber.NewError(fiber.StatusForbidden, "Tenant bilgisi alınamadı")
	}
	// Kendi tenant'ı dışında bir tenant isteyemez
	if bodyTenantID != nil && *bodyTenantID != 0 && *bodyTenantID != *tPtr {
		return 0, fiber.NewError(fiber.StatusForbidden, "Başka bir tenant adına işlem yapamazsınız")
	}
	return *tPtr, nil
}

// CurrentUserID: Middleware'in koyduğu kullanıcı ID'si.
func CurrentUserID(c *fiber.Ctx) (uint, error) {
	idVal := c.Locals(CtxUserIDKey)
	id, ok := idVal.(uint)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}
	return id, nil
}
