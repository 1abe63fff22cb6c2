package handler

import (
	"backend-hallpass/internal/config"
	"backend-hallpass/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	if config.RecaptchaEnabled() {
		if req.RecaptchaToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid reCAPTCHA token",
			})
		}

		ok, score, err := config.VerifyRecaptcha(req.RecaptchaToken)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "reCAPTCHA verification failed",
			})
		}
		if !ok || score < 0.5 {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Suspicious activity detected",
			})
		}
	}

	tenant, found, err := Tenants.ByEmail(c.UserContext(), req.Email)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Database error",
		})
	}
	if !found {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Wrong email or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Wrong email or password",
		})
	}

	token, err := config.GenerateToken(tenant.ID, tenant.Email, tenant.RoomName, tenant.Role)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": models.LoginResponse{
			Token:  token,
			Tenant: models.ToTenantResponse(tenant),
		},
	})
}

func Logout(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}
