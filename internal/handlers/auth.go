package handlers

import (
	"log/slog"
	"net/http"

	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RegisterHandler creates an account
func RegisterHandler(users *services.UserService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		user, err := users.Register(c.UserContext(), req)
		if err != nil {
			return renderError(c, logger, err)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"message": "Account created",
			"user":    user,
		})
	}
}

// LoginHandler checks credentials and issues an access token
func LoginHandler(users *services.UserService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}

		res, err := users.Login(c.UserContext(), req)
		if err != nil {
			return renderError(c, logger, err)
		}
		return c.JSON(fiber.Map{
			"message": "Login successful",
			"user":    res.User,
			"token":   res.Token,
		})
	}
}

func ListUsersHandler(users *services.UserService, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := users.ListUsers(c.UserContext())
		if err != nil {
			return renderError(c, logger, err)
		}
		return c.JSON(list)
	}
}
