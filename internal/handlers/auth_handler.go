package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/velora-app/auth-service/internal/dto"
	"github.com/velora-app/auth-service/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "Invalid request body",
		})
	}

	userID, err := h.authService.Signup(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingFields):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Message: "All fields are required",
			})
		case errors.Is(err, services.ErrTermsNotAgreed):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Message: "You must agree to the terms",
			})
		case errors.Is(err, services.ErrPasswordTooShort):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Message: "Password must be at least 8 characters",
			})
		case errors.Is(err, services.ErrDuplicateUser):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Message: "Email or username already exists",
			})
		}
		slog.Error("signup failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Message: "Internal server error",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SignupResponse{
		Message: "User created successfully",
		UserID:  userID,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "Invalid request body",
		})
	}

	resp, err := h.authService.Login(c.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingCredentials):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Message: "Email/username and password are required",
			})
		case errors.Is(err, services.ErrInvalidCredentials):
			// Same body for unknown identifier and wrong password.
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Message: "Invalid credentials",
			})
		}
		slog.Error("login failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(resp)
}

func (h *AuthHandler) GoogleSignIn(c *fiber.Ctx) error {
	var req dto.GoogleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "Invalid request body",
		})
	}

	if req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Message: "Token is required",
		})
	}

	resp, err := h.authService.GoogleSignIn(c.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidGoogleToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Message: "Invalid Google token",
			})
		}
		slog.Error("google sign-in failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(resp)
}

func (h *AuthHandler) VerifyToken(c *fiber.Ctx) error {
	// Any unusable input, an unparseable body included, reports the
	// valid:false shape so callers can branch on the payload.
	var req dto.VerifyTokenRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.VerifyTokenResponse{
			Valid:   false,
			Message: "No token provided",
		})
	}

	user, err := h.authService.VerifyToken(req.Token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.VerifyTokenResponse{
			Valid:   false,
			Message: "Invalid token",
		})
	}

	return c.JSON(dto.VerifyTokenResponse{
		Valid: true,
		User:  user,
	})
}

// Me echoes the claims of the bearer token validated by the JWT middleware.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Message: "Unauthorized",
		})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Message: "Unauthorized",
		})
	}

	userID, _ := claims["userId"].(string)
	username, _ := claims["username"].(string)
	email, _ := claims["email"].(string)

	return c.JSON(dto.TokenUser{
		UserID:   userID,
		Username: username,
		Email:    email,
	})
}
