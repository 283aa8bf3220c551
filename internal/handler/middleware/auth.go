package middleware

import (
	"strings"

	"github.com/EmotiveImpact/appfounders-oauth/pkg/jwt"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/revocation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AuthMiddleware validates bearer access tokens and extracts their claims.
// The authorization endpoint uses it to identify the resource owner from
// the platform session; resource servers can mount it the same way.
func AuthMiddleware(tokenService *jwt.TokenService, denylist *revocation.Denylist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Extract Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing authorization header",
			})
		}

		// Check if it's a Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authorization header format",
			})
		}

		token := parts[1]
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing token",
			})
		}

		// Validate token first to get claims
		claims, err := tokenService.ValidateToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		// Check token type is "access"
		if claims.TokenType != "access" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token type",
			})
		}

		// Self-contained tokens cannot be recalled, so revocation rides on
		// the short-TTL jti denylist
		if denylist != nil {
			denied, err := denylist.IsDenied(c.Context(), claims.ID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to verify token status",
				})
			}
			if denied {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token has been revoked",
				})
			}
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token subject",
			})
		}

		// Store claims in fiber.Locals for downstream handlers
		c.Locals("user_id", userID)
		c.Locals("client_id", claims.ClientID)
		c.Locals("scope", claims.Scope)
		c.Locals("claims", claims)

		// Continue to next handler
		return c.Next()
	}
}
