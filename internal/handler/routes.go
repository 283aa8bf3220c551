package handler

import (
	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(
	app *fiber.App,
	oauthHandler *OAuthHandler,
	healthHandler *HealthHandler,
	jwksHandler *JWKSHandler,
	sessionMiddleware fiber.Handler,
) {
	// Health checks (public)
	app.Get("/health", healthHandler.Health)
	app.Get("/ready", healthHandler.Ready)

	// Key discovery for resource servers (public)
	app.Get("/.well-known/jwks.json", jwksHandler.GetJWKS)

	// OAuth2 endpoints
	oauth := app.Group("/oauth")

	// The authorization endpoint requires an authenticated resource owner;
	// the token and revocation endpoints authenticate the client themselves.
	oauth.Get("/authorize", sessionMiddleware, oauthHandler.Authorize)
	oauth.Post("/token", oauthHandler.Token)
	oauth.Post("/revoke", oauthHandler.Revoke)
}
