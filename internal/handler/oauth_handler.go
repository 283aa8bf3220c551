package handler

import (
	"log"

	"github.com/EmotiveImpact/appfounders-oauth/internal/domain"
	"github.com/EmotiveImpact/appfounders-oauth/internal/service"
	"github.com/EmotiveImpact/appfounders-oauth/pkg/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type OAuthHandler struct {
	oauthService *service.OAuthService
	grantService *service.GrantService
	validator    *validator.Validator
}

func NewOAuthHandler(
	oauthService *service.OAuthService,
	grantService *service.GrantService,
	validator *validator.Validator,
) *OAuthHandler {
	return &OAuthHandler{
		oauthService: oauthService,
		grantService: grantService,
		validator:    validator,
	}
}

// TokenRequest represents the OAuth2 token request
type TokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type" validate:"required"`
	ClientID     string `json:"client_id" form:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" form:"client_secret" validate:"required"`
	Code         string `json:"code" form:"code"`                 // authorization_code grant
	RedirectURI  string `json:"redirect_uri" form:"redirect_uri"` // authorization_code grant
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
	Scope        string `json:"scope" form:"scope"`
}

// RevokeRequest represents the RFC 7009 revocation request
type RevokeRequest struct {
	Token         string `json:"token" form:"token" validate:"required"`
	TokenTypeHint string `json:"token_type_hint" form:"token_type_hint"`
	ClientID      string `json:"client_id" form:"client_id" validate:"required"`
	ClientSecret  string `json:"client_secret" form:"client_secret" validate:"required"`
}

// Authorize handles the OAuth2 authorization endpoint
// GET /oauth/authorize
//
// Validates the request against the client registry, issues a single-use
// authorization code, and redirects back to the client. The resource owner
// identity comes from the authenticated platform session (session
// middleware), never from request parameters.
// Implements RFC 6749 Section 4.1.1 (Authorization Request)
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		// Session middleware is supposed to run first; treat a missing
		// identity as a broken deployment, not a protocol error.
		log.Printf("[OAUTH_HANDLER] Authorize called without an authenticated session")
		return writeOAuthError(c, domain.ErrServerError)
	}

	req := service.AuthorizeRequest{
		ResponseType: c.Query("response_type"),
		ClientID:     c.Query("client_id"),
		RedirectURI:  c.Query("redirect_uri"),
		Scope:        c.Query("scope"),
		State:        c.Query("state"),
		UserID:       userID,
	}

	if req.ClientID == "" || req.RedirectURI == "" {
		return writeOAuthError(c, domain.NewOAuthError(domain.ErrCodeInvalidRequest,
			"client_id and redirect_uri are required"))
	}

	redirectURL, err := h.oauthService.Authorize(c.Context(), req)
	if err != nil {
		log.Printf("[OAUTH_HANDLER] Authorization failed for client %s: %v", req.ClientID, err)
		return writeOAuthError(c, domain.AsOAuthError(err))
	}

	log.Printf("[OAUTH_HANDLER] Authorization code issued for client %s", req.ClientID)
	return c.Redirect(redirectURL, fiber.StatusFound)
}

// Token handles the OAuth2 token endpoint
// POST /oauth/token
//
// Authenticates the client, then dispatches on grant_type:
// authorization_code, client_credentials, or refresh_token.
// Implements RFC 6749 Section 3.2 (Token Endpoint)
func (h *OAuthHandler) Token(c *fiber.Ctx) error {
	var req TokenRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("[OAUTH_HANDLER] Body parser error: %v", err)
		return writeOAuthError(c, domain.NewOAuthError(domain.ErrCodeInvalidRequest,
			"invalid request body"))
	}

	if err := h.validator.Validate(req); err != nil {
		log.Printf("[OAUTH_HANDLER] Validation error: %v", err)
		return writeOAuthError(c, domain.NewOAuthError(domain.ErrCodeInvalidRequest, err.Error()))
	}

	log.Printf("[OAUTH_HANDLER] Token request - GrantType: %s, ClientID: %s", req.GrantType, req.ClientID)

	response, err := h.grantService.Exchange(c.Context(), service.TokenExchangeRequest{
		GrantType:    req.GrantType,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		RefreshToken: req.RefreshToken,
		Scope:        req.Scope,
	})
	if err != nil {
		log.Printf("[OAUTH_HANDLER] Token exchange failed for client %s: %v", req.ClientID, err)
		return writeOAuthError(c, domain.AsOAuthError(err))
	}

	log.Printf("[OAUTH_HANDLER] Token issued - GrantType: %s, ClientID: %s", req.GrantType, req.ClientID)
	return c.Status(fiber.StatusOK).JSON(response)
}

// Revoke handles the token revocation endpoint
// POST /oauth/revoke
//
// Implements RFC 7009. Revoking an unknown token still returns 200 so the
// endpoint cannot be used to probe for live tokens.
func (h *OAuthHandler) Revoke(c *fiber.Ctx) error {
	var req RevokeRequest
	if err := c.BodyParser(&req); err != nil {
		return writeOAuthError(c, domain.NewOAuthError(domain.ErrCodeInvalidRequest,
			"invalid request body"))
	}

	if err := h.validator.Validate(req); err != nil {
		return writeOAuthError(c, domain.NewOAuthError(domain.ErrCodeInvalidRequest, err.Error()))
	}

	if err := h.grantService.Revoke(c.Context(), req.ClientID, req.ClientSecret, req.Token, req.TokenTypeHint); err != nil {
		log.Printf("[OAUTH_HANDLER] Revocation failed for client %s: %v", req.ClientID, err)
		return writeOAuthError(c, domain.AsOAuthError(err))
	}

	return c.SendStatus(fiber.StatusOK)
}

// writeOAuthError renders the protocol error shape with its mapped HTTP
// status. This is the only path by which errors reach a client.
func writeOAuthError(c *fiber.Ctx, err *domain.OAuthError) error {
	return c.Status(err.Status()).JSON(err)
}
