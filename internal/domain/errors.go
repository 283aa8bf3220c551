package domain

import (
	"errors"
	"net/http"
)

// OAuth2 protocol error codes (RFC 6749 Sections 4.1.2.1 and 5.2).
const (
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeInvalidClient           = "invalid_client"
	ErrCodeInvalidGrant            = "invalid_grant"
	ErrCodeInvalidScope            = "invalid_scope"
	ErrCodeUnsupportedResponseType = "unsupported_response_type"
	ErrCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrCodeServerError             = "server_error"
)

// OAuthError is a protocol-level error carrying the wire error code and a
// client-safe description. Internal error detail never travels in one of
// these; it is logged at the point of failure and replaced with a fixed
// description before crossing the boundary.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuthError) Error() string {
	return e.Code + ": " + e.Description
}

// Status maps the error code to its HTTP status per RFC 6749: client
// authentication failures are 401, unexpected internal failures 500,
// everything else 400.
func (e *OAuthError) Status() int {
	switch e.Code {
	case ErrCodeInvalidClient:
		return http.StatusUnauthorized
	case ErrCodeServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func NewOAuthError(code, description string) *OAuthError {
	return &OAuthError{Code: code, Description: description}
}

// ErrInvalidClient covers unknown, inactive, and badly-authenticated clients.
// One shared value keeps the three cases indistinguishable on the wire.
var ErrInvalidClient = NewOAuthError(ErrCodeInvalidClient, "client authentication failed")

// ErrInvalidGrant covers missing, consumed, expired, and mismatched codes and
// refresh tokens, again deliberately indistinguishable.
var ErrInvalidGrant = NewOAuthError(ErrCodeInvalidGrant, "invalid or expired grant")

// ErrServerError is the uniform surface for store and signer failures.
var ErrServerError = NewOAuthError(ErrCodeServerError, "internal server error")

// AsOAuthError extracts an *OAuthError from err, or wraps err as a
// server_error if it is anything else.
func AsOAuthError(err error) *OAuthError {
	var oerr *OAuthError
	if errors.As(err, &oerr) {
		return oerr
	}
	return ErrServerError
}
