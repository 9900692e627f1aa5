package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"errors"
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/agrisage/farm-auth/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxName   = "name"
	CtxRole   = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's claims into the request context.  The provided secret
// must match the one used when issuing tokens.
//
// The middleware distinguishes three failures, and the distinction is
// load-bearing for clients: a missing token and a tampered token both get a
// plain 401, but an expired token gets 401 with "expired":true so the client
// knows to attempt a silent refresh instead of discarding the session.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.  The
			// prefix is optional per our clients, so fall back to the raw
			// header value when it is absent.
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "no token provided",
				})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				if errors.Is(err, utils.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{
						"success": false,
						"message": "token expired",
						"expired": true,
					})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false,
					"message": "invalid token",
				})
			}

			// Store the decoded claims in the context.  Handlers and
			// downstream middleware access these values via c.Get().
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxName, claims.Name)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}
