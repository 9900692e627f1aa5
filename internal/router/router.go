package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/agrisage/farm-auth/internal/handler"    // import the handlers that implement business logic
	"github.com/agrisage/farm-auth/internal/middleware" // import middleware for JWT authentication, roles and rate limiting
	"github.com/agrisage/farm-auth/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check, used by
// load balancers or monitoring systems to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated credential operations live under
// /api/auth and carry the brute-force rate limiter; protected profile
// endpoints live under the same prefix behind the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rateLimit echo.MiddlewareFunc, jwtSecret string) {
	// Credential endpoints: no session required, limiter applied.  Each of
	// these handlers mints or exchanges tokens.
	g := e.Group("/api/auth", rateLimit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/google", a.GoogleAuth)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body and never fails; no
	// limiter, no JWT.
	e.POST("/api/auth/logout", a.Logout)

	// Protected endpoints require a valid access token.  The role check
	// accepts every known role; it exists to reject tokens minted with a
	// role the system does not know.
	auth := e.Group("/api/auth")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleFarmer, model.RoleLearner, model.RoleExpert))
	auth.GET("/me", a.Me)
	auth.PUT("/profile", a.UpdateProfile)
	auth.POST("/logout-all", a.LogoutAll)
}

// RegisterActivity registers the activity-sync endpoints.  Both require a
// valid access token; the activities always belong to the caller.
func RegisterActivity(e *echo.Echo, h *handler.ActivityHandler, jwtSecret string) {
	g := e.Group("/api/activity")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.POST("/sync", h.Sync)
	g.GET("", h.List)
}
