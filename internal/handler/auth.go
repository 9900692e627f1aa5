package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel error matching
	"log"      // request-boundary logging for unexpected failures
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/agrisage/farm-auth/internal/auth"       // Google identity bridge
	"github.com/agrisage/farm-auth/internal/config"     // app configuration
	"github.com/agrisage/farm-auth/internal/middleware" // context keys set by JWTAuth
	"github.com/agrisage/farm-auth/internal/model"
	"github.com/agrisage/farm-auth/internal/repository" // DB repositories
	"github.com/agrisage/farm-auth/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Google *auth.GoogleVerifier
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, g *auth.GoogleVerifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Google: g}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type googleReq struct {
	IDToken string `json:"idToken"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"success": false, "message": msg})
}

// issuePair mints an access/refresh pair for the user and persists the
// refresh token.  Register, login, google and refresh all mint sessions
// through this one path.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (tokenPair, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u, h.Cfg.AccessTTL)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTL)
	if err != nil {
		return tokenPair{}, err
	}
	if err := h.Tokens.Store(ctx, model.RefreshToken{
		Token:     refresh.Token,
		UserID:    u.ID,
		ExpiresAt: refresh.Exp,
	}); err != nil {
		return tokenPair{}, err
	}
	return tokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "registration failed")
	}
	id, err := utils.NewID(16)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "registration failed")
	}
	u := model.User{
		ID:           id,
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
	}
	if err := h.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusConflict, "email already registered")
		}
		log.Printf("auth: create user failed: %v", err)
		return fail(c, http.StatusInternalServerError, "registration failed")
	}
	// Reload so the response carries the stored defaults.
	u, err = h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("auth: load user after create failed: %v", err)
		return fail(c, http.StatusInternalServerError, "registration failed")
	}

	pair, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("auth: issue tokens failed: %v", err)
		return fail(c, http.StatusInternalServerError, "registration failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success":      true,
		"user":         u,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Login: verify credentials and return a new pair.  The failure message is
// deliberately the same for unknown email and wrong password so the endpoint
// cannot be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "email and password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid email or password")
		}
		log.Printf("auth: lookup user failed: %v", err)
		return fail(c, http.StatusInternalServerError, "login failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid email or password")
	}

	pair, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("auth: issue tokens failed: %v", err)
		return fail(c, http.StatusInternalServerError, "login failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"user":         u,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// GoogleAuth: exchange a Google ID token for a local session, creating the
// local user on first sign-in.
func (h *AuthHandler) GoogleAuth(c echo.Context) error {
	var req googleReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		return fail(c, http.StatusBadRequest, "idToken required")
	}

	identity, err := h.Google.Verify(c.Request().Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, auth.ErrProviderTimeout) {
			return fail(c, http.StatusServiceUnavailable, "identity provider timeout")
		}
		// Provider error detail is included for client-side diagnostics.
		// TODO: strip the detail once the mobile clients log verification
		// failures on their own.
		return fail(c, http.StatusUnauthorized, err.Error())
	}
	if identity.Email == "" {
		return fail(c, http.StatusUnauthorized, "google token carried no email")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	email := strings.ToLower(identity.Email)
	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		u = model.User{
			ID:           "g_" + identity.Subject,
			Email:        email,
			PasswordHash: utils.GooglePasswordSentinel,
			Name:         identity.Name,
			Avatar:       identity.Picture,
		}
		if err := h.Users.Create(ctx, u); err != nil && !errors.Is(err, repository.ErrEmailExists) {
			log.Printf("auth: create google user failed: %v", err)
			return fail(c, http.StatusInternalServerError, "google sign-in failed")
		}
		// Re-read either way: a concurrent first sign-in may have won the
		// insert, and the row carries the defaults.
		if u, err = h.Users.GetByEmail(ctx, email); err != nil {
			log.Printf("auth: load google user failed: %v", err)
			return fail(c, http.StatusInternalServerError, "google sign-in failed")
		}
	} else if err != nil {
		log.Printf("auth: lookup google user failed: %v", err)
		return fail(c, http.StatusInternalServerError, "google sign-in failed")
	}

	pair, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("auth: issue tokens failed: %v", err)
		return fail(c, http.StatusInternalServerError, "google sign-in failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"user":         u,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Refresh: rotate a refresh token for a new pair.  The old token is consumed
// with a single conditional delete, so of two concurrent requests racing on
// the same token exactly one gets a new pair and the other a 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refreshToken required")
	}
	raw := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Unknown here covers both never-issued and already-consumed tokens.
	stored, err := h.Tokens.Find(ctx, raw)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid refresh token")
		}
		log.Printf("auth: refresh lookup failed: %v", err)
		return fail(c, http.StatusInternalServerError, "refresh failed")
	}

	uid, err := utils.ParseRefreshToken(h.Cfg.JWTSecret, raw)
	if err != nil {
		// Expired or tampered: the stored row is dead weight, clean it up.
		_, _ = h.Tokens.Consume(ctx, raw)
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if uid != stored.UserID {
		_, _ = h.Tokens.Consume(ctx, raw)
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid refresh token")
		}
		log.Printf("auth: refresh load user failed: %v", err)
		return fail(c, http.StatusInternalServerError, "refresh failed")
	}

	removed, err := h.Tokens.Consume(ctx, raw)
	if err != nil {
		log.Printf("auth: refresh consume failed: %v", err)
		return fail(c, http.StatusInternalServerError, "refresh failed")
	}
	if !removed {
		// Lost the race against a concurrent refresh of the same token.
		return fail(c, http.StatusUnauthorized, "invalid refresh token")
	}

	pair, err := h.issuePair(ctx, u)
	if err != nil {
		log.Printf("auth: issue tokens failed: %v", err)
		return fail(c, http.StatusInternalServerError, "refresh failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// Logout: best-effort revocation of the supplied refresh token.  Always
// reports success; a token that is already gone is exactly what the caller
// wanted.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		_, _ = h.Tokens.Consume(ctx, raw)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// LogoutAll revokes every refresh token the authenticated user holds.  Used
// when a device is lost or a token leak is suspected; outstanding access
// tokens stay valid until they expire, but no session can be renewed.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.DeleteAllForUser(ctx, uid); err != nil {
		log.Printf("auth: revoke all tokens failed: %v", err)
		return fail(c, http.StatusInternalServerError, "logout failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		log.Printf("auth: load profile failed: %v", err)
		return fail(c, http.StatusInternalServerError, "profile lookup failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// UpdateProfile applies the allow-listed fields from the body to the current
// user.  Fields outside the allow-list have no way in: the bind target only
// knows the mutable ones.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(string)

	var upd repository.ProfileUpdate
	if err := c.Bind(&upd); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNoFields) || errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "nothing to update")
		}
		log.Printf("auth: update profile failed: %v", err)
		return fail(c, http.StatusInternalServerError, "profile update failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}
