package utils // package utils provides helper functions for token creation and identifiers

import (
	"crypto/rand" // secure random number generation
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/agrisage/farm-auth/internal/model"
)

// Sentinel errors returned by token parsing.  ErrTokenExpired lets callers
// distinguish "needs refresh" from a token that must be rejected outright.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// AccessToken represents a signed JWT access token along with its expiry.
// Access tokens are short-lived, stateless and carried in the Authorization
// header when calling protected endpoints.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long-lived token used to obtain new access tokens.
// Unlike the access token it is also persisted server-side so that rotation
// and logout can revoke it.
type RefreshToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // UTC expiration time
}

// AccessClaims is the decoded payload of a verified access token.
type AccessClaims struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The payload
// carries the user id (uid), email, name and role plus the standard exp and
// iat claims.  The TTL string uses the <integer><unit> form parsed by
// ParseTTL.
func NewAccessToken(secret string, u model.User, ttl string) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ParseTTL(ttl))
	claims := jwt.MapClaims{
		"uid":   u.ID,
		"email": u.Email,
		"name":  u.Name,
		"role":  u.Role,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken signs a long-lived HS256 JWT containing the user id, a
// token-type marker and a random jti.  The jti keeps back-to-back mints for
// the same user distinct; the token string is the storage key, so two
// identical tokens would collide on insert.  The caller persists the
// returned token string so rotation can enforce single use.
func NewRefreshToken(secret, userID, ttl string) (RefreshToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ParseTTL(ttl))
	jti, err := NewID(8)
	if err != nil {
		return RefreshToken{}, err
	}
	claims := jwt.MapClaims{
		"uid": userID,
		"typ": "refresh",
		"jti": jti,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry and returns the decoded
// claims.  An expired-but-otherwise-valid token returns ErrTokenExpired;
// anything else wrong returns ErrTokenInvalid.
func ParseAccessToken(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AccessClaims{}, ErrTokenExpired
		}
		return AccessClaims{}, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return AccessClaims{}, ErrTokenInvalid
	}
	return AccessClaims{
		UserID: stringClaim(claims, "uid"),
		Email:  stringClaim(claims, "email"),
		Name:   stringClaim(claims, "name"),
		Role:   stringClaim(claims, "role"),
	}, nil
}

// ParseRefreshToken verifies a refresh token and returns the owning user id.
// The typ claim must carry the refresh marker so an access token can never be
// replayed through the rotation endpoint.
func ParseRefreshToken(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", ErrTokenInvalid
	}
	if stringClaim(claims, "typ") != "refresh" {
		return "", ErrTokenInvalid
	}
	uid := stringClaim(claims, "uid")
	if uid == "" {
		return "", ErrTokenInvalid
	}
	return uid, nil
}

// ParseTTL converts a duration string of the form <integer><unit> where unit
// is h (hours), d (days) or m (minutes).  Anything unparseable falls back to
// 24 hours.
func ParseTTL(s string) time.Duration {
	if len(s) < 2 {
		return 24 * time.Hour
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 24 * time.Hour
	}
	switch s[len(s)-1] {
	case 'h':
		return time.Duration(n) * time.Hour
	case 'd':
		return time.Duration(n) * 24 * time.Hour
	case 'm':
		return time.Duration(n) * time.Minute
	default:
		return 24 * time.Hour
	}
}

// NewID returns an opaque identifier built from n bytes of cryptographically
// secure random data, hex encoded.
func NewID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
